package spreadsheet

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	_ = wb.SetCellValue("Sheet1", "A1", "client")
	_ = wb.SetCellValue("Sheet1", "B1", "sessions")
	_ = wb.SetCellValue("Sheet1", "A2", "alice")
	_ = wb.SetCellValue("Sheet1", "B2", 12)

	if _, err := wb.NewSheet("Billing"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	_ = wb.SetCellValue("Billing", "A1", "invoice-42")

	path := filepath.Join(t.TempDir(), "clients.xlsx")
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestExtractSerializesAllSheets(t *testing.T) {
	var reports []int
	result, err := New().Extract(context.Background(), writeWorkbook(t), func(pct int) {
		reports = append(reports, pct)
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.SheetCount != 2 {
		t.Fatalf("sheet count = %d, want 2", result.SheetCount)
	}
	for _, want := range []string{"## Sheet1", "client\tsessions", "alice\t12", "## Billing", "invoice-42"} {
		if !strings.Contains(result.Text, want) {
			t.Fatalf("missing %q in:\n%s", want, result.Text)
		}
	}
	if len(reports) != 2 || reports[1] != 100 {
		t.Fatalf("expected per-sheet progress ending at 100, got %v", reports)
	}
}

func TestExtractRejectsNonWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.xlsx")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := New().Extract(context.Background(), path, nil); err == nil {
		t.Fatalf("expected error for invalid workbook")
	}
}
