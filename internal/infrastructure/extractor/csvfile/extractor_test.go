package csvfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestExtractJoinsRows(t *testing.T) {
	path := writeCSV(t, "name,age\nalice,30\nbob,41\n")

	result, err := New().Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.RowCount != 3 {
		t.Fatalf("row count = %d, want 3", result.RowCount)
	}
	want := "name, age\nalice, 30\nbob, 41"
	if result.Text != want {
		t.Fatalf("text = %q, want %q", result.Text, want)
	}
}

func TestExtractToleratesRaggedRows(t *testing.T) {
	path := writeCSV(t, "a,b,c\nd,e\nf\n")

	result, err := New().Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("ragged rows must parse: %v", err)
	}
	if result.RowCount != 3 {
		t.Fatalf("row count = %d, want 3", result.RowCount)
	}
}

func TestExtractReportsPeriodicProgress(t *testing.T) {
	var builder strings.Builder
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&builder, "row-%d,value-%d\n", i, i)
	}
	path := writeCSV(t, builder.String())

	var reports []int
	result, err := New().Extract(context.Background(), path, func(pct int) {
		reports = append(reports, pct)
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.RowCount != 250 {
		t.Fatalf("row count = %d, want 250", result.RowCount)
	}
	// Two full blocks of 100 rows plus the terminal report.
	if len(reports) != 3 {
		t.Fatalf("expected 3 progress reports, got %v", reports)
	}
	if reports[len(reports)-1] != 100 {
		t.Fatalf("final report must be 100, got %v", reports)
	}
	for i := 1; i < len(reports); i++ {
		if reports[i] < reports[i-1] {
			t.Fatalf("progress regressed: %v", reports)
		}
	}
}

func TestExtractMalformedQuote(t *testing.T) {
	path := writeCSV(t, "a,b\n\"unclosed,c\n")
	if _, err := New().Extract(context.Background(), path, nil); err == nil {
		t.Fatalf("expected parse error for malformed quoting")
	}
}
