package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractTrimsAndReturnsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("  session summary\nline two  \n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var reports []int
	result, err := New().Extract(context.Background(), path, func(pct int) {
		reports = append(reports, pct)
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Text != "session summary\nline two" {
		t.Fatalf("text = %q", result.Text)
	}
	if len(reports) == 0 || reports[len(reports)-1] != 100 {
		t.Fatalf("progress must end at 100, got %v", reports)
	}
	for i := 1; i < len(reports); i++ {
		if reports[i] < reports[i-1] {
			t.Fatalf("progress regressed: %v", reports)
		}
	}
}

func TestExtractLargeFileReportsIncrementally(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	// Three chunks of the 1 MiB read buffer.
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 3<<20)), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var reports []int
	if _, err := New().Extract(context.Background(), path, func(pct int) {
		reports = append(reports, pct)
	}); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(reports) < 3 {
		t.Fatalf("expected at least one report per chunk, got %v", reports)
	}
}

func TestExtractMissingFile(t *testing.T) {
	if _, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestExtractCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.txt")
	if err := os.WriteFile(path, []byte("text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Extract(ctx, path, nil); err == nil {
		t.Fatalf("expected context error")
	}
}
