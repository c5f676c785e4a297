package archive

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

type readbackExtractor struct{}

func (readbackExtractor) Extract(_ context.Context, path string, _ func(int)) (domain.ExtractionResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	return domain.ExtractionResult{Text: strings.TrimSpace(string(b))}, nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string, func(int)) (domain.ExtractionResult, error) {
	return domain.ExtractionResult{}, errors.New("corrupt entry")
}

type lookupFake struct {
	byExt map[string]ports.TextExtractor
}

func (f *lookupFake) ForFile(fileName string) (ports.TextExtractor, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if e, ok := f.byExt[ext]; ok {
		return e, nil
	}
	return nil, domain.WrapError(domain.ErrUnsupportedFormat, "resolve extractor", errors.New("unknown"))
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
	return path
}

func TestExtractWalksSupportedEntries(t *testing.T) {
	scratch := t.TempDir()
	lookup := &lookupFake{byExt: map[string]ports.TextExtractor{"txt": readbackExtractor{}, "md": readbackExtractor{}}}
	extractor := New(lookup, scratch)

	path := writeZip(t, map[string]string{
		"intake.txt":    "intake note",
		"plan.md":       "care plan",
		"nested/ok.txt": "nested note",
		"photo.raw":     "binary stuff",
	})

	var reports []int
	result, err := extractor.Extract(context.Background(), path, func(pct int) {
		reports = append(reports, pct)
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.EntryCount != 4 {
		t.Fatalf("entry count = %d, want 4", result.EntryCount)
	}
	for _, want := range []string{"=== intake.txt ===", "intake note", "=== plan.md ===", "care plan", "nested note"} {
		if !strings.Contains(result.Text, want) {
			t.Fatalf("missing %q in:\n%s", want, result.Text)
		}
	}
	if strings.Contains(result.Text, "binary stuff") {
		t.Fatalf("unsupported entry must be skipped")
	}

	if len(reports) != 4 || reports[len(reports)-1] != 100 {
		t.Fatalf("expected one report per entry ending at 100, got %v", reports)
	}

	// Scratch area must be empty again.
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch dir must be cleaned, found %d entries", len(entries))
	}
}

func TestExtractSkipsBrokenEntries(t *testing.T) {
	lookup := &lookupFake{byExt: map[string]ports.TextExtractor{
		"txt": readbackExtractor{},
		"pdf": failingExtractor{},
	}}
	extractor := New(lookup, t.TempDir())

	path := writeZip(t, map[string]string{
		"good.txt":   "good text",
		"broken.pdf": "not really a pdf",
	})

	result, err := extractor.Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("broken entry must not fail the archive: %v", err)
	}
	if !strings.Contains(result.Text, "good text") {
		t.Fatalf("healthy entry missing from:\n%s", result.Text)
	}
	if strings.Contains(result.Text, "broken.pdf") {
		t.Fatalf("failed entry must be skipped entirely")
	}
}

func TestExtractRejectsNonZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.zip")
	if err := os.WriteFile(path, []byte("plain text pretending"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	extractor := New(&lookupFake{byExt: map[string]ports.TextExtractor{}}, t.TempDir())
	if _, err := extractor.Extract(context.Background(), path, nil); err == nil {
		t.Fatalf("expected error for invalid archive")
	}
}
