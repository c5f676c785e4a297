package compress

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestCompressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "doc.txt")
	content := strings.Repeat("repetitive clinical note text ", 200)
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	outPath, size, err := NewGzip().Compress(context.Background(), src)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if outPath != src+".gz" {
		t.Fatalf("outPath = %s, want %s", outPath, src+".gz")
	}
	if size <= 0 || size >= int64(len(content)) {
		t.Fatalf("compressed size = %d, want smaller than %d", size, len(content))
	}

	// Original stays in place for the caller to remove.
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must be untouched: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open compressed: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	b, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(b) != content {
		t.Fatalf("round trip mismatch, got %d bytes", len(b))
	}
}

func TestCompressMissingSource(t *testing.T) {
	if _, _, err := NewGzip().Compress(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestCompressCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewGzip().Compress(ctx, "irrelevant"); err == nil {
		t.Fatalf("expected context error")
	}
}
