package extractor

import (
	"context"
	"testing"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

type stubExtractor struct{ name string }

func (s *stubExtractor) Extract(context.Context, string, func(int)) (domain.ExtractionResult, error) {
	return domain.ExtractionResult{Text: s.name}, nil
}

func TestRegistryResolvesByExtension(t *testing.T) {
	registry := NewRegistry()
	text := &stubExtractor{name: "text"}
	registry.Register("txt", text)
	registry.Register(".pdf", &stubExtractor{name: "pdf"})

	got, err := registry.ForFile("Notes.TXT")
	if err != nil {
		t.Fatalf("ForFile() error = %v", err)
	}
	if got != text {
		t.Fatalf("resolved wrong extractor")
	}

	if _, err := registry.ForFile("report.pdf"); err != nil {
		t.Fatalf("dotted registration must resolve: %v", err)
	}
}

func TestRegistryUnknownExtension(t *testing.T) {
	registry := NewRegistry()
	registry.Register("txt", &stubExtractor{})

	_, err := registry.ForFile("binary.exe")
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if registry.Supported("binary.exe") {
		t.Fatalf("Supported() must be false for unknown extension")
	}
	if !registry.Supported("a.txt") {
		t.Fatalf("Supported() must be true for registered extension")
	}
}
