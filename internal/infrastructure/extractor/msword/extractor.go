package msword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"code.sajari.com/docconv"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// Extractor converts DOCX files in a single shot; the underlying
// library streams the archive internally, so no chunking is needed.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExtractionResult{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	text, _, err := docconv.ConvertDocx(f)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("convert docx: %w", err)
	}
	if progress != nil {
		progress(100)
	}

	return domain.ExtractionResult{Text: strings.TrimSpace(text)}, nil
}
