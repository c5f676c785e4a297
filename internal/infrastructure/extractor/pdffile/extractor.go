package pdffile

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// pageBatchSize bounds how many pages are rendered concurrently so a
// large document never materializes its whole render tree at once.
const pageBatchSize = 10

// Extractor pulls text out of PDF files page by page in concurrent
// fixed-size batches, reporting progress as pages done over total.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	if totalPages == 0 {
		return domain.ExtractionResult{PageCount: 0}, nil
	}

	pages := make([]string, totalPages+1)
	var pagesDone atomic.Int64

	for batchStart := 1; batchStart <= totalPages; batchStart += pageBatchSize {
		if err := ctx.Err(); err != nil {
			return domain.ExtractionResult{}, err
		}

		batchEnd := batchStart + pageBatchSize - 1
		if batchEnd > totalPages {
			batchEnd = totalPages
		}

		eg := &errgroup.Group{}
		for pageNum := batchStart; pageNum <= batchEnd; pageNum++ {
			eg.Go(func() error {
				page := reader.Page(pageNum)
				if page.V.IsNull() {
					pagesDone.Add(1)
					return nil
				}
				text, err := page.GetPlainText(nil)
				if err != nil {
					return fmt.Errorf("page %d: %w", pageNum, err)
				}
				pages[pageNum] = text
				done := pagesDone.Add(1)
				if progress != nil {
					progress(int(done * 100 / int64(totalPages)))
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return domain.ExtractionResult{}, err
		}
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if pages[pageNum] == "" {
			continue
		}
		builder.WriteString(pages[pageNum])
		builder.WriteString("\n")
	}

	return domain.ExtractionResult{
		Text:      strings.TrimSpace(builder.String()),
		PageCount: totalPages,
	}, nil
}
