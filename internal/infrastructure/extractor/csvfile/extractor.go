package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// progressEveryRows bounds event volume: progress fires per block of
// rows, not per row.
const progressEveryRows = 100

// Extractor streams CSV row by row through the parser, reporting
// progress periodically as bytes consumed over file size.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (e *Extractor) Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("stat csv: %w", err)
	}
	total := info.Size()

	counting := &countingReader{r: f}
	reader := csv.NewReader(counting)
	reader.FieldsPerRecord = -1

	var builder strings.Builder
	rowCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return domain.ExtractionResult{}, err
		}
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return domain.ExtractionResult{}, fmt.Errorf("parse csv row %d: %w", rowCount+1, readErr)
		}

		builder.WriteString(strings.Join(record, ", "))
		builder.WriteString("\n")
		rowCount++

		if progress != nil && rowCount%progressEveryRows == 0 && total > 0 {
			progress(int(counting.n * 100 / total))
		}
	}
	if progress != nil {
		progress(100)
	}

	return domain.ExtractionResult{
		Text:     strings.TrimSpace(builder.String()),
		RowCount: rowCount,
	}, nil
}
