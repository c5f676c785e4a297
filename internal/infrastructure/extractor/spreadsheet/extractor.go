package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// Extractor serializes every sheet of an XLSX workbook into a tabbed
// text block, reporting progress as sheets completed over total.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return domain.ExtractionResult{}, nil
	}

	var builder strings.Builder
	for idx, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return domain.ExtractionResult{}, err
		}

		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return domain.ExtractionResult{}, fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		builder.WriteString("## ")
		builder.WriteString(sheet)
		builder.WriteString("\n")
		for _, row := range rows {
			builder.WriteString(strings.Join(row, "\t"))
			builder.WriteString("\n")
		}
		builder.WriteString("\n")

		if progress != nil {
			progress((idx + 1) * 100 / len(sheets))
		}
	}

	return domain.ExtractionResult{
		Text:       strings.TrimSpace(builder.String()),
		SheetCount: len(sheets),
	}, nil
}
