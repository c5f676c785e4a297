package plaintext

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// chunkSize keeps memory bounded for arbitrarily large text files.
const chunkSize = 1 << 20

// Extractor reads plain text in fixed-size chunks, reporting progress
// as bytes consumed over file size.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("open text file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("stat text file: %w", err)
	}
	total := info.Size()

	var builder strings.Builder
	var read int64
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return domain.ExtractionResult{}, err
		}
		n, readErr := f.Read(buf)
		if n > 0 {
			builder.Write(buf[:n])
			read += int64(n)
			if progress != nil && total > 0 {
				progress(int(read * 100 / total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return domain.ExtractionResult{}, fmt.Errorf("read text file: %w", readErr)
		}
	}
	if progress != nil {
		progress(100)
	}

	return domain.ExtractionResult{Text: strings.TrimSpace(builder.String())}, nil
}
