package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

// Extractor walks a ZIP archive, extracts allow-listed entries to a
// scratch directory and runs the matching extractor per entry.
// Results are concatenated with per-entry headers; progress counts
// entries processed over total, including skipped ones. The scratch
// directory is removed on every exit path.
type Extractor struct {
	lookup     ports.ExtractorLookup
	scratchDir string
}

func New(lookup ports.ExtractorLookup, scratchDir string) *Extractor {
	return &Extractor{lookup: lookup, scratchDir: scratchDir}
}

func (e *Extractor) Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	if e.scratchDir != "" {
		if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
			return domain.ExtractionResult{}, fmt.Errorf("create scratch area: %w", err)
		}
	}
	scratch, err := os.MkdirTemp(e.scratchDir, "archive-")
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	total := len(reader.File)
	var builder strings.Builder
	extracted := 0

	for idx, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return domain.ExtractionResult{}, err
		}

		text, ok, err := e.extractEntry(ctx, entry, scratch)
		if err != nil {
			return domain.ExtractionResult{}, err
		}
		if ok {
			builder.WriteString("=== ")
			builder.WriteString(entry.Name)
			builder.WriteString(" ===\n")
			builder.WriteString(text)
			builder.WriteString("\n\n")
			extracted++
		}

		if progress != nil && total > 0 {
			progress((idx + 1) * 100 / total)
		}
	}

	return domain.ExtractionResult{
		Text:       strings.TrimSpace(builder.String()),
		EntryCount: total,
	}, nil
}

// extractEntry reports ok=false for entries outside the allow-list or
// with unsafe names; those are skipped, not failed.
func (e *Extractor) extractEntry(ctx context.Context, entry *zip.File, scratch string) (string, bool, error) {
	if entry.FileInfo().IsDir() {
		return "", false, nil
	}

	extractor, err := e.lookup.ForFile(entry.Name)
	if err != nil {
		return "", false, nil
	}

	dest := filepath.Join(scratch, filepath.Base(entry.Name))
	if err := copyEntry(entry, dest); err != nil {
		return "", false, fmt.Errorf("extract entry %s: %w", entry.Name, err)
	}
	defer os.Remove(dest)

	result, err := extractor.Extract(ctx, dest, nil)
	if err != nil {
		// A broken entry should not sink the whole archive.
		slog.Warn("archive entry extraction failed, skipping", "entry", entry.Name, "error", err)
		return "", false, nil
	}
	return result.Text, true, nil
}

func copyEntry(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("copy entry: %w", err)
	}
	return nil
}
