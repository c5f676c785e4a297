package compress

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// GzipCompressor streams a file through gzip into <path>.gz. The
// original is left in place; removing it is the caller's job.
type GzipCompressor struct {
	level int
}

func NewGzip() *GzipCompressor {
	return &GzipCompressor{level: gzip.BestSpeed}
}

func (c *GzipCompressor) Compress(ctx context.Context, path string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	src, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	outPath := path + ".gz"
	out, err := os.Create(outPath)
	if err != nil {
		return "", 0, fmt.Errorf("create compressed file: %w", err)
	}

	gz, err := gzip.NewWriterLevel(out, c.level)
	if err != nil {
		out.Close()
		os.Remove(outPath)
		return "", 0, fmt.Errorf("init gzip writer: %w", err)
	}

	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		out.Close()
		os.Remove(outPath)
		return "", 0, fmt.Errorf("compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", 0, fmt.Errorf("flush gzip stream: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", 0, fmt.Errorf("close compressed file: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return "", 0, fmt.Errorf("stat compressed file: %w", err)
	}
	return outPath, info.Size(), nil
}
