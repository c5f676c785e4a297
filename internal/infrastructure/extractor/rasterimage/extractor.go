package rasterimage

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"golang.org/x/image/draw"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

const (
	// maxDimension bounds the payload shipped to the vision model.
	maxDimension = 1024
	jpegQuality  = 70
)

// Extractor downsamples a raster image, re-encodes it as JPEG and
// delegates text recovery to an external vision-capable model. OCR
// failure is non-fatal: the extractor returns empty text instead of
// failing the file.
type Extractor struct {
	vision ports.VisionOCR
}

func New(vision ports.VisionOCR) *Extractor {
	return &Extractor{vision: vision}
}

func (e *Extractor) Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error) {
	encoded, err := encodeForVision(path)
	if err != nil {
		slog.Warn("image encode failed, skipping ocr", "path", path, "error", err)
		e.complete(progress)
		return domain.ExtractionResult{}, nil
	}

	text, err := e.vision.RecoverText(ctx, encoded)
	if err != nil {
		slog.Warn("vision ocr failed, storing without text", "path", path, "error", err)
		e.complete(progress)
		return domain.ExtractionResult{}, nil
	}

	e.complete(progress)
	return domain.ExtractionResult{Text: text}, nil
}

func (e *Extractor) complete(progress func(pct int)) {
	if progress != nil {
		progress(100)
	}
}

func encodeForVision(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}

	resized := downsample(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func downsample(src image.Image) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return src
	}

	scale := float64(maxDimension) / float64(width)
	if height > width {
		scale = float64(maxDimension) / float64(height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
