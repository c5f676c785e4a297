package audio

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

// Extractor delegates audio to an external speech-to-text call. The
// transcription backend has a stricter payload limit than the general
// file ceiling, so oversize audio fails fast before any network call.
type Extractor struct {
	transcriber ports.Transcriber
	maxSize     int64
}

func New(transcriber ports.Transcriber, maxSize int64) *Extractor {
	return &Extractor{transcriber: transcriber, maxSize: maxSize}
}

func (e *Extractor) Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() > e.maxSize {
		return domain.ExtractionResult{}, domain.WrapError(
			domain.ErrSizeLimitExceeded,
			"transcribe audio",
			fmt.Errorf("audio size %d exceeds transcription limit %d", info.Size(), e.maxSize),
		)
	}

	transcript, err := e.transcriber.Transcribe(ctx, path)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("transcribe audio: %w", err)
	}
	if progress != nil {
		progress(100)
	}

	return domain.ExtractionResult{Text: strings.TrimSpace(transcript)}, nil
}
