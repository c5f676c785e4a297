package ports

import (
	"context"
	"io"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// DocumentStore persists processed document metadata. It is the only
// durable collaborator of the pipeline; everything else is transient.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.ProcessedDocument) (string, error)
	GetByID(ctx context.Context, id string) (*domain.ProcessedDocument, error)
}

// BlobStore owns the on-disk file area. SaveStream copies the stream
// to a temporary blob while feeding a SHA-256 digest and reporting
// cumulative bytes; it removes partial output on any copy error.
type BlobStore interface {
	SaveStream(ctx context.Context, key string, data io.Reader, progress func(written int64)) (hashHex string, written int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Rename(ctx context.Context, oldKey, newKey string) error
	Remove(ctx context.Context, key string) error
	Path(key string) string
	Size(ctx context.Context, key string) (int64, error)
}

// TextExtractor turns a stored file into plain text. Progress receives
// an integer percentage; implementations must compute it from
// cumulative counters so it never regresses.
type TextExtractor interface {
	Extract(ctx context.Context, path string, progress func(pct int)) (domain.ExtractionResult, error)
}

// ExtractorLookup resolves the extractor for a file name by its
// lower-cased extension.
type ExtractorLookup interface {
	ForFile(fileName string) (TextExtractor, error)
}

// Compressor shrinks a stored artifact into a new file; the caller
// stays responsible for removing the original.
type Compressor interface {
	Compress(ctx context.Context, path string) (compressedPath string, compressedSize int64, err error)
}

// Summarizer is the external summarization capability. Failures are
// absorbed by the pipeline; enrichment is best-effort.
type Summarizer interface {
	Summarize(ctx context.Context, text, fileName string) (domain.Summary, error)
}

// VisionOCR recovers text from a base64-encoded JPEG via an external
// vision-capable model.
type VisionOCR interface {
	RecoverText(ctx context.Context, imageBase64 string) (string, error)
}

// Transcriber turns an audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// EventSink receives progress events. Publish must never block the
// pipeline on slow or absent subscribers.
type EventSink interface {
	Publish(event domain.ProgressEvent)
}
