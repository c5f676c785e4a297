package ports

import (
	"context"
	"io"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// ProcessRequest carries one file into the pipeline. DeclaredSize is
// known up front and validated against the configured ceiling before
// any byte is streamed.
type ProcessRequest struct {
	Body         io.Reader
	FileName     string
	DeclaredSize int64
	TherapistID  string
	ClientID     string
	Compress     bool
}

// ProcessResult is the per-file success payload.
type ProcessResult struct {
	JobID       string `json:"job_id"`
	DocumentID  string `json:"document_id"`
	ContentHash string `json:"content_hash"`
	Duplicate   bool   `json:"duplicate"`
	TextChars   int    `json:"text_chars"`
}

// FileProcessor is the inbound contract for single-file processing.
type FileProcessor interface {
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
	Job(jobID string) (domain.ProcessingJob, bool)
	Cancel(jobID string) bool
}

// BatchProcessor runs many files under one concurrency ceiling with
// per-file retry. It fails only for structurally invalid input; a bad
// file never aborts the batch.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, files []domain.BatchFile, therapistID, clientID string) (*domain.BatchResult, error)
}
