package domain

import "io"

// BatchFile describes one file in a batch submission. Open must return
// a fresh reader on every call so a failed pipeline run can be retried
// from the start of the stream.
type BatchFile struct {
	Name     string
	Size     int64
	Open     func() (io.ReadCloser, error)
	Compress bool
}

// FileOutcome records how one batch entry settled: either a document
// id or a terminal error message, never both.
type FileOutcome struct {
	FileName   string `json:"file_name"`
	DocumentID string `json:"document_id,omitempty"`
	Duplicate  bool   `json:"duplicate,omitempty"`
	Error      string `json:"error,omitempty"`
	Attempts   int    `json:"attempts"`
}

// BatchResult aggregates a whole batch submission. It is assembled
// only after every file has settled and is immutable afterwards.
type BatchResult struct {
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Outcomes  []FileOutcome `json:"outcomes"`
}
