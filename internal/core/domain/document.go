package domain

import "time"

// ProcessedDocument is the durable record persisted for each unique
// byte content. The content hash is the deduplication key: two uploads
// with identical bytes must resolve to the same document id.
type ProcessedDocument struct {
	ID               string    `json:"id"`
	FileName         string    `json:"file_name"`
	ContentHash      string    `json:"content_hash"`
	OriginalSize     int64     `json:"original_size"`
	StoredSize       int64     `json:"stored_size"`
	Compressed       bool      `json:"compressed"`
	CompressionRatio float64   `json:"compression_ratio,omitempty"`
	ExtractedText    string    `json:"extracted_text,omitempty"`
	Summary          string    `json:"summary,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	Keywords         []string  `json:"keywords,omitempty"`
	Category         string    `json:"category,omitempty"`
	TherapistID      string    `json:"therapist_id"`
	ClientID         string    `json:"client_id,omitempty"`
	StoragePath      string    `json:"storage_path"`
	PageCount        int       `json:"page_count,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ExtractionResult is the immutable output of one format extractor:
// plain text plus non-essential diagnostics.
type ExtractionResult struct {
	Text string

	PageCount  int
	SheetCount int
	RowCount   int
	EntryCount int
}

// Summary is the best-effort metadata produced by the summarization
// capability. A zero value is a valid outcome.
type Summary struct {
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
}
