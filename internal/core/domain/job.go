package domain

import "time"

type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ProcessingJob is the transient in-memory record of one file moving
// through the pipeline. It is mutated only by the pipeline goroutine
// that owns it; everyone else sees copies.
//
// Invariants: ProcessedSize <= TotalSize, and Percentage is a
// non-decreasing integer in [0,100] until a terminal status.
type ProcessingJob struct {
	ID            string     `json:"id"`
	FileName      string     `json:"file_name"`
	TotalSize     int64      `json:"total_size"`
	ProcessedSize int64      `json:"processed_size"`
	Percentage    int        `json:"percentage"`
	Status        JobStatus  `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Error         string     `json:"error,omitempty"`
	DocumentID    string     `json:"document_id,omitempty"`
}

type EventType string

const (
	EventStart     EventType = "start"
	EventProgress  EventType = "progress"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
	EventCancelled EventType = "cancelled"
)

// ProgressEvent is best-effort telemetry fanned out to subscribers.
// Delivery is never guaranteed and must not affect pipeline
// correctness.
type ProgressEvent struct {
	Type  EventType     `json:"type"`
	JobID string        `json:"job_id"`
	Job   ProcessingJob `json:"job"`
	At    time.Time     `json:"at"`
}
