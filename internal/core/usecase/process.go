package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

// Progress is split into phases so the reported percentage stays a
// single monotone integer across streaming and extraction: bytes to
// storage cover 0-50, extraction covers 50-95, and the terminal
// complete event pins 100.
const (
	streamPhaseCeiling  = 50
	extractPhaseCeiling = 95
)

// PipelineConfig carries the externally configured limits.
type PipelineConfig struct {
	MaxFileSize          int64
	CompressionThreshold int64
	StoredTextMaxChars   int
}

// Metrics is the observation hook the pipeline reports into. A nil
// implementation is substituted when none is wired.
type Metrics interface {
	StartFile()
	FinishFile(duration time.Duration, err error)
	DedupHit()
	BytesStreamed(n int64)
	BatchFile(failed bool)
}

type nopMetrics struct{}

func (nopMetrics) StartFile()                      {}
func (nopMetrics) FinishFile(time.Duration, error) {}
func (nopMetrics) DedupHit()                       {}
func (nopMetrics) BytesStreamed(int64)             {}
func (nopMetrics) BatchFile(bool)                  {}

// Pipeline composes streaming, hashing, deduplication, extraction,
// compression, summarization and persistence into one Process call.
type Pipeline struct {
	blobs      ports.BlobStore
	extractors ports.ExtractorLookup
	compressor ports.Compressor
	store      ports.DocumentStore
	summarizer ports.Summarizer
	sink       ports.EventSink

	dedup   *DedupCache
	jobs    *JobRegistry
	cfg     PipelineConfig
	metrics Metrics
}

func NewPipeline(
	blobs ports.BlobStore,
	extractors ports.ExtractorLookup,
	compressor ports.Compressor,
	store ports.DocumentStore,
	summarizer ports.Summarizer,
	sink ports.EventSink,
	cfg PipelineConfig,
	metrics Metrics,
) *Pipeline {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Pipeline{
		blobs:      blobs,
		extractors: extractors,
		compressor: compressor,
		store:      store,
		summarizer: summarizer,
		sink:       sink,
		dedup:      NewDedupCache(),
		jobs:       NewJobRegistry(),
		cfg:        cfg,
		metrics:    metrics,
	}
}

func (p *Pipeline) Process(ctx context.Context, req ports.ProcessRequest) (*ports.ProcessResult, error) {
	if strings.TrimSpace(req.FileName) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process file", errors.New("file name is required"))
	}
	if req.TherapistID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process file", errors.New("therapist id is required"))
	}
	// Reject before any state is entered; no job, no temp file.
	if req.DeclaredSize > p.cfg.MaxFileSize {
		return nil, domain.WrapError(
			domain.ErrSizeLimitExceeded,
			"process file",
			fmt.Errorf("declared size %d exceeds limit %d", req.DeclaredSize, p.cfg.MaxFileSize),
		)
	}

	jobID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	job := domain.ProcessingJob{
		ID:        jobID,
		FileName:  req.FileName,
		TotalSize: req.DeclaredSize,
		Status:    domain.JobProcessing,
		StartedAt: time.Now().UTC(),
	}
	p.jobs.Add(job, cancel)
	p.publish(domain.EventStart, job)
	p.metrics.StartFile()

	start := time.Now()
	result, err := p.run(runCtx, jobID, req)
	p.metrics.FinishFile(time.Since(start), err)

	if err != nil {
		err = p.finishFailed(jobID, err)
		return nil, err
	}
	p.finishCompleted(jobID, result.DocumentID)
	return result, nil
}

func (p *Pipeline) Job(jobID string) (domain.ProcessingJob, bool) {
	return p.jobs.Get(jobID)
}

// Cancel aborts a job that has not finished hashing yet. Later stages
// run to completion or failure on their own.
func (p *Pipeline) Cancel(jobID string) bool {
	return p.jobs.Cancel(jobID)
}

// Dedup exposes the cache for callers that pre-seed or inspect it.
func (p *Pipeline) Dedup() *DedupCache {
	return p.dedup
}

func (p *Pipeline) run(ctx context.Context, jobID string, req ports.ProcessRequest) (*ports.ProcessResult, error) {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	tempKey := "tmp/" + jobID + ext

	hash, written, err := p.streamToTemp(ctx, jobID, tempKey, req)
	if err != nil {
		return nil, err
	}

	// Cancellation window closes once the bytes are on disk.
	p.jobs.Disarm(jobID)

	if docID, ok := p.dedup.Get(hash); ok {
		p.metrics.DedupHit()
		if err := p.blobs.Remove(ctx, tempKey); err != nil {
			slog.Warn("dedup temp cleanup failed", "job_id", jobID, "key", tempKey, "error", err)
		}
		return &ports.ProcessResult{
			JobID:       jobID,
			DocumentID:  docID,
			ContentHash: hash,
			Duplicate:   true,
		}, nil
	}

	extractor, err := p.extractors.ForFile(req.FileName)
	if err != nil {
		p.removeTemp(ctx, jobID, tempKey)
		return nil, err
	}

	extraction, err := extractor.Extract(ctx, p.blobs.Path(tempKey), func(pct int) {
		p.reportExtractProgress(jobID, pct)
	})
	if err != nil {
		p.removeTemp(ctx, jobID, tempKey)
		return nil, wrapExtractionError(err)
	}

	storagePath, storedSize, compressed, err := p.finalizeBlob(ctx, jobID, tempKey, "docs/"+hash+ext, written, req.Compress)
	if err != nil {
		return nil, err
	}

	summary := p.summarize(ctx, jobID, extraction.Text, req.FileName)

	doc := &domain.ProcessedDocument{
		FileName:      req.FileName,
		ContentHash:   hash,
		OriginalSize:  written,
		StoredSize:    storedSize,
		Compressed:    compressed,
		ExtractedText: truncateRunes(extraction.Text, p.cfg.StoredTextMaxChars),
		Summary:       summary.Summary,
		Tags:          summary.Tags,
		Keywords:      summary.Keywords,
		Category:      summary.Category,
		TherapistID:   req.TherapistID,
		ClientID:      req.ClientID,
		StoragePath:   storagePath,
		PageCount:     extraction.PageCount,
		CreatedAt:     time.Now().UTC(),
	}
	if compressed && written > 0 {
		doc.CompressionRatio = float64(storedSize) / float64(written)
	}

	docID, err := p.store.Create(ctx, doc)
	if err != nil {
		if removeErr := p.blobs.Remove(ctx, storagePath); removeErr != nil {
			slog.Warn("stored blob cleanup failed", "job_id", jobID, "key", storagePath, "error", removeErr)
		}
		return nil, domain.WrapError(domain.ErrPersistFailed, "create document", err)
	}

	p.dedup.Set(hash, docID)

	return &ports.ProcessResult{
		JobID:       jobID,
		DocumentID:  docID,
		ContentHash: hash,
		TextChars:   len(extraction.Text),
	}, nil
}

func (p *Pipeline) streamToTemp(ctx context.Context, jobID, tempKey string, req ports.ProcessRequest) (string, int64, error) {
	// Declared size is caller input; cap the actual stream too.
	limited := io.LimitReader(req.Body, p.cfg.MaxFileSize+1)

	hash, written, err := p.blobs.SaveStream(ctx, tempKey, limited, func(n int64) {
		p.reportStreamProgress(jobID, n, req.DeclaredSize)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) && p.jobs.CancelRequested(jobID) {
			return "", 0, domain.WrapError(domain.ErrCancelled, "stream to storage", errors.New("cancelled by user"))
		}
		return "", 0, fmt.Errorf("stream to storage: %w", err)
	}
	if written > p.cfg.MaxFileSize {
		p.removeTemp(ctx, jobID, tempKey)
		return "", 0, domain.WrapError(
			domain.ErrSizeLimitExceeded,
			"stream to storage",
			fmt.Errorf("stream exceeded limit %d", p.cfg.MaxFileSize),
		)
	}
	p.metrics.BytesStreamed(written)
	return hash, written, nil
}

func (p *Pipeline) finalizeBlob(ctx context.Context, jobID, tempKey, permKey string, written int64, compress bool) (string, int64, bool, error) {
	if compress && p.compressor != nil && written > p.cfg.CompressionThreshold {
		// The compressor writes <temp>.gz next to the temp blob, so the
		// compressed artifact stays inside the blob area under tempKey+".gz".
		_, gzSize, err := p.compressor.Compress(ctx, p.blobs.Path(tempKey))
		if err != nil {
			p.removeTemp(ctx, jobID, tempKey)
			return "", 0, false, fmt.Errorf("compress stored file: %w", err)
		}
		p.removeTemp(ctx, jobID, tempKey)
		permKey += ".gz"
		if err := p.blobs.Rename(ctx, tempKey+".gz", permKey); err != nil {
			return "", 0, false, fmt.Errorf("promote compressed file: %w", err)
		}
		return permKey, gzSize, true, nil
	}

	if err := p.blobs.Rename(ctx, tempKey, permKey); err != nil {
		p.removeTemp(ctx, jobID, tempKey)
		return "", 0, false, fmt.Errorf("promote stored file: %w", err)
	}
	return permKey, written, false, nil
}

// summarize is best-effort: enrichment failure never fails the file.
func (p *Pipeline) summarize(ctx context.Context, jobID, text, fileName string) domain.Summary {
	if p.summarizer == nil {
		return domain.Summary{}
	}
	summary, err := p.summarizer.Summarize(ctx, text, fileName)
	if err != nil {
		slog.Warn("summarization failed, storing without enrichment", "job_id", jobID, "file", fileName, "error", err)
		return domain.Summary{}
	}
	return summary
}

func (p *Pipeline) reportStreamProgress(jobID string, written, total int64) {
	job, ok := p.jobs.Update(jobID, func(job *domain.ProcessingJob) {
		if written > job.ProcessedSize {
			job.ProcessedSize = written
		}
		if job.ProcessedSize > job.TotalSize {
			job.ProcessedSize = job.TotalSize
		}
		if total > 0 {
			job.Percentage = int(written * streamPhaseCeiling / total)
		} else {
			job.Percentage = streamPhaseCeiling
		}
	})
	if ok {
		p.publish(domain.EventProgress, job)
	}
}

func (p *Pipeline) reportExtractProgress(jobID string, pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	job, ok := p.jobs.Update(jobID, func(job *domain.ProcessingJob) {
		job.Percentage = streamPhaseCeiling + pct*(extractPhaseCeiling-streamPhaseCeiling)/100
	})
	if ok {
		p.publish(domain.EventProgress, job)
	}
}

func (p *Pipeline) finishCompleted(jobID, documentID string) {
	now := time.Now().UTC()
	job, ok := p.jobs.Update(jobID, func(job *domain.ProcessingJob) {
		job.Status = domain.JobCompleted
		job.Percentage = 100
		job.ProcessedSize = job.TotalSize
		job.EndedAt = &now
		job.DocumentID = documentID
	})
	if ok {
		p.publish(domain.EventComplete, job)
	}
	p.jobs.Remove(jobID)
}

func (p *Pipeline) finishFailed(jobID string, runErr error) error {
	cancelled := domain.IsKind(runErr, domain.ErrCancelled)
	now := time.Now().UTC()
	job, ok := p.jobs.Update(jobID, func(job *domain.ProcessingJob) {
		job.Status = domain.JobFailed
		job.EndedAt = &now
		job.Error = runErr.Error()
	})
	if ok {
		if cancelled {
			p.publish(domain.EventCancelled, job)
		} else {
			p.publish(domain.EventError, job)
		}
	}
	p.jobs.Remove(jobID)
	return runErr
}

func (p *Pipeline) removeTemp(ctx context.Context, jobID, tempKey string) {
	if err := p.blobs.Remove(ctx, tempKey); err != nil {
		slog.Warn("temp file cleanup failed", "job_id", jobID, "key", tempKey, "error", err)
	}
}

func (p *Pipeline) publish(eventType domain.EventType, job domain.ProcessingJob) {
	if p.sink == nil {
		return
	}
	p.sink.Publish(domain.ProgressEvent{
		Type:  eventType,
		JobID: job.ID,
		Job:   job,
		At:    time.Now().UTC(),
	})
}

// Size-limit and format errors carry their own kind; everything else
// from an extractor is an extraction failure.
func wrapExtractionError(err error) error {
	switch {
	case domain.IsKind(err, domain.ErrSizeLimitExceeded),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrCancelled):
		return err
	}
	return domain.WrapError(domain.ErrExtractionFailed, "extract text", err)
}

func truncateRunes(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
