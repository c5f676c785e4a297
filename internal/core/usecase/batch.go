package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

// BatchConfig bounds the orchestrator: pool width, total attempts per
// file and the base delay of the exponential backoff between attempts.
type BatchConfig struct {
	MaxConcurrent int
	MaxRetries    int
	RetryBackoff  time.Duration
}

func (c BatchConfig) normalize() BatchConfig {
	out := c
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = 5
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 3
	}
	if out.RetryBackoff <= 0 {
		out.RetryBackoff = 500 * time.Millisecond
	}
	return out
}

// BatchOrchestrator runs single-file pipelines under a bounded worker
// pool. A failing file is retried with backoff and, once exhausted,
// recorded in the aggregate result; it never aborts the batch.
type BatchOrchestrator struct {
	pipeline ports.FileProcessor
	cfg      BatchConfig
	metrics  Metrics
}

func NewBatchOrchestrator(pipeline ports.FileProcessor, cfg BatchConfig, metrics Metrics) *BatchOrchestrator {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &BatchOrchestrator{
		pipeline: pipeline,
		cfg:      cfg.normalize(),
		metrics:  metrics,
	}
}

func (o *BatchOrchestrator) ProcessBatch(ctx context.Context, files []domain.BatchFile, therapistID, clientID string) (*domain.BatchResult, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process batch", errors.New("empty batch"))
	}
	if therapistID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process batch", errors.New("therapist id is required"))
	}

	outcomes := make([]domain.FileOutcome, len(files))

	eg := &errgroup.Group{}
	eg.SetLimit(o.cfg.MaxConcurrent)
	for i, file := range files {
		eg.Go(func() error {
			outcomes[i] = o.processWithRetry(ctx, file, therapistID, clientID)
			return nil
		})
	}
	// Workers never return errors; partial failure lives in outcomes.
	_ = eg.Wait()

	result := &domain.BatchResult{Outcomes: outcomes}
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			result.Failed++
		} else {
			result.Processed++
		}
	}
	return result, nil
}

// processWithRetry wraps the whole pipeline call per attempt, not
// individual stages. Each attempt reopens the source stream.
func (o *BatchOrchestrator) processWithRetry(ctx context.Context, file domain.BatchFile, therapistID, clientID string) domain.FileOutcome {
	outcome := domain.FileOutcome{FileName: file.Name}
	backoff := o.cfg.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		outcome.Attempts = attempt
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		result, err := o.processOnce(ctx, file, therapistID, clientID)
		if err == nil {
			outcome.DocumentID = result.DocumentID
			outcome.Duplicate = result.Duplicate
			o.metrics.BatchFile(false)
			return outcome
		}
		lastErr = err

		if !domain.Retryable(err) || attempt == o.cfg.MaxRetries {
			break
		}

		slog.Warn("batch file retry",
			"file", file.Name,
			"attempt", attempt,
			"max_attempts", o.cfg.MaxRetries,
			"backoff_ms", float64(backoff.Microseconds())/1000.0,
			"error", err,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			outcome.Error = ctx.Err().Error()
			o.metrics.BatchFile(true)
			return outcome
		case <-timer.C:
		}
		backoff *= 2
	}

	outcome.Error = lastErr.Error()
	o.metrics.BatchFile(true)
	return outcome
}

func (o *BatchOrchestrator) processOnce(ctx context.Context, file domain.BatchFile, therapistID, clientID string) (*ports.ProcessResult, error) {
	body, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open batch file %s: %w", file.Name, err)
	}
	defer body.Close()

	return o.pipeline.Process(ctx, ports.ProcessRequest{
		Body:         body,
		FileName:     file.Name,
		DeclaredSize: file.Size,
		TherapistID:  therapistID,
		ClientID:     clientID,
		Compress:     file.Compress,
	})
}
