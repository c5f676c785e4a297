package usecase

import (
	"context"
	"sync"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

type trackedJob struct {
	job             domain.ProcessingJob
	cancel          context.CancelFunc
	cancellable     bool
	cancelRequested bool
}

// JobRegistry is the live registry of in-flight jobs. Each job is
// mutated only through Update by the pipeline goroutine that owns it;
// reads hand out copies. A job is cancellable only until its byte
// stream has been fully hashed, after which Disarm closes the window.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*trackedJob
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*trackedJob)}
}

func (r *JobRegistry) Add(job domain.ProcessingJob, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = &trackedJob{job: job, cancel: cancel, cancellable: cancel != nil}
}

func (r *JobRegistry) Get(id string) (domain.ProcessingJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tracked, ok := r.jobs[id]
	if !ok {
		return domain.ProcessingJob{}, false
	}
	return tracked.job, true
}

// Update applies fn to the stored job and returns the resulting copy.
// Percentage regressions are clamped so reported progress never moves
// backwards.
func (r *JobRegistry) Update(id string, fn func(job *domain.ProcessingJob)) (domain.ProcessingJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tracked, ok := r.jobs[id]
	if !ok {
		return domain.ProcessingJob{}, false
	}
	before := tracked.job.Percentage
	fn(&tracked.job)
	if tracked.job.Percentage < before {
		tracked.job.Percentage = before
	}
	if tracked.job.Percentage > 100 {
		tracked.job.Percentage = 100
	}
	return tracked.job, true
}

// Cancel requests cancellation of a job that is still in its
// cancellable window. It reports whether the request was accepted.
func (r *JobRegistry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	tracked, ok := r.jobs[id]
	if !ok || !tracked.cancellable {
		return false
	}
	tracked.cancelRequested = true
	if tracked.cancel != nil {
		tracked.cancel()
	}
	return true
}

// Disarm closes the cancellation window once extraction begins.
func (r *JobRegistry) Disarm(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tracked, ok := r.jobs[id]; ok {
		tracked.cancellable = false
	}
}

func (r *JobRegistry) CancelRequested(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tracked, ok := r.jobs[id]
	return ok && tracked.cancelRequested
}

func (r *JobRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *JobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
