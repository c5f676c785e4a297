package usecase

import (
	"testing"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

func TestJobRegistryClampsProgress(t *testing.T) {
	registry := NewJobRegistry()
	registry.Add(domain.ProcessingJob{ID: "j1", Status: domain.JobProcessing}, nil)

	job, ok := registry.Update("j1", func(job *domain.ProcessingJob) { job.Percentage = 40 })
	if !ok || job.Percentage != 40 {
		t.Fatalf("update to 40 failed: %+v ok=%v", job, ok)
	}

	job, _ = registry.Update("j1", func(job *domain.ProcessingJob) { job.Percentage = 25 })
	if job.Percentage != 40 {
		t.Fatalf("regression must be clamped, got %d", job.Percentage)
	}

	job, _ = registry.Update("j1", func(job *domain.ProcessingJob) { job.Percentage = 250 })
	if job.Percentage != 100 {
		t.Fatalf("overshoot must be clamped to 100, got %d", job.Percentage)
	}
}

func TestJobRegistryCancelWindow(t *testing.T) {
	registry := NewJobRegistry()

	var fired bool
	registry.Add(domain.ProcessingJob{ID: "j1"}, func() { fired = true })

	if !registry.Cancel("j1") {
		t.Fatalf("cancel must be accepted while the window is open")
	}
	if !fired {
		t.Fatalf("cancel func must run")
	}
	if !registry.CancelRequested("j1") {
		t.Fatalf("cancel request must be recorded")
	}

	registry.Add(domain.ProcessingJob{ID: "j2"}, func() {})
	registry.Disarm("j2")
	if registry.Cancel("j2") {
		t.Fatalf("cancel must be rejected after disarm")
	}

	if registry.Cancel("missing") {
		t.Fatalf("cancel of an unknown job must be rejected")
	}
}

func TestJobRegistryRemove(t *testing.T) {
	registry := NewJobRegistry()
	registry.Add(domain.ProcessingJob{ID: "j1"}, func() {})

	registry.Remove("j1")

	if _, ok := registry.Get("j1"); ok {
		t.Fatalf("removed job must not be readable")
	}
	if registry.Cancel("j1") {
		t.Fatalf("removed job must not be cancellable")
	}
	if registry.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", registry.Len())
	}
}

func TestDedupCache(t *testing.T) {
	cache := NewDedupCache()

	if _, ok := cache.Get("h1"); ok {
		t.Fatalf("empty cache must miss")
	}

	cache.Set("h1", "doc-1")
	docID, ok := cache.Get("h1")
	if !ok || docID != "doc-1" {
		t.Fatalf("Get(h1) = %s ok=%v, want doc-1", docID, ok)
	}

	cache.Set("h1", "doc-2")
	if docID, _ := cache.Get("h1"); docID != "doc-2" {
		t.Fatalf("Set must overwrite, got %s", docID)
	}
	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cache.Len())
	}
}
