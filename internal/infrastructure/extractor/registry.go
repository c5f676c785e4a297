package extractor

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/core/ports"
)

// Registry maps lower-cased file extensions to extractors. It replaces
// per-extension branching with a closed dispatch table so formats can
// be added and tested independently.
type Registry struct {
	mu sync.RWMutex
	m  map[string]ports.TextExtractor
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]ports.TextExtractor)}
}

// Register binds an extension (with or without leading dot) to an
// extractor, overwriting any previous binding.
func (r *Registry) Register(ext string, e ports.TextExtractor) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[ext] = e
}

func (r *Registry) ForFile(fileName string) (ports.TextExtractor, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.m[ext]
	if !ok {
		return nil, domain.WrapError(
			domain.ErrUnsupportedFormat,
			"resolve extractor",
			fmt.Errorf("unrecognized extension %q", ext),
		)
	}
	return e, nil
}

// Supported reports whether a file name resolves to an extractor.
func (r *Registry) Supported(fileName string) bool {
	_, err := r.ForFile(fileName)
	return err == nil
}
