package usecase

import "sync"

// DedupCache maps content hash to the document id created for it.
// It lives for the whole process and is never evicted; on restart it
// is rebuilt from empty, so one redundant re-processing per
// previously-seen file is possible and accepted.
type DedupCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewDedupCache() *DedupCache {
	return &DedupCache{m: make(map[string]string)}
}

func (c *DedupCache) Get(hash string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.m[hash]
	return id, ok
}

func (c *DedupCache) Set(hash, documentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[hash] = documentID
}

func (c *DedupCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
