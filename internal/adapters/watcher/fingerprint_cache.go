package watcher

import (
	"sync"
	"unique"

	"go.trai.ch/kiln/internal/core/ports"
)

var _ ports.OutputCache = (*FingerprintCache)(nil)

// FingerprintCache implements ports.OutputCache on top of a ports.Hasher.
// It lets both the runner and the watch controller skip announcing an
// output whose content is what clients last saw.
type FingerprintCache struct {
	mu      sync.Mutex
	entries map[unique.Handle[string]]uint64
	hasher  ports.Hasher
}

// NewFingerprintCache creates an empty cache.
func NewFingerprintCache(hasher ports.Hasher) *FingerprintCache {
	return &FingerprintCache{
		entries: make(map[unique.Handle[string]]uint64),
		hasher:  hasher,
	}
}

// Changed fingerprints path and reports whether it differs from the last call.
func (c *FingerprintCache) Changed(path string) (bool, error) {
	sum, exists, err := c.hasher.Fingerprint(path)
	if err != nil {
		return false, err
	}

	handle := unique.Make(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !exists {
		delete(c.entries, handle)
		return false, nil
	}

	prev, seen := c.entries[handle]
	c.entries[handle] = sum
	return !seen || prev != sum, nil
}

// Len returns the number of remembered paths.
func (c *FingerprintCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
