package fastdfs

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// existenceCache is an in-process, never-persisted hint of file IDs the
// client has itself observed to be FileNotFound. It is populated only on
// confirmed absence and consulted only as an optimization: a hit never
// short-circuits a definitive FileExists/GetFileInfo call, since a Bloom
// filter can false-positive but never false-negate on what it was given.
type existenceCache struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

func newExistenceCache(capacity uint, fpRate float64) *existenceCache {
	return &existenceCache{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

// MaybeAbsent reports whether fileID has previously been recorded as
// FileNotFound. A false result carries no information either way.
func (c *existenceCache) MaybeAbsent(fileID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.TestString(fileID)
}

// RecordAbsent adds fileID to the filter after a confirmed FileNotFound.
func (c *existenceCache) RecordAbsent(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.AddString(fileID)
}
