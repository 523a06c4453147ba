package stringdict

import (
	"sync"

	"github.com/pkg/errors"
)

// allocTracker keeps track of the memory a reader holds in dictionaries and
// decoded blobs. A nil tracker tracks nothing.
type allocTracker struct {
	mu        sync.Mutex
	totalSize uint64
	maxSize   uint64
}

func newAllocTracker(maxSize uint64) *allocTracker {
	return &allocTracker{
		maxSize: maxSize,
	}
}

func (t *allocTracker) register(size uint64) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxSize > 0 && t.totalSize+size > t.maxSize {
		return errors.Wrapf(ErrMemoryLimit, "memory usage of %d bytes is greater than configured maximum of %d bytes", t.totalSize+size, t.maxSize)
	}
	t.totalSize += size
	return nil
}

func (t *allocTracker) release(size uint64) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if size > t.totalSize {
		size = t.totalSize
	}
	t.totalSize -= size
}

func (t *allocTracker) used() uint64 {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.totalSize
}
