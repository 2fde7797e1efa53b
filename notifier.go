package stackdepot

import "go.uber.org/atomic"

// MemoryNotifier is informed of the page-sized allocations and frees the
// cache performs, so a host runtime can account for cache memory in its
// own bookkeeping (for example, to exclude it from leak detection).
//
// OnAllocation may be invoked while the cache holds its page lock; the
// notifier must not call back into the cache.
type MemoryNotifier interface {
	OnAllocation(bytes int)
	OnFree(bytes int)
}

// nopMemoryNotifier is the default notifier.
type nopMemoryNotifier struct{}

func (nopMemoryNotifier) OnAllocation(int) {}
func (nopMemoryNotifier) OnFree(int)       {}

// CountingMemoryNotifier tallies the bytes the cache has allocated and
// freed.
//
// Thread Safety: Safe for concurrent use; the tallies are atomics.
type CountingMemoryNotifier struct {
	allocated atomic.Int64
	freed     atomic.Int64
}

// OnAllocation records a page allocation of the given size.
func (n *CountingMemoryNotifier) OnAllocation(bytes int) {
	n.allocated.Add(int64(bytes))
}

// OnFree records a page release of the given size.
func (n *CountingMemoryNotifier) OnFree(bytes int) {
	n.freed.Add(int64(bytes))
}

// Allocated returns the total bytes the cache has requested.
func (n *CountingMemoryNotifier) Allocated() int64 {
	return n.allocated.Load()
}

// Freed returns the total bytes the cache has released.
func (n *CountingMemoryNotifier) Freed() int64 {
	return n.freed.Load()
}

// InUse returns the bytes currently held by the cache.
func (n *CountingMemoryNotifier) InUse() int64 {
	return n.allocated.Load() - n.freed.Load()
}
