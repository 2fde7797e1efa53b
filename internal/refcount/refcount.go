// Package refcount implements the saturating reference counter used by the
// stack capture cache.
//
// The counter is 32 bits wide. Once it reaches Max it is considered
// saturated: further increments and decrements are ignored and the counted
// object is retained forever. This mirrors the behavior of long-running
// error-detection runtimes where a handful of extremely hot stacks may
// accumulate more references than a 32-bit counter can represent; pinning
// them is cheaper and safer than widening every entry.
//
// Mutating methods (Inc, Dec, Store) must be serialized by the caller,
// typically under the lock that owns the counted object. Reads are atomic
// and safe from any goroutine, which lets lock-free paths (free list
// scavenging, statistics snapshots) observe the count without acquiring
// the owner's lock.
package refcount

import (
	"math"

	"go.uber.org/atomic"
)

// Max is the saturation point. A counter that reaches Max never moves again.
const Max = uint32(math.MaxUint32)

// Count is a saturating 32-bit reference counter.
//
// The zero value is a valid counter with no references.
type Count struct {
	v atomic.Uint32
}

// Inc adds one reference. If the counter is already saturated this is a
// no-op. It returns true if this increment saturated the counter, so the
// caller can account for the newly pinned object exactly once.
func (c *Count) Inc() bool {
	cur := c.v.Load()
	if cur == Max {
		return false
	}
	c.v.Store(cur + 1)
	return cur+1 == Max
}

// Dec removes one reference. Decrementing a saturated counter is a no-op:
// pinned objects stay pinned. It returns false if the counter was already
// zero, which signals a release-without-reference contract violation to
// the caller.
func (c *Count) Dec() bool {
	cur := c.v.Load()
	if cur == Max {
		return true
	}
	if cur == 0 {
		return false
	}
	c.v.Store(cur - 1)
	return true
}

// Load returns the current count.
func (c *Count) Load() uint32 {
	return c.v.Load()
}

// Store sets the count to n, including Max. Used when an entry is first
// populated (n=1) and when a provisional entry is recycled (n=0).
func (c *Count) Store(n uint32) {
	c.v.Store(n)
}

// Zero reports whether the counter currently holds no references.
func (c *Count) Zero() bool {
	return c.v.Load() == 0
}

// Saturated reports whether the counter has been pinned at Max.
func (c *Count) Saturated() bool {
	return c.v.Load() == Max
}
