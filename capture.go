package stackdepot

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kolkov/stackdepot/internal/refcount"
)

// StackID uniquely identifies a stack trace by the content of its frames.
// Two frame sequences with the same program counters in the same order
// always produce the same StackID, which is what makes deduplication work.
type StackID uint64

// ComputeStackID returns the content identifier of a frame sequence.
//
// Walkers that capture stacks on a hot path can hash once and hand the
// result to SaveStackTraceWithID to avoid a second pass over the frames.
//
// Performance: one pass over the frames, no allocation.
//
// Thread Safety: Pure function, no shared state.
func ComputeStackID(frames []uintptr) StackID {
	var d xxhash.Digest
	d.Reset()
	var word [8]byte
	for _, pc := range frames {
		binary.LittleEndian.PutUint64(word[:], uint64(pc))
		_, _ = d.Write(word[:])
	}
	return StackID(d.Sum64())
}

// StackCapture is a cached stack trace. Instances are owned by the Cache
// that stored them: callers receive pointers from SaveStackTrace, hold them
// as long as they keep the reference, and hand them back through
// ReleaseStackTrace.
//
// The frame storage lives in a cache page, not in the struct, so a
// StackCapture is a view that is only safe to read while the caller holds
// at least one reference.
type StackCapture struct {
	id     StackID
	frames []uintptr // len = frame count, cap = size class
	meta   []byte
	refs   refcount.Count

	// page owns the frame storage and doubles as the owner token for
	// pointer validation.
	page *cachePage

	// Free list plumbing, guarded by the owning size class lock.
	next      *StackCapture
	reclaimed bool
}

// StackID returns the content identifier of the capture.
//
// Thread Safety: Safe with a reference held.
func (sc *StackCapture) StackID() StackID {
	return sc.id
}

// NumFrames returns the number of frames stored.
//
// Thread Safety: Safe with a reference held.
func (sc *StackCapture) NumFrames() int {
	return len(sc.frames)
}

// MaxNumFrames returns the frame capacity of the underlying slot, which is
// the size class the slot reclaims into.
//
// Thread Safety: Safe with a reference held.
func (sc *StackCapture) MaxNumFrames() int {
	return cap(sc.frames)
}

// Frames returns the stored program counters as a view into cache-owned
// storage. The view stays valid while the caller holds a reference; it
// must not be mutated.
//
// Thread Safety: Safe for concurrent readers with a reference held.
func (sc *StackCapture) Frames() []uintptr {
	return sc.frames
}

// RefCount returns the current reference count.
//
// Thread Safety: Safe for concurrent calls; the count is a single atomic
// and may already be stale when the caller looks at it.
func (sc *StackCapture) RefCount() uint32 {
	return sc.refs.Load()
}

// Saturated reports whether the reference count has pinned at its maximum.
// A saturated capture is retained for the lifetime of the cache.
//
// Thread Safety: Safe for concurrent calls. Saturation is permanent, so a
// true result never goes stale.
func (sc *StackCapture) Saturated() bool {
	return sc.refs.Saturated()
}

// Metadata returns the zero-initialized metadata region reserved after the
// frames, sized by Options.MetadataSize. Callers may write into it; the
// region is re-zeroed if the slot is ever reclaimed and reused.
//
// Thread Safety: the cache never touches the region while a reference is
// held. Callers that write it from several goroutines coordinate among
// themselves.
func (sc *StackCapture) Metadata() []byte {
	return sc.meta
}

// String renders the capture as its identifier followed by raw frame
// addresses. Frames are never symbolized here.
//
// Thread Safety: Safe with a reference held.
func (sc *StackCapture) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stack %#016x (%d frames, %d refs):", uint64(sc.id), len(sc.frames), sc.refs.Load())
	for _, pc := range sc.frames {
		fmt.Fprintf(&b, " %#x", pc)
	}
	return b.String()
}

// populate fills a slot with new content and takes the initial reference.
// The slot must be exclusively owned by the caller (freshly carved, or
// popped from a free list and unmapped).
func (sc *StackCapture) populate(frames []uintptr, id StackID) {
	if len(frames) > cap(sc.frames) {
		panic("stackdepot: slot too small for stack capture")
	}
	sc.id = id
	sc.frames = sc.frames[:len(frames)]
	copy(sc.frames, frames)
	for i := range sc.meta {
		sc.meta[i] = 0
	}
	sc.refs.Store(1)
}
