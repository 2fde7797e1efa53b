package stackdepot

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// stackShard is one slice of the lookup table: a mutex plus the map of
// stack identifiers it owns. The shard lock also guards the reference
// counts of every capture mapped in the shard, which is what gives each
// identifier a single linear history of reference transitions.
type stackShard struct {
	mu     sync.Mutex
	stacks map[StackID]*StackCapture
}

// Cache is a thread-safe, deduplicating cache of stack traces.
//
// Hosts that watch memory errors save the allocation and free stacks of
// every live heap block; almost all of them repeat. The cache stores each
// distinct stack once, hands out a shared *StackCapture for every save of
// the same content, and counts references so storage can be reclaimed and
// reused once nobody points at a stack anymore. Entries whose counter
// saturates are kept forever.
//
// All methods are safe for concurrent use. Create instances with New.
type Cache struct {
	logger   Logger
	provider PageProvider
	notifier MemoryNotifier

	pageSize        int
	metaBytes       int
	metaWords       int
	reportingPeriod uint64

	maxNumFrames atomic.Uint32
	closed       atomic.Bool

	shards [numShards]stackShard

	pageMu      sync.Mutex
	currentPage *cachePage

	reclaimed [MaxFrames + 1]reclaimedList

	statsMu sync.Mutex
	stats   Statistics

	obsMu     sync.RWMutex
	observers []StackObserver
}

// New creates a cache and eagerly allocates its first page, so the first
// save never pays the page fault and a broken provider is caught at
// construction.
//
// Thread Safety: Safe for concurrent calls; every call builds an
// independent cache.
func New(opts Options) (*Cache, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	c := &Cache{
		logger:          opts.Logger,
		provider:        opts.PageProvider,
		notifier:        opts.MemoryNotifier,
		pageSize:        opts.PageSize,
		metaBytes:       opts.MetadataSize,
		metaWords:       metaWordsFor(opts.MetadataSize),
		reportingPeriod: opts.CompressionReportingPeriod,
	}
	c.maxNumFrames.Store(uint32(opts.MaxNumFrames))
	for i := range c.shards {
		c.shards[i].stacks = make(map[StackID]*StackCapture)
	}
	pg, err := newCachePage(c, nil)
	if err != nil {
		return nil, err
	}
	c.currentPage = pg
	c.stats.Size = uint64(c.pageSize)
	return c, nil
}

func (c *Cache) shardFor(id StackID) *stackShard {
	return &c.shards[uint64(id)&(numShards-1)]
}

// SaveStackTrace stores a stack trace and returns the canonical capture
// for its content, deduplicated against everything saved before. The
// returned pointer is shared; the caller owns one reference on it and must
// pass it to ReleaseStackTrace exactly once when done.
//
// frames must hold between 1 and MaxFrames program counters; anything else
// is a contract violation and panics. When the provider cannot supply page
// memory for a new stack, SaveStackTrace returns an error wrapping
// ErrNoPageMemory and stores nothing; the cache remains usable.
//
// Performance: a save of already cached content costs the hash, one shard
// lock and one atomic increment. Only new content pays slot acquisition.
//
// Thread Safety: Safe for concurrent calls from multiple goroutines,
// including racing saves of the same content.
func (c *Cache) SaveStackTrace(frames []uintptr) (*StackCapture, error) {
	return c.SaveStackTraceWithID(frames, ComputeStackID(frames))
}

// SaveStackTraceWithID is SaveStackTrace for callers that already hashed
// the frames, typically walkers that compute the identifier during
// capture. id must equal ComputeStackID(frames); the cache trusts it.
//
// Thread Safety: Safe for concurrent calls.
func (c *Cache) SaveStackTraceWithID(frames []uintptr, id StackID) (*StackCapture, error) {
	if c.closed.Load() {
		panic("stackdepot: save on closed cache")
	}
	n := len(frames)
	if n == 0 {
		panic("stackdepot: save of empty stack trace")
	}
	if n > MaxFrames {
		panic("stackdepot: stack trace exceeds MaxFrames")
	}

	sh := c.shardFor(id)

	// Fast path: the stack is already cached, take a reference and go.
	// A hit on a zero-reference entry revives it out of its pending
	// reclamation; the free list drops the stale node lazily.
	sh.mu.Lock()
	if sc, ok := sh.stacks[id]; ok {
		o := saveOutcome{frames: n, revived: sc.refs.Zero()}
		if o.revived {
			o.revivedLen = len(sc.frames)
			o.revivedCap = cap(sc.frames)
		}
		o.nowSaturated = sc.refs.Inc()
		sh.mu.Unlock()
		c.noteSave(o)
		return sc, nil
	}
	sh.mu.Unlock()

	// Slow path: acquire and fill a slot while holding no shard lock,
	// then insert under the lock with a re-check, since another goroutine
	// may have saved the same stack in the meantime.
	sc, o, err := c.getSlot(n)
	if err != nil {
		c.noteFailedSave()
		return nil, errors.Wrapf(ErrNoPageMemory, "save of %d-frame stack: %v", n, err)
	}
	sc.populate(frames, id)

	sh.mu.Lock()
	if winner, ok := sh.stacks[id]; ok {
		wo := saveOutcome{frames: n, pageBytes: o.pageBytes, revived: winner.refs.Zero()}
		if wo.revived {
			wo.revivedLen = len(winner.frames)
			wo.revivedCap = cap(winner.frames)
		}
		wo.nowSaturated = winner.refs.Inc()
		sh.mu.Unlock()
		c.discardSlot(sc, o.fresh)
		c.noteSave(wo)
		return winner, nil
	}
	sh.stacks[id] = sc
	c.notifyNewStack(sc)
	sh.mu.Unlock()
	c.noteSave(o)
	return sc, nil
}

// ReleaseStackTrace returns one reference on a previously saved capture.
// The release that drops the last reference parks the capture's storage on
// a reclaimed list for reuse, unless the capture saturated, in which case
// it is retained forever. The entry itself stays addressable in its shard
// until the storage is actually reused, so an identical save arriving
// before reuse revives the exact same entry.
//
// Releasing a pointer that does not belong to this cache, or releasing an
// entry more times than it was saved, is a contract violation and panics.
//
// Thread Safety: Safe for concurrent calls, including releases of the
// same capture by different reference holders.
func (c *Cache) ReleaseStackTrace(sc *StackCapture) {
	if !c.StackCapturePointerIsValid(sc) {
		panic("stackdepot: release of an invalid stack capture pointer")
	}

	sh := c.shardFor(sc.id)
	sh.mu.Lock()
	if !sc.refs.Dec() {
		sh.mu.Unlock()
		panic("stackdepot: stack capture released more times than referenced")
	}
	if !sc.refs.Zero() {
		sh.mu.Unlock()
		return
	}

	// The death has to reach the statistics before the unlock makes the
	// entry revivable and the put makes its storage reusable; whichever
	// save reverses it posts the reversing delta strictly after this one.
	// statsMu nests inside shard locks as a leaf.
	capacity := cap(sc.frames)
	c.noteRelease(len(sc.frames), capacity)
	sh.mu.Unlock()

	c.reclaimed[capacity].put(sc)
}

// StackCapturePointerIsValid reports whether sc is a live capture owned by
// this cache: carved from one of its pages and not torn down. It does not
// prove the caller holds a reference, only that the pointer is safe to
// hand to ReleaseStackTrace for full checking.
//
// Performance: lock-free, one atomic load and two pointer reads.
//
// Thread Safety: Safe for concurrent calls.
func (c *Cache) StackCapturePointerIsValid(sc *StackCapture) bool {
	if c.closed.Load() {
		return false
	}
	return sc != nil && sc.page != nil && sc.page.cache == c
}

// MaxNumFrames returns the capture depth the cache currently advertises.
// Capture sites consult this before walking a stack.
//
// Thread Safety: Safe for concurrent calls; the depth is a single atomic.
func (c *Cache) MaxNumFrames() int {
	return int(c.maxNumFrames.Load())
}

// SetMaxNumFrames changes the advertised capture depth. It only affects
// future captures; stacks already stored keep their sizes. Values outside
// [1, MaxFrames] panic.
//
// Thread Safety: Safe for concurrent calls, including races with saves.
func (c *Cache) SetMaxNumFrames(n int) {
	if n < 1 || n > MaxFrames {
		panic("stackdepot: max frame count out of range")
	}
	c.maxNumFrames.Store(uint32(n))
}

// getSlot produces an exclusively owned slot with capacity numFrames,
// preferring reclaimed storage of the exact size class over fresh page
// memory. No shard lock may be held by the caller.
func (c *Cache) getSlot(numFrames int) (*StackCapture, saveOutcome, error) {
	o := saveOutcome{frames: numFrames}
	if sc := c.reuseSlot(numFrames); sc != nil {
		o.adopted = true
		return sc, o, nil
	}

	c.pageMu.Lock()
	defer c.pageMu.Unlock()
	if sc := c.currentPage.allocSlot(numFrames, c.metaWords, c.metaBytes); sc != nil {
		o.fresh = true
		return sc, o, nil
	}
	// The current page cannot satisfy the request. Chain a fresh page in
	// front of it; the old page keeps its captures alive until teardown
	// but is never allocated from again.
	pg, err := newCachePage(c, c.currentPage)
	if err != nil {
		return nil, o, err
	}
	c.currentPage = pg
	o.pageBytes = c.pageSize
	sc := pg.allocSlot(numFrames, c.metaWords, c.metaBytes)
	if sc == nil {
		panic("stackdepot: fresh cache page cannot hold a stack capture")
	}
	o.fresh = true
	return sc, o, nil
}

// reuseSlot tries to satisfy a slot request from the reclaimed list of the
// exact size class. A popped slot is only half the story: its entry may
// still be mapped in a shard (the normal case) and may even have been
// revived since it was listed, so the decision to take the storage has to
// happen under the owning shard's lock.
func (c *Cache) reuseSlot(numFrames int) *StackCapture {
	l := &c.reclaimed[numFrames]
	for {
		sc := l.get()
		if sc == nil {
			return nil
		}

		sh := c.shardFor(sc.id)
		sh.mu.Lock()
		if cur, ok := sh.stacks[sc.id]; ok && cur == sc {
			if !sc.refs.Zero() {
				// Revived after it was listed. Hand it back to the list
				// machinery, which also catches a death that raced us.
				sh.mu.Unlock()
				l.settle(sc)
				continue
			}
			// Still dead and still mapped: unmap it so nothing can revive
			// it, then take the storage. The old entry ends here.
			delete(sh.stacks, sc.id)
			sh.mu.Unlock()
			l.adopt(sc)
			c.noteReclaimDeath(cap(sc.frames))
			return sc
		}
		sh.mu.Unlock()

		// The slot is a parked spare from a lost insert race. Spares are
		// never mapped, so nothing can hold or gain a reference to them.
		if !sc.refs.Zero() {
			panic("stackdepot: parked slot has live references")
		}
		l.adopt(sc)
		return sc
	}
}

// discardSlot disposes of a populated slot that lost an insert race. A
// slot that is still the most recent carve of the current page rolls back
// into it, giving the bytes back; everything else parks on its size class
// list as an unmapped spare.
func (c *Cache) discardSlot(sc *StackCapture, fresh bool) {
	sc.refs.Store(0)
	if fresh {
		c.pageMu.Lock()
		returned := c.currentPage.returnSlot(sc)
		c.pageMu.Unlock()
		if returned {
			return
		}
	}
	c.reclaimed[cap(sc.frames)].put(sc)
}

// Close tears the cache down: every page goes back to the provider and
// all captures become invalid. Close is idempotent; with an OS-backed
// provider the frame storage is unmapped.
//
// Thread Safety: Safe for concurrent calls to Close itself. The host must
// make sure no saves, releases or capture reads are in flight or
// attempted afterwards.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.Lock()
		sh.stacks = nil
		sh.mu.Unlock()
	}
	for i := range c.reclaimed {
		c.reclaimed[i].drain()
	}

	c.pageMu.Lock()
	pg := c.currentPage
	c.currentPage = nil
	c.pageMu.Unlock()

	var firstErr error
	for ; pg != nil; pg = pg.prev {
		if err := c.provider.FreePage(pg.buf); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "stackdepot: freeing cache page")
		}
		pg.buf = nil
		c.notifier.OnFree(c.pageSize)
	}
	return firstErr
}
