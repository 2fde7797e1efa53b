package stackdepot

// Statistics is a snapshot of cache-wide counters. The first group are
// gauges describing the cache as it is right now; the second group are
// lifetime totals that only ever grow. All fields are 64 bits wide because
// the totals overflow 32 bits in long-running processes.
type Statistics struct {
	// Cached is the number of stack captures resident in the cache,
	// whether referenced, unreferenced or saturated.
	Cached uint64
	// Size is the total page memory held by the cache, in bytes.
	Size uint64
	// Saturated is the number of captures whose reference count pinned at
	// its maximum. These can never leave the cache.
	Saturated uint64
	// Unreferenced is the number of captures currently at zero references,
	// parked on the reclaimed lists until reused or revived.
	Unreferenced uint64

	// Requested is the lifetime number of save requests, including ones
	// that failed for lack of page memory.
	Requested uint64
	// Allocated is the lifetime number of captures manufactured from page
	// storage. Reuse of a reclaimed slot does not count.
	Allocated uint64
	// References is the lifetime number of references handed out.
	References uint64

	// FramesStored is the lifetime number of frames accepted across all
	// saves. It double counts shared captures by the number of times they
	// were requested, which is what makes the compression ratio work.
	FramesStored uint64
	// FramesAlive is the number of frames physically stored in captures
	// that are referenced or saturated. No double counting.
	FramesAlive uint64
	// FramesDead is the number of frame slots parked in unreferenced
	// captures, measured by slot capacity.
	FramesDead uint64
}

// CompressionRatio returns FramesStored over FramesAlive: the average
// number of times each physically stored frame has been requested. An
// empty cache reports 1.
//
// Thread Safety: Pure function of the snapshot, no shared state.
func (s Statistics) CompressionRatio() float64 {
	if s.FramesAlive == 0 {
		return 1
	}
	return float64(s.FramesStored) / float64(s.FramesAlive)
}

// saveOutcome describes one completed save for statistics accounting.
// At most one of fresh and adopted is set; neither means the save hit an
// existing live entry.
type saveOutcome struct {
	frames    int
	pageBytes int // page growth during this save

	fresh   bool // slot carved from a page
	adopted bool // slot reused from a reclaimed list

	revived                bool // hit on a zero-reference mapped entry
	revivedLen, revivedCap int

	nowSaturated bool
}

// noteSave applies the statistics delta of one successful save and fires
// the periodic report if the save crossed the reporting period.
func (c *Cache) noteSave(o saveOutcome) {
	c.statsMu.Lock()
	s := &c.stats
	s.Requested++
	s.References++
	s.FramesStored += uint64(o.frames)
	s.Size += uint64(o.pageBytes)
	switch {
	case o.fresh:
		s.Allocated++
		s.Cached++
		s.FramesAlive += uint64(o.frames)
	case o.adopted:
		// The adopted slot's previous life, if it had one, was already
		// written off by noteReclaimDeath when the slot was unmapped.
		s.Cached++
		s.FramesAlive += uint64(o.frames)
	}
	if o.revived {
		s.Unreferenced--
		s.FramesDead -= uint64(o.revivedCap)
		s.FramesAlive += uint64(o.revivedLen)
	}
	if o.nowSaturated {
		s.Saturated++
	}
	snap, report := c.maybeReportLocked()
	c.statsMu.Unlock()

	if report {
		c.logStatistics(snap)
	}
}

// noteFailedSave records a save that could not allocate storage.
func (c *Cache) noteFailedSave() {
	c.statsMu.Lock()
	c.stats.Requested++
	snap, report := c.maybeReportLocked()
	c.statsMu.Unlock()

	if report {
		c.logStatistics(snap)
	}
}

// noteReclaimDeath records the destruction of a zero-reference entry whose
// mapping was just removed so its storage can be reused.
func (c *Cache) noteReclaimDeath(capacity int) {
	c.statsMu.Lock()
	c.stats.Cached--
	c.stats.Unreferenced--
	c.stats.FramesDead -= uint64(capacity)
	c.statsMu.Unlock()
}

// noteRelease records the release that dropped an entry to zero
// references. Releases that leave references behind change no gauge and go
// unrecorded. Called with the dying entry's shard lock held, so the death
// is in the statistics before the entry becomes revivable or reusable.
func (c *Cache) noteRelease(length, capacity int) {
	c.statsMu.Lock()
	c.stats.Unreferenced++
	c.stats.FramesAlive -= uint64(length)
	c.stats.FramesDead += uint64(capacity)
	c.statsMu.Unlock()
}

// maybeReportLocked decides whether this request crossed the compression
// reporting period. Called with statsMu held; the actual logging happens
// after the lock is dropped.
func (c *Cache) maybeReportLocked() (Statistics, bool) {
	if c.reportingPeriod == 0 || c.stats.Requested%c.reportingPeriod != 0 {
		return Statistics{}, false
	}
	return c.stats, true
}

// GetStatistics returns a snapshot of the cache statistics. All fields are
// read together under one lock, so the gauges are consistent with each
// other at a single instant.
//
// Performance: O(1), one mutex acquisition and a struct copy.
//
// Thread Safety: Safe for concurrent calls.
func (c *Cache) GetStatistics() Statistics {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// LogStatistics writes the current statistics through the cache logger.
//
// Thread Safety: Safe for concurrent calls from any goroutine.
func (c *Cache) LogStatistics() {
	c.logStatistics(c.GetStatistics())
}

func (c *Cache) logStatistics(s Statistics) {
	c.logger.Infof(
		"stack capture cache: cached=%d size=%d saturated=%d unreferenced=%d requested=%d allocated=%d references=%d frames_stored=%d frames_alive=%d frames_dead=%d compression=%.2fx",
		s.Cached, s.Size, s.Saturated, s.Unreferenced,
		s.Requested, s.Allocated, s.References,
		s.FramesStored, s.FramesAlive, s.FramesDead,
		s.CompressionRatio())
}
