package stackdepot

import (
	"unsafe"

	"github.com/pkg/errors"
)

// wordBytes is the size of a machine word, the allocation granularity of
// cache pages.
const wordBytes = int(unsafe.Sizeof(uintptr(0)))

// metaWordsFor returns the number of arena words needed to hold a metadata
// reservation of the given byte size.
func metaWordsFor(metaBytes int) int {
	return (metaBytes + wordBytes - 1) / wordBytes
}

// cachePage is one fixed-size arena of frame storage. New slots are carved
// off by advancing a word cursor; the cursor never moves backwards except
// to roll back the single most recent carve. Superseded pages stay linked
// for teardown, and whatever tail they had left goes unused.
type cachePage struct {
	cache *Cache
	prev  *cachePage

	buf  []uintptr // provider-backed arena
	used int       // words consumed

	// Most recent carve, for rollback of insert-race losers.
	lastSlot  *StackCapture
	lastWords int
}

// newCachePage obtains one page from the cache's provider and links it in
// front of prev.
func newCachePage(c *Cache, prev *cachePage) (*cachePage, error) {
	buf, err := c.provider.AllocatePage(c.pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "stackdepot: allocating cache page")
	}
	if len(buf) != c.pageSize/wordBytes {
		return nil, errors.Errorf("stackdepot: provider returned %d words, want %d", len(buf), c.pageSize/wordBytes)
	}
	c.notifier.OnAllocation(c.pageSize)
	return &cachePage{cache: c, prev: prev, buf: buf}, nil
}

// allocSlot carves storage for numFrames frames plus the page's metadata
// reservation and wraps it in a fresh StackCapture header. Returns nil if
// the page cannot satisfy the request.
func (pg *cachePage) allocSlot(numFrames, metaWords, metaBytes int) *StackCapture {
	need := numFrames + metaWords
	if pg.used+need > len(pg.buf) {
		return nil
	}
	start := pg.used
	frames := pg.buf[start : start+numFrames : start+numFrames]
	sc := &StackCapture{
		frames: frames[:0],
		page:   pg,
	}
	if metaWords > 0 {
		mw := pg.buf[start+numFrames : start+need]
		sc.meta = unsafe.Slice((*byte)(unsafe.Pointer(&mw[0])), len(mw)*wordBytes)[:metaBytes]
	}
	pg.used += need
	pg.lastSlot = sc
	pg.lastWords = need
	return sc
}

// returnSlot rolls back the most recent carve, making its words available
// again. Only the most recent carve can be returned; anything older has to
// go through a reclaimed list instead. The returned words are re-zeroed so
// the page keeps the zero-initialized invariant for future carves.
func (pg *cachePage) returnSlot(sc *StackCapture) bool {
	if sc == nil || pg.lastSlot != sc {
		return false
	}
	pg.used -= pg.lastWords
	clear(pg.buf[pg.used : pg.used+pg.lastWords])
	pg.lastSlot = nil
	pg.lastWords = 0
	return true
}

// bytesUsed returns the bytes consumed on this page.
func (pg *cachePage) bytesUsed() int {
	return pg.used * wordBytes
}

// bytesLeft returns the bytes still available on this page.
func (pg *cachePage) bytesLeft() int {
	return (len(pg.buf) - pg.used) * wordBytes
}
