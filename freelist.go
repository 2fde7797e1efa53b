package stackdepot

import "sync"

// reclaimedList is one size class of slots whose reference count dropped
// to zero. Slots link intrusively through their next field; the reclaimed
// flag keeps a slot from being linked twice.
//
// The list is deliberately dumb: it does not know whether a listed slot
// has since been revived by a save hit on its still-mapped identifier.
// That arbitration needs the owning shard lock, so it happens in the cache
// after pop (see Cache.reuseSlot).
type reclaimedList struct {
	mu   sync.Mutex
	head *StackCapture
}

// put links a zero-reference slot into the list. If the slot is already
// listed, or held off-list by an arbitrating reuser, this is a no-op and
// reports false; the arbiter relists it if needed (see settle).
func (l *reclaimedList) put(sc *StackCapture) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sc.reclaimed {
		return false
	}
	sc.reclaimed = true
	sc.next = l.head
	l.head = sc
	return true
}

// get unlinks and returns the most recently listed slot, or nil. The slot
// keeps its reclaimed flag while the caller arbitrates, so that a
// concurrent release cannot link it a second time. Every successful get
// must be followed by exactly one adopt or settle.
func (l *reclaimedList) get() *StackCapture {
	l.mu.Lock()
	defer l.mu.Unlock()
	sc := l.head
	if sc == nil {
		return nil
	}
	l.head = sc.next
	sc.next = nil
	return sc
}

// adopt finishes an arbitration that decided to reuse the slot's storage.
// The slot leaves the free list system entirely.
func (l *reclaimedList) adopt(sc *StackCapture) {
	l.mu.Lock()
	sc.reclaimed = false
	l.mu.Unlock()
}

// settle finishes an arbitration that found the slot revived. If the slot
// died again in the meantime its release was a no-op (the flag was still
// set), so it goes straight back on the list; otherwise the flag is
// dropped and the next release will list it normally.
func (l *reclaimedList) settle(sc *StackCapture) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sc.refs.Zero() {
		sc.next = l.head
		l.head = sc
		return
	}
	sc.reclaimed = false
}

// drain empties the list during teardown.
func (l *reclaimedList) drain() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sc := l.head; sc != nil; {
		next := sc.next
		sc.next = nil
		sc.reclaimed = false
		sc = next
	}
	l.head = nil
}
