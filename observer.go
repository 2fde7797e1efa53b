package stackdepot

// StackObserver is notified whenever the cache stores a stack it is not
// currently holding. Hits on existing entries, including revivals of
// zero-reference entries, do not notify.
//
// OnNewStack runs synchronously on the saving goroutine while the
// inserting shard's lock is held, so the new entry is guaranteed to be
// visible and stable for the duration of the call. Implementations must be
// fast, must not call back into the cache, and must not register or
// remove observers.
type StackObserver interface {
	OnNewStack(sc *StackCapture)
}

// AddObserver registers an observer. Observers are compared by identity;
// adding one that is already registered is a no-op. The caller retains
// ownership of the observer.
//
// Thread Safety: Safe for concurrent calls, but not from OnNewStack.
func (c *Cache) AddObserver(obs StackObserver) {
	if obs == nil {
		return
	}
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	for _, o := range c.observers {
		if o == obs {
			return
		}
	}
	c.observers = append(c.observers, obs)
}

// RemoveObserver unregisters an observer. Removing one that was never
// added is a no-op.
//
// Thread Safety: Safe for concurrent calls, but not from OnNewStack.
func (c *Cache) RemoveObserver(obs StackObserver) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	for i, o := range c.observers {
		if o == obs {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

// notifyNewStack delivers sc to every observer in registration order.
// Called with the inserting shard's lock held.
func (c *Cache) notifyNewStack(sc *StackCapture) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, o := range c.observers {
		o.OnNewStack(sc)
	}
}
