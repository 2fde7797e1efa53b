package stackdepot

import "github.com/pkg/errors"

// PageProvider supplies the backing memory for cache pages. Pages are
// word arenas: the cache carves frame and metadata storage out of them and
// never resizes or partially frees one.
//
// AllocatePage must return a zero-initialized buffer of exactly bytes/
// wordBytes words. FreePage receives exactly the slice AllocatePage
// returned; it is only called during Close, once per page.
//
// Thread Safety: the cache serializes all provider calls internally, so
// implementations need no locking of their own.
type PageProvider interface {
	AllocatePage(bytes int) ([]uintptr, error)
	FreePage(page []uintptr) error
}

// HeapPageProvider allocates pages from the Go heap. Freed pages are left
// for the garbage collector. This is the default provider.
type HeapPageProvider struct{}

// AllocatePage returns a zeroed word buffer of the requested size.
func (HeapPageProvider) AllocatePage(bytes int) ([]uintptr, error) {
	if bytes <= 0 || bytes%wordBytes != 0 {
		return nil, errors.Errorf("stackdepot: bad page size %d", bytes)
	}
	return make([]uintptr, bytes/wordBytes), nil
}

// FreePage drops the page reference; the garbage collector reclaims it.
func (HeapPageProvider) FreePage(page []uintptr) error {
	if page == nil {
		return errors.New("stackdepot: free of nil page")
	}
	return nil
}
