//go:build unix

package stackdepot

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// SystemPageProvider allocates pages directly from the operating system
// with anonymous mmap, bypassing the Go heap. Pages served this way are
// invisible to the garbage collector, which keeps very large caches out of
// GC scan work; in exchange, a capture whose frames live in a freed page
// must never be touched after Close.
type SystemPageProvider struct{}

// AllocatePage maps a zero-initialized anonymous region of the requested
// size.
func (SystemPageProvider) AllocatePage(bytes int) ([]uintptr, error) {
	if bytes <= 0 || bytes%wordBytes != 0 {
		return nil, errors.Errorf("stackdepot: bad page size %d", bytes)
	}
	data, err := unix.Mmap(-1, 0, bytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "stackdepot: mmap page")
	}
	return unsafe.Slice((*uintptr)(unsafe.Pointer(&data[0])), len(data)/wordBytes), nil
}

// FreePage unmaps a page previously returned by AllocatePage.
func (SystemPageProvider) FreePage(page []uintptr) error {
	if len(page) == 0 {
		return errors.New("stackdepot: free of nil page")
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&page[0])), len(page)*wordBytes)
	return errors.Wrap(unix.Munmap(data), "stackdepot: munmap page")
}
