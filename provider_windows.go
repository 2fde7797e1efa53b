//go:build windows

package stackdepot

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// SystemPageProvider allocates pages directly from the operating system
// with VirtualAlloc, bypassing the Go heap. Pages served this way are
// invisible to the garbage collector, which keeps very large caches out of
// GC scan work; in exchange, a capture whose frames live in a freed page
// must never be touched after Close.
type SystemPageProvider struct{}

// AllocatePage commits a zero-initialized region of the requested size.
func (SystemPageProvider) AllocatePage(bytes int) ([]uintptr, error) {
	if bytes <= 0 || bytes%wordBytes != 0 {
		return nil, errors.Errorf("stackdepot: bad page size %d", bytes)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(bytes), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, errors.Wrap(err, "stackdepot: VirtualAlloc page")
	}
	return unsafe.Slice((*uintptr)(unsafe.Pointer(addr)), bytes/wordBytes), nil
}

// FreePage releases a page previously returned by AllocatePage.
func (SystemPageProvider) FreePage(page []uintptr) error {
	if len(page) == 0 {
		return errors.New("stackdepot: free of nil page")
	}
	addr := uintptr(unsafe.Pointer(&page[0]))
	return errors.Wrap(windows.VirtualFree(addr, 0, windows.MEM_RELEASE), "stackdepot: VirtualFree page")
}
