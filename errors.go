package stackdepot

import "github.com/pkg/errors"

// Package-level error values.
var (
	// ErrNoPageMemory is returned by the save operations when every
	// reclaimed slot of the needed size class is taken, the current page is
	// exhausted and the page provider cannot supply a fresh page. The cache
	// stays fully usable; the failed save simply stored nothing.
	ErrNoPageMemory = errors.New("stackdepot: page provider out of memory")
)
