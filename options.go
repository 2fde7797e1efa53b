package stackdepot

import "github.com/pkg/errors"

const (
	// MaxFrames is the hard upper bound on the number of frames a single
	// stack capture can hold. It bounds the reclaimed free list array and
	// the per-slot storage carved from cache pages. Callers that walk
	// deeper stacks must truncate before saving.
	MaxFrames = 64

	// DefaultPageSize is the default size of a cache page, in bytes. Pages
	// in the hundreds of KB to low MB range give a pooled allocator that
	// holds hundreds to thousands of captures per page while keeping the
	// incremental growth of the cache modest.
	DefaultPageSize = 1 << 20

	// DefaultCompressionReportingPeriod disables automatic statistics
	// reports. Values around one million work well for allocation-heavy
	// hosts.
	DefaultCompressionReportingPeriod = 0
)

// numShards is the number of independent lookup shards. Stack identifiers
// spread across shards by their low-order bits, so this must be a power of
// two.
const numShards = 16

// Options configures a Cache. The zero value is usable: every field has a
// working default.
type Options struct {
	// MaxNumFrames is the capture depth the cache advertises to its
	// callers through Cache.MaxNumFrames. It can be lowered or raised at
	// runtime (up to MaxFrames) and only affects future captures.
	// Defaults to MaxFrames.
	MaxNumFrames int

	// PageSize is the size of each cache page in bytes. Must be a multiple
	// of the machine word size and large enough to hold one maximal slot
	// (MaxFrames frames plus the metadata reservation).
	// Defaults to DefaultPageSize.
	PageSize int

	// CompressionReportingPeriod is the number of save requests between
	// automatic statistics reports through the Logger. Zero disables
	// automatic reporting. Fixed for the lifetime of the cache.
	CompressionReportingPeriod uint64

	// MetadataSize is the number of zero-initialized bytes reserved
	// directly after the frame storage of every slot, available through
	// StackCapture.Metadata. Defaults to zero (no reservation).
	MetadataSize int

	// Logger receives statistics reports. Defaults to the process seelog
	// logger. Logging failures are never propagated.
	Logger Logger

	// PageProvider supplies and releases page memory. Defaults to
	// HeapPageProvider.
	PageProvider PageProvider

	// MemoryNotifier is informed of page-sized allocations and frees for
	// external accounting. Defaults to a no-op.
	MemoryNotifier MemoryNotifier
}

// withDefaults validates o and fills unset fields with their defaults.
func (o Options) withDefaults() (Options, error) {
	if o.MaxNumFrames == 0 {
		o.MaxNumFrames = MaxFrames
	}
	if o.MaxNumFrames < 1 || o.MaxNumFrames > MaxFrames {
		return o, errors.Errorf("stackdepot: MaxNumFrames %d out of range [1, %d]", o.MaxNumFrames, MaxFrames)
	}
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize < 0 || o.PageSize%wordBytes != 0 {
		return o, errors.Errorf("stackdepot: PageSize %d is not a positive multiple of the word size", o.PageSize)
	}
	if o.MetadataSize < 0 {
		return o, errors.Errorf("stackdepot: negative MetadataSize %d", o.MetadataSize)
	}
	if minWords := MaxFrames + metaWordsFor(o.MetadataSize); o.PageSize/wordBytes < minWords {
		return o, errors.Errorf("stackdepot: PageSize %d cannot hold a maximal stack capture (%d words)", o.PageSize, minWords)
	}
	if o.Logger == nil {
		o.Logger = defaultLogger()
	}
	if o.PageProvider == nil {
		o.PageProvider = HeapPageProvider{}
	}
	if o.MemoryNotifier == nil {
		o.MemoryNotifier = nopMemoryNotifier{}
	}
	return o, nil
}
