// Package stackdepot provides a thread-safe, deduplicating cache of call
// stack traces for memory error detection runtimes.
//
// Detectors that track heap blocks attach an allocation stack and a free
// stack to every block they watch. Across a program run the same few
// thousand stacks recur millions of times; storing each copy separately
// would dwarf the heap being watched. The depot stores every distinct
// stack exactly once and hands out shared, reference-counted handles
// instead, so the marginal cost of one more identical stack is a counter
// bump.
//
// # Quick Start
//
//	cache, err := stackdepot.New(stackdepot.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer cache.Close()
//
//	pcs := make([]uintptr, cache.MaxNumFrames())
//	pcs = pcs[:runtime.Callers(1, pcs)]
//
//	sc, err := cache.SaveStackTrace(pcs)
//	if err != nil {
//		log.Fatal(err)
//	}
//	// Attach sc to the tracked heap block. When the block is freed:
//	cache.ReleaseStackTrace(sc)
//
// # API Overview
//
// The package provides:
//   - Saving and releasing stacks: [Cache.SaveStackTrace],
//     [Cache.SaveStackTraceWithID], [Cache.ReleaseStackTrace]
//   - Handle inspection: [StackCapture], [Cache.StackCapturePointerIsValid]
//   - Content hashing: [ComputeStackID]
//   - Storage backends: [PageProvider], [HeapPageProvider], [SystemPageProvider]
//   - Accounting: [Cache.GetStatistics], [Cache.LogStatistics], [MemoryNotifier]
//   - Event hooks: [StackObserver]
//
// # How It Works
//
// A stack's identity is the 64-bit content hash of its program counters.
// Saves look the hash up in a sharded table; a hit bumps the existing
// capture's reference count, a miss carves a new capture out of bump
// allocated page memory and inserts it. Releases drop the count, and a
// capture whose count reaches zero parks its storage on a free list keyed
// by frame count, where a later save of the same size can reclaim it.
// Reference counts saturate rather than overflow: a capture referenced
// 4294967295 times is pinned for the rest of the process.
package stackdepot
