package refcount

import "testing"

// TestIncDecBasic verifies ordinary counting behavior far from the
// saturation point.
func TestIncDecBasic(t *testing.T) {
	var c Count

	if !c.Zero() {
		t.Fatal("new counter should be zero")
	}

	for i := 1; i <= 5; i++ {
		if sat := c.Inc(); sat {
			t.Fatalf("Inc %d unexpectedly reported saturation", i)
		}
		if got := c.Load(); got != uint32(i) {
			t.Fatalf("Load = %d, want %d", got, i)
		}
	}

	for i := 4; i >= 0; i-- {
		if !c.Dec() {
			t.Fatalf("Dec at count %d reported underflow", i+1)
		}
		if got := c.Load(); got != uint32(i) {
			t.Fatalf("Load = %d, want %d", got, i)
		}
	}

	if !c.Zero() {
		t.Fatal("counter should be zero after matched Inc/Dec pairs")
	}
}

// TestDecUnderflow verifies that decrementing an empty counter is refused
// rather than wrapping around.
func TestDecUnderflow(t *testing.T) {
	var c Count

	if c.Dec() {
		t.Fatal("Dec on zero counter should report underflow")
	}
	if got := c.Load(); got != 0 {
		t.Fatalf("underflowing Dec changed count to %d", got)
	}
}

// TestSaturation verifies the pinning behavior at Max: the increment that
// reaches Max reports saturation exactly once, and afterwards neither
// increments nor decrements move the counter.
func TestSaturation(t *testing.T) {
	var c Count
	c.Store(Max - 1)

	if sat := c.Inc(); !sat {
		t.Fatal("increment reaching Max should report saturation")
	}
	if !c.Saturated() {
		t.Fatal("counter should be saturated at Max")
	}

	// Pinned: further increments are no-ops and never re-report saturation.
	if sat := c.Inc(); sat {
		t.Fatal("increment of saturated counter re-reported saturation")
	}
	if got := c.Load(); got != Max {
		t.Fatalf("saturated counter moved to %d", got)
	}

	// Pinned: decrements are accepted but ignored.
	for i := 0; i < 3; i++ {
		if !c.Dec() {
			t.Fatal("Dec on saturated counter should not report underflow")
		}
	}
	if got := c.Load(); got != Max {
		t.Fatalf("saturated counter decremented to %d", got)
	}
	if c.Zero() {
		t.Fatal("saturated counter can never read as zero")
	}
}

// TestStoreRecycle verifies the populate/recycle transitions used by the
// cache when slots are handed out and returned.
func TestStoreRecycle(t *testing.T) {
	var c Count

	c.Store(1)
	if c.Zero() || c.Saturated() {
		t.Fatal("freshly populated counter should hold exactly one reference")
	}

	c.Store(0)
	if !c.Zero() {
		t.Fatal("recycled counter should be zero")
	}
}

// BenchmarkIncDec measures a paired reference acquire/release, the common
// lifecycle of a cached stack.
func BenchmarkIncDec(b *testing.B) {
	var c Count
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Inc()
		c.Dec()
	}
}
