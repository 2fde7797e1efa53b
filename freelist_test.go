package stackdepot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReclaimedListPutGet(t *testing.T) {
	var l reclaimedList
	a := &StackCapture{}
	b := &StackCapture{}

	require.Nil(t, l.get(), "empty list must pop nil")

	assert.True(t, l.put(a))
	assert.True(t, l.put(b))

	// LIFO: the most recently parked slot comes back first, keeping reuse
	// on the warmest storage.
	got := l.get()
	require.Same(t, b, got)
	l.adopt(got)
	got = l.get()
	require.Same(t, a, got)
	l.adopt(got)
	require.Nil(t, l.get())
}

func TestReclaimedListDoublePut(t *testing.T) {
	var l reclaimedList
	a := &StackCapture{}

	require.True(t, l.put(a))
	assert.False(t, l.put(a), "second put of a listed slot must be a no-op")

	require.Same(t, a, l.get())
	l.adopt(a)
	require.Nil(t, l.get(), "double put must not duplicate the slot")
}

func TestReclaimedListGetKeepsFlag(t *testing.T) {
	var l reclaimedList
	a := &StackCapture{}

	require.True(t, l.put(a))
	require.Same(t, a, l.get())

	// While the popped slot is under arbitration a racing release must not
	// be able to list it again.
	assert.False(t, l.put(a))
	require.Nil(t, l.get())

	l.adopt(a)
	assert.False(t, a.reclaimed)
}

func TestReclaimedListSettle(t *testing.T) {
	var l reclaimedList

	// Revived and still referenced: settle just drops the flag so the next
	// real death can list the slot again.
	alive := &StackCapture{}
	alive.refs.Store(2)
	require.True(t, l.put(alive))
	require.Same(t, alive, l.get())
	l.settle(alive)
	assert.False(t, alive.reclaimed)
	require.Nil(t, l.get())
	alive.refs.Store(0)
	require.True(t, l.put(alive))

	// Revived but dead again by settle time: the no-op'd put is made up
	// for by relisting.
	dead := &StackCapture{}
	require.True(t, l.put(dead))
	require.Same(t, dead, l.get())
	l.settle(dead)
	assert.True(t, dead.reclaimed)
	require.Same(t, dead, l.get())
	l.adopt(dead)
}

func TestReclaimedListDrain(t *testing.T) {
	var l reclaimedList
	a := &StackCapture{}
	b := &StackCapture{}
	require.True(t, l.put(a))
	require.True(t, l.put(b))

	l.drain()

	assert.Nil(t, l.get())
	assert.False(t, a.reclaimed)
	assert.False(t, b.reclaimed)
	assert.Nil(t, a.next)
	assert.Nil(t, b.next)
}
