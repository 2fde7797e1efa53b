package stackdepot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver collects the identifiers it was notified about.
// Notifications arrive under a shard lock, so no extra locking is needed
// for single-goroutine tests.
type recordingObserver struct {
	ids []StackID
}

func (o *recordingObserver) OnNewStack(sc *StackCapture) {
	o.ids = append(o.ids, sc.StackID())
}

func TestObserverNotifiedOnNewStacksOnly(t *testing.T) {
	c, err := New(Options{Logger: nopLogger{}})
	require.NoError(t, err)
	defer c.Close()

	obs := &recordingObserver{}
	c.AddObserver(obs)

	frames := testFrames(4, 1)
	sc, err := c.SaveStackTrace(frames)
	require.NoError(t, err)
	require.Len(t, obs.ids, 1, "one notification per new stack")
	assert.Equal(t, sc.StackID(), obs.ids[0])

	// A deduplicating hit is not a new stack.
	_, err = c.SaveStackTrace(frames)
	require.NoError(t, err)
	assert.Len(t, obs.ids, 1)

	// Neither is a revival of a dead but resident entry.
	c.ReleaseStackTrace(sc)
	c.ReleaseStackTrace(sc)
	_, err = c.SaveStackTrace(frames)
	require.NoError(t, err)
	assert.Len(t, obs.ids, 1)

	// A different stack notifies again.
	_, err = c.SaveStackTrace(testFrames(4, 2))
	require.NoError(t, err)
	assert.Len(t, obs.ids, 2)
}

func TestObserverIdentityDeduplicated(t *testing.T) {
	c, err := New(Options{Logger: nopLogger{}})
	require.NoError(t, err)
	defer c.Close()

	obs := &recordingObserver{}
	c.AddObserver(obs)
	c.AddObserver(obs)
	c.AddObserver(nil)

	_, err = c.SaveStackTrace(testFrames(3, 1))
	require.NoError(t, err)
	assert.Len(t, obs.ids, 1, "double registration must not double notify")
}

func TestObserverRemove(t *testing.T) {
	c, err := New(Options{Logger: nopLogger{}})
	require.NoError(t, err)
	defer c.Close()

	first := &recordingObserver{}
	second := &recordingObserver{}
	c.AddObserver(first)
	c.AddObserver(second)

	_, err = c.SaveStackTrace(testFrames(3, 1))
	require.NoError(t, err)
	require.Len(t, first.ids, 1)
	require.Len(t, second.ids, 1)

	c.RemoveObserver(first)
	c.RemoveObserver(first) // removing twice is a no-op

	_, err = c.SaveStackTrace(testFrames(3, 2))
	require.NoError(t, err)
	assert.Len(t, first.ids, 1, "removed observer must not hear new stacks")
	assert.Len(t, second.ids, 2)
}

func TestObserverOrder(t *testing.T) {
	c, err := New(Options{Logger: nopLogger{}})
	require.NoError(t, err)
	defer c.Close()

	var order []int
	a := observerFunc{mark: func() { order = append(order, 1) }}
	b := observerFunc{mark: func() { order = append(order, 2) }}
	c.AddObserver(&a)
	c.AddObserver(&b)

	_, err = c.SaveStackTrace(testFrames(2, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, order, "observers fire in registration order")
}

type observerFunc struct {
	mark func()
}

func (o *observerFunc) OnNewStack(*StackCapture) { o.mark() }
