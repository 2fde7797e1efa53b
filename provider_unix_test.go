//go:build unix

package stackdepot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPageProvider(t *testing.T) {
	var p SystemPageProvider

	page, err := p.AllocatePage(256 * wordBytes)
	require.NoError(t, err)
	require.Len(t, page, 256)
	for i, w := range page {
		require.Zerof(t, w, "word %d not zero-initialized", i)
	}

	// Mapped pages are ordinary writable memory.
	page[0] = 0xdeadbeef
	page[255] = 42
	assert.EqualValues(t, 0xdeadbeef, page[0])

	require.NoError(t, p.FreePage(page))
}

func TestSystemPageProviderRejectsBadSizes(t *testing.T) {
	var p SystemPageProvider

	_, err := p.AllocatePage(0)
	assert.Error(t, err)
	_, err = p.AllocatePage(wordBytes + 1)
	assert.Error(t, err)

	assert.Error(t, p.FreePage(nil))
}

func TestCacheOnSystemPages(t *testing.T) {
	c, err := New(Options{
		PageSize:     4096,
		PageProvider: SystemPageProvider{},
		Logger:       nopLogger{},
	})
	require.NoError(t, err)

	frames := testFrames(10, 1)
	sc, err := c.SaveStackTrace(frames)
	require.NoError(t, err)
	assert.Equal(t, frames, sc.Frames())

	c.ReleaseStackTrace(sc)
	require.NoError(t, c.Close())
}
