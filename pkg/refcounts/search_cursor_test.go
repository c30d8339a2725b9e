package refcounts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindZeroByteInWord(t *testing.T) {
	require.Equal(t, 0, findZeroByteInWord([8]byte{0, 1, 1, 1, 1, 1, 1, 1}))
	require.Equal(t, 3, findZeroByteInWord([8]byte{9, 9, 9, 0, 9, 9, 9, 9}))
	require.Equal(t, -1, findZeroByteInWord([8]byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestFindFreeCounterInBlock(t *testing.T) {
	block := &referenceBlock{counters: make([]Counter, 64)}
	for i := range block.counters {
		block.counters[i] = 1
	}
	block.allocatedCount = 64
	_, ok := findFreeCounterInBlock(block, 0, 64)
	require.False(t, ok, "a full block must report no free counter")

	block.counters[40] = EmptyReferenceCount
	block.allocatedCount = 63
	index, ok := findFreeCounterInBlock(block, 0, 64)
	require.True(t, ok)
	require.Equal(t, 40, index)

	// Search starting after the free counter must not find it again.
	_, ok = findFreeCounterInBlock(block, 41, 64)
	require.False(t, ok)
}

func TestSearchCursorAdvanceWraps(t *testing.T) {
	blocks := []*referenceBlock{
		{index: 0, counters: make([]Counter, 64)},
		{index: 1, counters: make([]Counter, 64)},
	}
	cursor := newSearchCursor(blocks, 128, 64)
	require.Equal(t, 0, cursor.blockIndex)

	wrapped := cursor.advance(128, 64)
	require.True(t, wrapped)
	require.Equal(t, 1, cursor.blockIndex)

	wrapped = cursor.advance(128, 64)
	require.False(t, wrapped)
	require.Equal(t, 0, cursor.blockIndex)
}

func TestRuntBoundary(t *testing.T) {
	// block_count = 100, countsPerBlock = 64: block 0 is full, block 1
	// is a runt of 36 counters.
	require.Equal(t, 64, runtBoundary(0, 100, 64))
	require.Equal(t, 36, runtBoundary(1, 100, 64))
}
