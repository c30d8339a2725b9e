package refcounts

// searchCursor is a round-robin cursor over the reference-block vector,
// accelerating free-block search by remembering where the previous
// search left off (§4.3). The zero value is not usable; use
// newSearchCursor.
type searchCursor struct {
	blocks []*referenceBlock

	// blockIndex is the index into blocks that the cursor currently
	// points at.
	blockIndex int

	// index is the next counter offset, within the current block, to
	// examine.
	index int

	// endIndex is the exclusive upper bound of valid counters in the
	// current block (less than len(block.counters) only for the runt
	// last block).
	endIndex int
}

func newSearchCursor(blocks []*referenceBlock, blockCount, countsPerBlock int) *searchCursor {
	c := &searchCursor{blocks: blocks}
	c.reset(blockCount, countsPerBlock)
	return c
}

// reset points the cursor at the first reference block.
func (c *searchCursor) reset(blockCount, countsPerBlock int) {
	c.blockIndex = 0
	c.index = 0
	c.endIndex = runtBoundary(0, blockCount, countsPerBlock)
}

// runtBoundary returns the number of valid counters in reference block
// blockIndex, accounting for the last block possibly being a runt.
func runtBoundary(blockIndex, blockCount, countsPerBlock int) int {
	remaining := blockCount - blockIndex*countsPerBlock
	if remaining > countsPerBlock {
		return countsPerBlock
	}
	return remaining
}

// advance moves the cursor to the next reference block, recomputing
// endIndex for the new block. It returns false if doing so wrapped back
// around to the first block, signalling that a full sweep completed
// without finding a free counter.
func (c *searchCursor) advance(blockCount, countsPerBlock int) bool {
	c.blockIndex++
	c.index = 0
	if c.blockIndex >= len(c.blocks) {
		c.blockIndex = 0
		c.endIndex = runtBoundary(0, blockCount, countsPerBlock)
		return false
	}
	c.endIndex = runtBoundary(c.blockIndex, blockCount, countsPerBlock)
	return true
}

// currentBlock returns the reference block the cursor currently points
// at.
func (c *searchCursor) currentBlock() *referenceBlock {
	return c.blocks[c.blockIndex]
}

// findZeroByteInWord scans an 8-byte little-endian word low-to-high for
// the first zero byte, returning its offset within the word (0..7), or
// -1 if the word has none. Grounded on
// original_source/utils/vdo/base/refCounts.c's find_zero_byte_in_word,
// which exploits the fact that a free counter is exactly byte value 0.
func findZeroByteInWord(word [8]byte) int {
	for i, b := range word {
		if b == EmptyReferenceCount.byteValue() {
			return i
		}
	}
	return -1
}

// byteValue exposes the raw byte value of a Counter for the word-search
// helper, which operates below the Counter abstraction on raw bytes.
func (c Counter) byteValue() byte {
	return byte(c)
}

// findFreeCounterInBlock searches block's counters, starting at
// startIndex, for the first EmptyReferenceCount byte, reading one
// aligned word at a time (with a scalar prefix for the unaligned
// lead-in). It returns
// the found index and true, or (0, false) if none exists before
// endIndex.
func findFreeCounterInBlock(block *referenceBlock, startIndex, endIndex int) (int, bool) {
	if block.isFull() {
		return 0, false
	}

	i := startIndex
	// Unrolled scalar prefix until word-aligned.
	for i < endIndex && i%8 != 0 {
		if block.counters[i] == EmptyReferenceCount {
			return i, true
		}
		i++
	}

	// Word-stepped body. Reads stay within the block's full-length
	// counters slice, so they are safe even when i+8 > endIndex; in a
	// runt last block the counters past endIndex lie beyond
	// block_count, and a zero found there is not returned (only
	// results strictly less than endIndex are).
	for i+8 <= len(block.counters) {
		var word [8]byte
		copy(word[:], block.counters[i:i+8])
		if off := findZeroByteInWord(word); off >= 0 {
			found := i + off
			if found < endIndex {
				return found, true
			}
			break
		}
		i += 8
	}

	// Scalar tail for any counters below endIndex that the
	// word-stepped body did not cover (when the counters slice length
	// is not a multiple of 8).
	for ; i < endIndex; i++ {
		if block.counters[i] == EmptyReferenceCount {
			return i, true
		}
	}
	return 0, false
}
