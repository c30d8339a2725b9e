// Package refcounts implements the per-slab reference-count engine of a
// block-virtualization storage system: the allocator of a slab's
// physical blocks, the enforcer of reference-count correctness, and the
// durability manager that writes dirty reference blocks back to media
// under slab journal coordination.
package refcounts

import (
	"fmt"

	"github.com/buildbarn/vdo-refcounts/pkg/slab"
	"github.com/buildbarn/vdo-refcounts/pkg/util"
)

// paddingBytes is the number of extra counter bytes appended beyond the
// last reference block's full length. findFreeCounterInBlock does not
// read them: it bounds its 8-byte word reads by the length of the
// block's own counters slice. The counter array is allocated
// at referenceBlockCount*CountsPerBlock+paddingBytes, not
// blockCount+paddingBytes, so that a runt last block (blockCount not a
// multiple of CountsPerBlock, the common case) still gets a
// full-length counters slice, matching the original's allocation of
// "ref_block_count * counts_per_block + 2 * BYTES_PER_WORD".
const paddingBytes = 2 * 8

// RefCounts is the reference-count engine for a single slab. It is not
// safe for concurrent use: per §5, every operation is expected to run
// on the slab's single owning thread.
type RefCounts struct {
	cfg       Config
	info      slab.Info
	originPBN uint64
	blockCount uint64

	journal        slab.Journal
	summaryZone    slab.SummaryZone
	descriptorPool slab.DescriptorPool
	readOnly       slab.ReadOnlyNotifier
	errorLogger    util.ErrorLogger
	stats          *Statistics
	metrics        *metricsVec

	// counters is the flat counter array, including trailing padding.
	counters []Counter

	// blocks is the reference-block vector; each entry's counters
	// field is a sub-slice of counters.
	blocks []*referenceBlock

	cursor *searchCursor
	dirty  *dirtyQueue

	freeBlocks uint64

	activeCount          int
	updatingSlabSummary  bool
	slabJournalPoint     slab.JournalPoint
}

// NewRefCounts creates a ref-counts object covering blockCount
// consecutive physical blocks starting at originPBN, per §3's
// construction contract "(block_count, slab, origin_pbn)". The
// collaborators (journal, summaryZone, descriptorPool, readOnly) are
// borrowed, never owned.
func NewRefCounts(
	cfg Config,
	info slab.Info,
	originPBN uint64,
	blockCount uint64,
	journal slab.Journal,
	summaryZone slab.SummaryZone,
	descriptorPool slab.DescriptorPool,
	readOnly slab.ReadOnlyNotifier,
	errorLogger util.ErrorLogger,
) (*RefCounts, error) {
	if cfg.CountsPerBlock <= 0 || cfg.SectorsPerBlock <= 0 || cfg.CountsPerBlock%cfg.SectorsPerBlock != 0 {
		return nil, errInternal("invalid config: CountsPerBlock=%d must be a positive multiple of SectorsPerBlock=%d", cfg.CountsPerBlock, cfg.SectorsPerBlock)
	}

	referenceBlockCount := int(GetSavedReferenceCountSize(cfg, blockCount))

	rc := &RefCounts{
		cfg:         cfg,
		info:        info,
		originPBN:   originPBN,
		blockCount:  blockCount,
		journal:     journal,
		summaryZone: summaryZone,
		descriptorPool: descriptorPool,
		readOnly:    readOnly,
		errorLogger: errorLogger,
		stats:       newStatistics(),
		metrics:     newMetricsVec(),
		counters:    make([]Counter, referenceBlockCount*cfg.CountsPerBlock+paddingBytes),
		dirty:       newDirtyQueue(),
		freeBlocks:  blockCount,
	}

	rc.blocks = make([]*referenceBlock, referenceBlockCount)
	for i := 0; i < referenceBlockCount; i++ {
		start := i * cfg.CountsPerBlock
		end := start + cfg.CountsPerBlock
		rc.blocks[i] = &referenceBlock{
			index:        i,
			counters:     rc.counters[start:end],
			commitPoints: make([]slab.JournalPoint, cfg.SectorsPerBlock),
		}
	}
	rc.cursor = newSearchCursor(rc.blocks, int(blockCount), cfg.CountsPerBlock)
	rc.metrics.bind(info.SlabNumber())
	rc.metrics.freeBlocks.Set(float64(rc.freeBlocks))

	return rc, nil
}

// checkPBNInRange validates that pbn falls within this slab's data
// blocks and returns its offset from originPBN.
func (rc *RefCounts) checkPBNInRange(pbn uint64) (uint64, error) {
	if pbn < rc.originPBN || pbn >= rc.originPBN+rc.blockCount {
		return 0, errOutOfRange("physical block number %d is outside slab range [%d, %d)", pbn, rc.originPBN, rc.originPBN+rc.blockCount)
	}
	return pbn - rc.originPBN, nil
}

func (rc *RefCounts) blockAndOffsetForIndex(index uint64) (*referenceBlock, int) {
	blockIndex := int(index) / rc.cfg.CountsPerBlock
	return rc.blocks[blockIndex], int(index) % rc.cfg.CountsPerBlock
}

// GetUnreferencedBlockCount returns the number of counters currently at
// EmptyReferenceCount across the whole slab.
func (rc *RefCounts) GetUnreferencedBlockCount() uint64 {
	return rc.freeBlocks
}

// GetAvailableReferences reports how many more increments pbn's counter
// can absorb before hitting the configured maximum.
func (rc *RefCounts) GetAvailableReferences(pbn uint64) (uint8, error) {
	index, err := rc.checkPBNInRange(pbn)
	if err != nil {
		return 0, err
	}
	return AvailableReferences(rc.cfg.MaximumReferenceCount, rc.counters[index]), nil
}

// GetReferenceStatus reports the coarse status of pbn's counter.
func (rc *RefCounts) GetReferenceStatus(pbn uint64) (Status, error) {
	index, err := rc.checkPBNInRange(pbn)
	if err != nil {
		return 0, err
	}
	return ReferenceStatus(rc.counters[index]), nil
}

// CountUnreferencedBlocks counts free counters in [startPBN, endPBN),
// for the out-of-scope audit tool's reporting needs (§6, §8.1). The
// range is not clamped: a start outside the slab, or an end before
// start or past the slab's end, returns an OutOfRange error.
func (rc *RefCounts) CountUnreferencedBlocks(startPBN, endPBN uint64) (uint64, error) {
	start, err := rc.checkPBNInRange(startPBN)
	if err != nil {
		return 0, err
	}
	if endPBN < startPBN || endPBN > rc.originPBN+rc.blockCount {
		return 0, errOutOfRange("end PBN %d is outside slab range", endPBN)
	}
	end := endPBN - rc.originPBN

	var count uint64
	for i := start; i < end; i++ {
		if rc.counters[i] == EmptyReferenceCount {
			count++
		}
	}
	return count, nil
}

// AreActive reports whether the ref-counts object still has outstanding
// work: in-flight I/O, a pending summary update, or (outside
// SUSPENDING/RECOVERING) dirty blocks still awaiting writeback, per
// §4.9.
func (rc *RefCounts) AreActive() bool {
	if rc.activeCount > 0 || rc.updatingSlabSummary {
		return true
	}
	state := rc.info.AdminState()
	if state == slab.AdminStateRecovering || state == slab.AdminStateSuspending {
		return false
	}
	return !rc.dirty.isEmpty()
}

// DumpRefCounts renders a textual per-block summary for the out-of-scope
// CLI audit tool, grounded on original_source/utils/vdo/user/vdoaudit.c's
// per-block reporting.
func (rc *RefCounts) DumpRefCounts() string {
	out := fmt.Sprintf("slab %d: origin=%d blocks=%d free=%d\n", rc.info.SlabNumber(), rc.originPBN, rc.blockCount, rc.freeBlocks)
	for _, b := range rc.blocks {
		out += fmt.Sprintf("  block %d: allocated=%d dirty=%v writing=%v lock=%d\n",
			b.index, b.allocatedCount, b.isDirty, b.isWriting, b.slabJournalLock)
	}
	return out
}

// ResetReferenceCounts clears every counter to EmptyReferenceCount and
// resets all bookkeeping, for the rare administrative recovery path
// named generically by §6's exposed-interfaces list.
func (rc *RefCounts) ResetReferenceCounts() {
	for i := range rc.counters {
		rc.counters[i] = EmptyReferenceCount
	}
	for _, b := range rc.blocks {
		b.allocatedCount = 0
		b.isDirty = false
		b.isWriting = false
		b.slabJournalLock = 0
		b.slabJournalLockToRelease = 0
	}
	rc.freeBlocks = rc.blockCount
	rc.dirty = newDirtyQueue()
	rc.cursor.reset(int(rc.blockCount), rc.cfg.CountsPerBlock)
}

// Statistics returns the engine's live statistics sink.
func (rc *RefCounts) Statistics() *Statistics {
	return rc.stats
}
