package refcounts

import "github.com/buildbarn/vdo-refcounts/pkg/slab"

// referenceBlock is one in-memory reference block: a slice of the
// counter array plus the bookkeeping the writeback path needs to decide
// when the block may be safely written and which slab journal block it
// pins, grounded on original_source/utils/vdo/base/refCounts.c's
// reference_block_t (is_dirty, is_writing, slab_journal_lock,
// slab_journal_lock_to_release).
type referenceBlock struct {
	// index is this block's position within the owning RefCounts'
	// block vector; kept so writeback completion callbacks can find
	// their way back to the block without holding a pointer cycle,
	// per design note §9 ("index rather than a back-pointer").
	index int

	// counters is this block's slice of the flattened counter array.
	counters []Counter

	// allocatedCount is the number of non-EmptyReferenceCount entries
	// in counters, maintained incrementally so Allocate can skip full
	// blocks in O(1) per block.
	allocatedCount int

	isDirty   bool
	isWriting bool

	// slabJournalLock is the slab journal block sequence number this
	// reference block has agreed to keep alive: the slab journal may
	// not reclaim that block until this reference block reaches disk.
	slabJournalLock uint64

	// slabJournalLockToRelease is the snapshot of slabJournalLock that
	// launchWrite takes when it issues a write; completeWrite releases
	// that sequence number in the slab journal once the write finishes
	// and then clears this field.
	slabJournalLockToRelease uint64

	// commitPoints are the per-sector journal commit points; load
	// copies them from the unpacked block to support torn-write
	// detection. When a write is launched, all entries are set to the
	// RefCounts' current slab journal point, the commit point packed
	// into that write.
	commitPoints []slab.JournalPoint
}

// isFree reports whether every counter in the block is unreferenced.
func (b *referenceBlock) isFree() bool {
	return b.allocatedCount == 0
}

// isFull reports whether every counter in the block is non-zero, i.e.
// there is no point scanning it for a free counter.
func (b *referenceBlock) isFull() bool {
	return b.allocatedCount == len(b.counters)
}

// markDirty marks the block dirty. Bumping allocatedCount is not a
// side effect of this call: it only records that counters changed,
// mirroring refCounts.c's dirty_block, which never recomputes the
// allocated count; callers update allocatedCount directly when a
// counter transitions to or from EmptyReferenceCount.
func (b *referenceBlock) markDirty() {
	b.isDirty = true
}

// adjustAllocatedCount updates allocatedCount given the before/after
// counter values of a single adjusted slot.
func (b *referenceBlock) adjustAllocatedCount(before, after Counter) {
	if before == EmptyReferenceCount && after != EmptyReferenceCount {
		b.allocatedCount++
	} else if before != EmptyReferenceCount && after == EmptyReferenceCount {
		b.allocatedCount--
	}
}

// setJournalLock records that this reference block now depends on
// slab journal block sequenceNumber remaining un-reaped. It always
// updates the live lock unconditionally, even while a write is in
// flight: launchWrite is what snapshots the prior value into
// slabJournalLockToRelease, so completeWrite releases exactly the
// sequence number that was live when the write was launched, not
// whatever the block was re-dirtied with afterward.
func (b *referenceBlock) setJournalLock(sequenceNumber uint64) {
	b.slabJournalLock = sequenceNumber
}
