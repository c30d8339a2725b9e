package refcounts

// Allocate finds a free counter, provisionally reserves it, and returns
// its physical block number, per §4.5. No journal entry is written and
// the owning reference block is not marked dirty: provisional
// reservations are intentionally never persisted.
func (rc *RefCounts) Allocate() (uint64, error) {
	if !rc.info.IsOpen() {
		return 0, errInvalidAdminState("cannot allocate from slab %d: not open", rc.info.SlabNumber())
	}

	for attempt := 0; attempt <= len(rc.blocks); attempt++ {
		block := rc.cursor.currentBlock()
		if !block.isFull() {
			if index, ok := findFreeCounterInBlock(block, rc.cursor.index, rc.cursor.endIndex); ok {
				globalIndex := block.index*rc.cfg.CountsPerBlock + index
				before := rc.counters[globalIndex]
				rc.counters[globalIndex] = ProvisionalReferenceCount
				block.adjustAllocatedCount(before, ProvisionalReferenceCount)
				rc.freeBlocks--
				rc.cursor.index = index + 1
				rc.stats.provisionalReferencesAssigned.Add(1)
				rc.metrics.provisionalReferencesAssigned.Inc()
				rc.metrics.freeBlocks.Set(float64(rc.freeBlocks))
				return rc.originPBN + uint64(globalIndex), nil
			}
		}
		rc.cursor.advance(int(rc.blockCount), rc.cfg.CountsPerBlock)
	}
	return 0, errNoSpace("slab %d has no free physical blocks", rc.info.SlabNumber())
}

// ProvisionallyReference idempotently reserves pbn on behalf of an
// allocation lock: if the counter is EMPTY, it is set to PROVISIONAL and
// the lock assigned the reservation; otherwise the block is already
// referenced or already provisionally held and the call is a no-op, per
// §4.5.
func (rc *RefCounts) ProvisionallyReference(pbn uint64, lock AllocationLock) error {
	index, err := rc.checkPBNInRange(pbn)
	if err != nil {
		return err
	}
	if rc.counters[index] != EmptyReferenceCount {
		return nil
	}
	block, _ := rc.blockAndOffsetForIndex(index)
	rc.counters[index] = ProvisionalReferenceCount
	block.adjustAllocatedCount(EmptyReferenceCount, ProvisionalReferenceCount)
	rc.freeBlocks--
	if lock != nil {
		lock.AssignProvisionalReference()
	}
	rc.stats.provisionalReferencesAssigned.Add(1)
	rc.metrics.provisionalReferencesAssigned.Inc()
	rc.metrics.freeBlocks.Set(float64(rc.freeBlocks))
	return nil
}

// DirtyAllReferenceBlocks marks every reference block dirty and enqueues
// it for writeback, used by the rebuild and drain paths (§4.7, §4.9).
func (rc *RefCounts) DirtyAllReferenceBlocks() {
	for _, b := range rc.blocks {
		if !b.isDirty && !b.isWriting {
			rc.dirty.enqueue(b)
		}
		b.markDirty()
	}
}

// AcquireDirtyBlockLocks stamps every reference block with a synthetic
// slab-journal lock at sequence 1, as required after a rebuild, and
// bumps the slab journal's reference for sequence 1 by the number of
// reference blocks (§4.7).
func (rc *RefCounts) AcquireDirtyBlockLocks() error {
	const rebuildSequence uint64 = 1
	for _, b := range rc.blocks {
		b.slabJournalLock = rebuildSequence
	}
	return rc.journal.AdjustSlabJournalBlockReference(rebuildSequence, int32(len(rc.blocks)))
}

// ClearProvisionalReferences resets every PROVISIONAL counter back to
// EMPTY, reconciling allocatedCount and freeBlocks, matching the loader's
// rule that provisional state is never valid after a load (§4.7,
// invariant 6).
func (rc *RefCounts) ClearProvisionalReferences() {
	for i, c := range rc.counters[:rc.blockCount] {
		if c != ProvisionalReferenceCount {
			continue
		}
		block, _ := rc.blockAndOffsetForIndex(uint64(i))
		rc.counters[i] = EmptyReferenceCount
		block.adjustAllocatedCount(ProvisionalReferenceCount, EmptyReferenceCount)
		rc.freeBlocks++
	}
}
