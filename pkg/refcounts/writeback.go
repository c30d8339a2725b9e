package refcounts

import "github.com/buildbarn/vdo-refcounts/pkg/slab"

// SaveSeveral writes max(1, dirty/flushDivisor) of the oldest dirty
// blocks, per §4.6's write-bursting policy.
func (rc *RefCounts) SaveSeveral() {
	count := rc.dirty.len() / rc.cfg.FlushDivisor
	if count < 1 {
		count = 1
	}
	if count > rc.dirty.len() {
		count = rc.dirty.len()
	}
	for i := 0; i < count; i++ {
		block := rc.dirty.dequeue()
		if block == nil {
			return
		}
		rc.launchWrite(block)
	}
}

// SaveAll launches a write for every currently dirty block.
func (rc *RefCounts) SaveAll() {
	for {
		block := rc.dirty.dequeue()
		if block == nil {
			return
		}
		rc.launchWrite(block)
	}
}

// launchWrite acquires an I/O descriptor for block and, once acquired,
// packs and issues a flushed write to media, per §4.6's "Write launch".
func (rc *RefCounts) launchWrite(block *referenceBlock) {
	block.slabJournalLockToRelease = block.slabJournalLock
	block.isDirty = false
	block.isWriting = true
	rc.activeCount++

	rc.descriptorPool.Acquire(&slab.AcquireWaiter{
		Ready: func(d slab.Descriptor) {
			commitPoint := rc.slabJournalPoint
			packReferenceBlock(rc.cfg, block.counters, commitPoint, d.Buffer())
			for i := range block.commitPoints {
				block.commitPoints[i] = commitPoint
			}

			pbn := rc.originPBN + uint64(block.index*rc.cfg.CountsPerBlock)
			d.WriteAt(pbn, true, func(err error) {
				rc.completeWrite(block, d, err)
			})
		},
	})
}

// completeWrite implements §4.6's "Write completion" sequence.
func (rc *RefCounts) completeWrite(block *referenceBlock, d slab.Descriptor, err error) {
	if lockToRelease := block.slabJournalLockToRelease; lockToRelease > 0 {
		if jerr := rc.journal.AdjustSlabJournalBlockReference(lockToRelease, -1); jerr != nil && err == nil {
			err = jerr
		}
	}
	block.slabJournalLockToRelease = 0

	rc.descriptorPool.Return(d)
	rc.activeCount--
	block.isWriting = false

	if err != nil {
		rc.readOnly.EnterReadOnlyMode(err)
		if rc.errorLogger != nil {
			rc.errorLogger.Log(wrap(err, "reference block write failed"))
		}
		return
	}

	rc.stats.blocksWritten.Add(1)
	rc.metrics.blocksWritten.Inc()

	if rc.readOnly.IsReadOnly() {
		return
	}

	if block.isDirty {
		rc.dirty.enqueue(block)
		if rc.info.AdminState() != slab.AdminStateNormal {
			rc.SaveAll()
		}
	}

	rc.maybePublishClean()
}
