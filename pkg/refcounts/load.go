package refcounts

import (
	"fmt"

	"github.com/buildbarn/vdo-refcounts/pkg/slab"
)

// Load reads every reference block from media, per §4.7. done is
// invoked exactly once, after all blocks have been read (or the first
// read error has latched read-only mode).
func (rc *RefCounts) Load(done func(error)) {
	rc.freeBlocks = rc.blockCount
	rc.activeCount = len(rc.blocks)

	var failed bool
	remaining := len(rc.blocks)
	finish := func(err error) {
		remaining--
		if err != nil && !failed {
			failed = true
			rc.readOnly.EnterReadOnlyMode(err)
		}
		if remaining == 0 {
			if failed {
				done(errInternal("one or more reference blocks failed to load for slab %d", rc.info.SlabNumber()))
			} else {
				done(nil)
			}
		}
	}

	for _, block := range rc.blocks {
		block := block
		rc.descriptorPool.Acquire(&slab.AcquireWaiter{
			Ready: func(d slab.Descriptor) {
				pbn := rc.originPBN + uint64(block.index*rc.cfg.CountsPerBlock)
				d.ReadAt(pbn, func(err error) {
					rc.activeCount--
					if err != nil {
						rc.descriptorPool.Return(d)
						finish(err)
						return
					}
					rc.applyLoadedBlock(block, d.Buffer())
					rc.descriptorPool.Return(d)
					rc.stats.blocksRead.Add(1)
					rc.metrics.blocksRead.Inc()
					finish(nil)
				})
			},
		})
	}
}

// applyLoadedBlock unpacks a freshly read reference block, detects torn
// writes, recomputes allocatedCount, and clears any PROVISIONAL
// counters, per §4.7 and §6.
func (rc *RefCounts) applyLoadedBlock(block *referenceBlock, buf []byte) {
	unpacked := unpackReferenceBlock(rc.cfg, buf)

	effectivePoint := unpacked.commitPoints[0]
	torn := false
	for i := 1; i < len(unpacked.commitPoints); i++ {
		p := unpacked.commitPoints[i]
		if !p.Equivalent(effectivePoint) {
			torn = true
		}
		if effectivePoint.Before(p) {
			effectivePoint = p
		}
	}
	if torn {
		rc.stats.forcedReclaims.Add(1)
		rc.metrics.tornWritesDetected.Inc()
		if rc.errorLogger != nil {
			rc.errorLogger.Log(fmt.Errorf("slab %d: reference block %d has a torn write: sector commit points diverge", rc.info.SlabNumber(), block.index))
		}
	}
	if rc.slabJournalPoint.Before(effectivePoint) {
		rc.slabJournalPoint = effectivePoint
	}
	copy(block.commitPoints, unpacked.commitPoints)

	allocated := 0
	for i, c := range unpacked.counters {
		if c == ProvisionalReferenceCount {
			c = EmptyReferenceCount
		}
		block.counters[i] = c
		if c != EmptyReferenceCount {
			allocated++
		}
	}
	block.allocatedCount = allocated
	rc.freeBlocks -= uint64(allocated)
}

// Replay applies a single slab-journal entry recovered during recovery
// replay, per §4.7. Entries whose effect is already reflected on disk
// (the entry's point is not after the block's stored commit point) are
// skipped; otherwise the update core runs with normalOperation=false
// and the block is marked dirty unconditionally, regardless of whether
// the transition itself changed the free-block status.
func (rc *RefCounts) Replay(pbn uint64, operationType OperationType, entryPoint slab.JournalPoint) error {
	index, err := rc.checkPBNInRange(pbn)
	if err != nil {
		return err
	}
	block, offset := rc.blockAndOffsetForIndex(index)
	sector := offset / rc.cfg.CountsPerSector()

	if sector < len(block.commitPoints) && !block.commitPoints[sector].Before(entryPoint) {
		return nil
	}

	// Adjust's applyJournalInteraction already marks the block dirty
	// and enqueues it (respecting the in-flight-write guard), so replay
	// does not need to repeat that here.
	_, err = rc.Adjust(Operation{
		Type:            operationType,
		PBN:             pbn,
		JournalPoint:    &entryPoint,
		NormalOperation: false,
	})
	return err
}
