package refcounts

import "github.com/buildbarn/vdo-refcounts/pkg/slab"

// maybePublishClean publishes the slab as clean to the slab summary zone
// once there is no outstanding I/O, the dirty queue is empty, and no
// publication is already in flight, per §4.8.
func (rc *RefCounts) maybePublishClean() {
	if rc.activeCount != 0 || !rc.dirty.isEmpty() || rc.updatingSlabSummary {
		return
	}

	rc.updatingSlabSummary = true
	tailBlockOffset := rc.summaryZone.GetSummarizedTailBlockOffset(rc.info.SlabNumber())
	rc.summaryZone.UpdateSlabSummaryEntry(
		summaryEntry(rc.info.SlabNumber(), tailBlockOffset, rc.freeBlocks),
		func(err error) {
			rc.updatingSlabSummary = false
			if err != nil {
				rc.readOnly.EnterReadOnlyMode(err)
				if rc.errorLogger != nil {
					rc.errorLogger.Log(wrap(err, "slab summary update failed"))
				}
			}
		},
	)
}

func summaryEntry(slabNumber uint32, tailBlockOffset uint64, freeBlocks uint64) slab.SummaryEntry {
	return slab.SummaryEntry{
		SlabNumber:      slabNumber,
		TailBlockOffset: tailBlockOffset,
		IsClean:         true,
		LoadRefCounts:   true,
		FreeBlockHint:   freeBlocks,
	}
}
