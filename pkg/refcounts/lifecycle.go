package refcounts

import "github.com/buildbarn/vdo-refcounts/pkg/slab"

// Drain dispatches on the owning slab's current admin state and
// performs whatever I/O, if any, that state requires, per §4.9's
// dispatch table. When a SCRUBBING drain loads the reference blocks,
// done is invoked once every block has been read. In the states that
// save, done is invoked as soon as SaveAll has launched the writes; it
// does not wait for those writes to complete (AreActive stays true
// until they have). If the state requires no I/O, done fires
// synchronously.
func (rc *RefCounts) Drain(done func(error)) {
	switch rc.info.AdminState() {
	case slab.AdminStateScrubbing:
		if rc.summaryZone.MustLoadRefCounts(rc.info.SlabNumber()) {
			rc.Load(done)
			return
		}
	case slab.AdminStateSaveForScrubbing:
		if !rc.summaryZone.MustLoadRefCounts(rc.info.SlabNumber()) {
			rc.DirtyAllReferenceBlocks()
			rc.SaveAll()
		}
	case slab.AdminStateRebuilding:
		if rc.info.ShouldSaveFullyBuilt() {
			rc.DirtyAllReferenceBlocks()
			rc.SaveAll()
		}
	case slab.AdminStateSaving:
		if !rc.info.IsUnrecovered() {
			rc.SaveAll()
		}
	case slab.AdminStateRecovering, slab.AdminStateSuspending:
		// No I/O is initiated; outstanding writes, if any, are allowed
		// to drain on their own.
	default:
		rc.info.NotifyReferenceCountsDrained()
	}
	done(nil)
}
