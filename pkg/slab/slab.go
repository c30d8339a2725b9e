// Package slab contains the narrow collaborator contracts that the
// reference-count engine in pkg/refcounts borrows from the surrounding
// block-virtualization system: the owning slab, its journal, its summary
// zone, its I/O descriptor pool, and the read-only notifier.
//
// None of these are implemented here beyond what is needed to exercise the
// engine in tests and in the memdescriptorpool reference implementation.
// The real slab, allocator zone, and thread-affinity machinery live outside
// this module's scope.
package slab

// AdminState enumerates the admin-driven lifecycle states a slab can be
// in. Most reference-count behavior only cares about a handful of these;
// the rest pass through to "other" in the drain dispatch table.
type AdminState int

const (
	// AdminStateNormal is the steady running state in which the slab
	// accepts allocations and reference-count updates.
	AdminStateNormal AdminState = iota
	// AdminStateScrubbing indicates the slab is being scrubbed for
	// unreferenced blocks left behind by an unclean shutdown.
	AdminStateScrubbing
	// AdminStateSaveForScrubbing indicates a save requested specifically
	// to prepare a slab for scrubbing.
	AdminStateSaveForScrubbing
	// AdminStateRebuilding indicates reference counts are being
	// reconstructed from the block map after a crash.
	AdminStateRebuilding
	// AdminStateSaving indicates a normal save/flush of dirty state.
	AdminStateSaving
	// AdminStateRecovering indicates recovery-journal replay is in
	// progress.
	AdminStateRecovering
	// AdminStateSuspending indicates the slab is being quiesced without
	// necessarily flushing all dirty state (e.g. for a VDO suspend).
	AdminStateSuspending
)

// String renders the admin state name for logging.
func (s AdminState) String() string {
	switch s {
	case AdminStateNormal:
		return "NORMAL"
	case AdminStateScrubbing:
		return "SCRUBBING"
	case AdminStateSaveForScrubbing:
		return "SAVE_FOR_SCRUBBING"
	case AdminStateRebuilding:
		return "REBUILDING"
	case AdminStateSaving:
		return "SAVING"
	case AdminStateRecovering:
		return "RECOVERING"
	case AdminStateSuspending:
		return "SUSPENDING"
	default:
		return "UNKNOWN"
	}
}

// Info exposes the narrow subset of slab state the reference-count engine
// needs from its owning slab.
type Info interface {
	// Start returns the first physical block number managed by the
	// slab; counter index i corresponds to physical block Start()+i.
	Start() uint64

	// SlabNumber identifies the slab within its allocator. Used only
	// for logging and for labeling Prometheus metrics.
	SlabNumber() uint32

	// IsOpen reports whether allocation is currently permitted.
	IsOpen() bool

	// IsUnrecovered reports whether the slab has not yet finished
	// recovery-journal replay.
	IsUnrecovered() bool

	// ShouldSaveFullyBuilt reports whether, once a REBUILDING drain
	// completes rebuilding, the freshly rebuilt reference blocks should
	// also be saved to disk before the drain is considered finished.
	ShouldSaveFullyBuilt() bool

	// AdminState returns the slab's current lifecycle state.
	AdminState() AdminState

	// NotifyReferenceCountsDrained is invoked once the ref-counts
	// object has no further outstanding work relevant to the slab's
	// current drain.
	NotifyReferenceCountsDrained()
}
