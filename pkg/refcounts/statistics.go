package refcounts

import "github.com/buildbarn/vdo-refcounts/pkg/atomic"

// Statistics holds the engine's cross-thread-readable counters.
// Updates originate only from the slab's single owning thread; reads
// may happen from any thread, relying on the relaxed/acquire ordering
// pkg/atomic's wrapper types provide (§5).
type Statistics struct {
	blocksWritten                  atomic.Uint64
	blocksRead                     atomic.Uint64
	blockMapIncrements              atomic.Uint64
	provisionalReferencesAssigned  atomic.Uint64
	forcedReclaims                 atomic.Uint64
}

func newStatistics() *Statistics {
	return &Statistics{}
}

// BlocksWritten is the number of reference blocks successfully written
// to media over this engine's lifetime.
func (s *Statistics) BlocksWritten() uint64 {
	return s.blocksWritten.Load()
}

// BlocksRead is the number of reference blocks successfully read from
// media over this engine's lifetime.
func (s *Statistics) BlocksRead() uint64 {
	return s.blocksRead.Load()
}

// BlockMapIncrements is the number of successful BlockMapIncrement
// operations processed.
func (s *Statistics) BlockMapIncrements() uint64 {
	return s.blockMapIncrements.Load()
}

// ProvisionalReferencesAssigned is the number of counters that have
// transitioned to ProvisionalReferenceCount, whether via Allocate or
// ProvisionallyReference.
func (s *Statistics) ProvisionalReferencesAssigned() uint64 {
	return s.provisionalReferencesAssigned.Load()
}

// ForcedReclaims is the number of times a torn write was detected and
// logged during load (§4.7, §9).
func (s *Statistics) ForcedReclaims() uint64 {
	return s.forcedReclaims.Load()
}
