package refcounts

import "github.com/buildbarn/vdo-refcounts/pkg/slab"

// OperationType identifies which of the three counter transitions an
// Operation requests, per §4.4.
type OperationType int

const (
	// DataIncrement records a new logical-block-map reference to a
	// data block.
	DataIncrement OperationType = iota
	// DataDecrement removes a logical-block-map reference from a data
	// block.
	DataDecrement
	// BlockMapIncrement pins a block-map page against dedupe by
	// driving its counter to MaximumReferenceCount.
	BlockMapIncrement
)

// AllocationLock is the narrow contract an Operation's allocation lock
// handle must satisfy. Implementations must make assign/unassign
// idempotent (per the Open Question resolution recorded in the design
// ledger); the engine adds no guard of its own: a
// DATA_DECREMENT of a PROVISIONAL counter with a lock present calls
// AssignProvisionalReference again on a lock that may already hold the
// reservation, and that must be a safe no-op.
type AllocationLock interface {
	AssignProvisionalReference()
	UnassignProvisionalReference()
}

// Operation is a single requested counter transition.
type Operation struct {
	Type OperationType
	PBN  uint64
	Lock AllocationLock

	// JournalPoint identifies the slab journal entry this operation
	// corresponds to. A nil point means the operation has no journal
	// entry (e.g. during rebuild).
	JournalPoint *slab.JournalPoint

	// NormalOperation is false during replay or rebuild, relaxing or
	// tightening which transitions are legal per §4.4's tables.
	NormalOperation bool
}

// Adjust executes operation against the counter it names, enforcing the
// transition tables of §4.4. It returns whether the slab's free-block
// status changed (a counter crossed the EMPTY boundary in either
// direction) and advances slabJournalPoint / block journal locks /
// dirty-queue membership per §4.4's "Journal interaction" rules.
func (rc *RefCounts) Adjust(op Operation) (bool, error) {
	if op.NormalOperation && !rc.info.IsOpen() {
		return false, errInvalidAdminState("slab %d is not open", rc.info.SlabNumber())
	}

	index, err := rc.checkPBNInRange(op.PBN)
	if err != nil {
		return false, err
	}
	block, _ := rc.blockAndOffsetForIndex(index)
	before := rc.counters[index]

	var after Counter
	var freeStatusChanged bool
	var provisionalDecrement bool

	switch op.Type {
	case DataIncrement:
		after, freeStatusChanged, err = rc.adjustDataIncrement(block, before, op)
	case DataDecrement:
		after, freeStatusChanged, provisionalDecrement, err = rc.adjustDataDecrement(block, before, op)
	case BlockMapIncrement:
		after, freeStatusChanged, err = rc.adjustBlockMapIncrement(block, before, op)
	default:
		err = errInternal("unknown operation type %d", op.Type)
	}

	if err != nil {
		if isInternalImpossibility(err) {
			rc.readOnly.EnterReadOnlyMode(err)
		}
		return false, err
	}

	rc.counters[index] = after
	block.adjustAllocatedCount(before, after)
	if freeStatusChanged {
		if after == EmptyReferenceCount {
			rc.freeBlocks++
		} else {
			rc.freeBlocks--
		}
		rc.metrics.freeBlocks.Set(float64(rc.freeBlocks))
	}
	_ = provisionalDecrement
	if op.Type == BlockMapIncrement && err == nil {
		rc.stats.blockMapIncrements.Add(1)
	}

	rc.applyJournalInteraction(block, op.JournalPoint)

	return freeStatusChanged, nil
}

// isInternalImpossibility reports whether err corresponds to one of
// §7's "internal impossibility" cases, which enter read-only mode
// rather than being returned as plain, locally-handled errors.
func isInternalImpossibility(err error) bool {
	return errIsInternal(err)
}

func (rc *RefCounts) adjustDataIncrement(block *referenceBlock, before Counter, op Operation) (Counter, bool, error) {
	switch {
	case before == EmptyReferenceCount:
		if op.Lock != nil {
			op.Lock.UnassignProvisionalReference()
		}
		return SingleReferenceCount, true, nil
	case before == ProvisionalReferenceCount:
		if op.Lock != nil {
			op.Lock.UnassignProvisionalReference()
		}
		return SingleReferenceCount, false, nil
	case before == Counter(rc.cfg.MaximumReferenceCount):
		return before, false, errRefCountInvalid("cannot increment reference count for PBN %d: already at maximum %d", op.PBN, rc.cfg.MaximumReferenceCount)
	default:
		if op.Lock != nil {
			op.Lock.UnassignProvisionalReference()
		}
		return before + 1, false, nil
	}
}

func (rc *RefCounts) adjustDataDecrement(block *referenceBlock, before Counter, op Operation) (Counter, bool, bool, error) {
	switch {
	case before == EmptyReferenceCount:
		return before, false, false, errRefCountInvalid("cannot decrement reference count for PBN %d: already at zero", op.PBN)
	case (before == ProvisionalReferenceCount || before == SingleReferenceCount) && op.Lock != nil:
		op.Lock.AssignProvisionalReference()
		return ProvisionalReferenceCount, false, before == ProvisionalReferenceCount, nil
	case before == ProvisionalReferenceCount || before == SingleReferenceCount:
		return EmptyReferenceCount, true, before == ProvisionalReferenceCount, nil
	default:
		return before - 1, false, false, nil
	}
}

func (rc *RefCounts) adjustBlockMapIncrement(block *referenceBlock, before Counter, op Operation) (Counter, bool, error) {
	max := Counter(rc.cfg.MaximumReferenceCount)
	switch {
	case before == EmptyReferenceCount && op.NormalOperation:
		return before, false, errRefCountInvalid("cannot block-map-increment unallocated PBN %d", op.PBN)
	case before == EmptyReferenceCount && !op.NormalOperation:
		return max, true, nil
	case before == ProvisionalReferenceCount && op.NormalOperation:
		if op.Lock != nil {
			op.Lock.UnassignProvisionalReference()
		}
		return max, false, nil
	case before == ProvisionalReferenceCount && !op.NormalOperation:
		return before, false, errRefCountInvalid("provisional reference for PBN %d is invalid during replay", op.PBN)
	default:
		return before, false, errRefCountInvalid("cannot re-increment block-map page at PBN %d", op.PBN)
	}
}

// applyJournalInteraction implements §4.4's "Journal interaction"
// rules: advancing slabJournalPoint and either releasing the per-entry
// journal lock immediately (block already held a newer lock) or
// promoting the entry's lock into the block's uncommitted lock and
// marking it dirty.
func (rc *RefCounts) applyJournalInteraction(block *referenceBlock, journalPoint *slab.JournalPoint) {
	if journalPoint != nil && journalPoint.IsValid() {
		rc.slabJournalPoint = *journalPoint
	}

	if block.isDirty && block.slabJournalLock > 0 {
		if journalPoint != nil {
			if err := rc.journal.AdjustSlabJournalBlockReference(journalPoint.SequenceNumber, -1); err != nil {
				rc.readOnly.EnterReadOnlyMode(err)
			}
		}
		return
	}

	var sequence uint64
	if journalPoint != nil {
		sequence = journalPoint.SequenceNumber
	}
	block.setJournalLock(sequence)
	// A write already in flight clears isDirty at launch, but the
	// block must not be re-enqueued until that write completes:
	// completeWrite is what re-enqueues a block left dirty by a
	// write-time update, mirroring dirty_block's early return while
	// is_writing.
	if !block.isDirty && !block.isWriting {
		rc.dirty.enqueue(block)
	}
	block.markDirty()
}
