package slab

// JournalPoint totally orders entries within a single slab journal. Two
// journal points are comparable only if they belong to the same slab.
type JournalPoint struct {
	SequenceNumber uint64
	EntryCount     uint16
}

// IsValid reports whether a journal point refers to a real journal entry.
// The zero value (used during rebuild, where there is no journal entry to
// associate with an update) is not valid.
func (p JournalPoint) IsValid() bool {
	return p.SequenceNumber > 0
}

// Before reports whether p identifies an entry that was appended strictly
// before other.
func (p JournalPoint) Before(other JournalPoint) bool {
	if p.SequenceNumber != other.SequenceNumber {
		return p.SequenceNumber < other.SequenceNumber
	}
	return p.EntryCount < other.EntryCount
}

// Equivalent reports whether p and other identify the same journal entry.
func (p JournalPoint) Equivalent(other JournalPoint) bool {
	return p == other
}

// Journal is the narrow slab-journal contract the reference-count engine
// depends on. The journal itself, its own on-disk format, and entry
// generation are out of scope for this module.
type Journal interface {
	// AdjustSlabJournalBlockReference changes, by delta, the number of
	// reference-count updates that still depend on the journal entry
	// identified by sequenceNumber remaining on disk. The ref-counts
	// engine calls this with delta -1 to release a lock once the
	// corresponding reference block has been persisted, and with a
	// positive delta when re-arming a synthetic lock after rebuild.
	AdjustSlabJournalBlockReference(sequenceNumber uint64, delta int32) error
}
