package slab

// SummaryEntry is the payload of a single slab-summary publication: a
// compact, cross-slab hint about a slab's cleanliness and free space.
type SummaryEntry struct {
	SlabNumber      uint32
	TailBlockOffset uint64
	IsClean         bool
	LoadRefCounts   bool
	FreeBlockHint   uint64
}

// SummaryZone is the narrow slab-summary contract the reference-count
// engine depends on. The summary's own compaction and on-disk format are
// out of scope for this module.
type SummaryZone interface {
	// GetSummarizedTailBlockOffset returns the slab-journal tail block
	// offset last published for the slab, used during SCRUBBING/
	// SAVE_FOR_SCRUBBING decisions.
	GetSummarizedTailBlockOffset(slabNumber uint32) uint64

	// MustLoadRefCounts reports whether the summary's last published
	// entry for this slab indicates its reference blocks must be read
	// back from disk before allocation can resume.
	MustLoadRefCounts(slabNumber uint32) bool

	// UpdateSlabSummaryEntry publishes a new summary entry for a slab.
	// callback is invoked exactly once with the outcome.
	UpdateSlabSummaryEntry(entry SummaryEntry, callback func(error))
}
