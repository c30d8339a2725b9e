package slab

// ReadOnlyNotifier models the VDO instance's shared, one-shot read-only
// latch (design note §9: "Global read-only state... a shared one-shot
// latch with an associated error code and subscription list; once
// latched, reads observe latched=true").
//
// Entering read-only mode is sticky: once latched, it never clears for the
// lifetime of the instance.
type ReadOnlyNotifier interface {
	// EnterReadOnlyMode latches the instance into read-only mode on
	// behalf of the caller, recording err as the triggering cause. If
	// already latched, this is a no-op.
	EnterReadOnlyMode(err error)

	// IsReadOnly reports whether the instance is latched into
	// read-only mode.
	IsReadOnly() bool
}
