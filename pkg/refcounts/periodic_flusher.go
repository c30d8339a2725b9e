package refcounts

import (
	"context"
	"time"

	"github.com/buildbarn/vdo-refcounts/pkg/clock"
)

// PeriodicFlusher drives RefCounts.SaveSeveral() on a fixed interval, so
// that dirty reference blocks accumulated between explicit Drain() calls
// are bounded in age instead of growing without limit while a slab stays
// open. It mirrors the teacher's PeriodicSyncer: a clock.Clock so tests can
// control time. Write failures are handled by RefCounts itself (the
// underlying write path already latches read-only mode and logs through
// the RefCounts' own error logger), so PeriodicFlusher only needs to keep
// ticking.
type PeriodicFlusher struct {
	rc       *RefCounts
	clock    clock.Clock
	interval time.Duration
}

// NewPeriodicFlusher creates a PeriodicFlusher for rc that issues a
// SaveSeveral burst every interval.
func NewPeriodicFlusher(rc *RefCounts, clk clock.Clock, interval time.Duration) *PeriodicFlusher {
	return &PeriodicFlusher{
		rc:       rc,
		clock:    clk,
		interval: interval,
	}
}

// Run blocks, flushing dirty reference blocks every interval until ctx is
// cancelled. It is intended to be called in its own goroutine, one per open
// slab, the same way the teacher runs one PeriodicSyncer loop per
// PersistentBlockList.
func (pf *PeriodicFlusher) Run(ctx context.Context) {
	ticker, ch := pf.clock.NewTicker(pf.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if pf.rc.readOnly.IsReadOnly() {
				continue
			}
			if !pf.rc.dirty.isEmpty() {
				pf.rc.SaveSeveral()
			}
		}
	}
}
