package refcounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/buildbarn/vdo-refcounts/pkg/clock"
	"github.com/buildbarn/vdo-refcounts/pkg/refcounts"
	"github.com/buildbarn/vdo-refcounts/pkg/slab"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct{}

func (fakeTicker) Stop() {}

type fakeTimer struct{}

func (fakeTimer) Stop() bool { return true }

type fakeClock struct {
	ticks chan time.Time
}

func (c *fakeClock) Now() time.Time { return time.Time{} }

func (c *fakeClock) NewContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (c *fakeClock) NewTimer(d time.Duration) (clock.Timer, <-chan time.Time) {
	return fakeTimer{}, make(chan time.Time)
}

func (c *fakeClock) NewTicker(d time.Duration) (clock.Ticker, <-chan time.Time) {
	return fakeTicker{}, c.ticks
}

func TestPeriodicFlusherFlushesDirtyBlocksOnTick(t *testing.T) {
	h := newHarness(t, 128)
	pbn, err := h.rc.Allocate()
	require.NoError(t, err)
	jp := slab.JournalPoint{SequenceNumber: 1, EntryCount: 1}
	_, err = h.rc.Adjust(refcounts.Operation{Type: refcounts.DataIncrement, PBN: pbn, JournalPoint: &jp, NormalOperation: true})
	require.NoError(t, err)
	require.True(t, h.rc.AreActive(), "promoting the allocation with a journal point should dirty a reference block")

	fc := &fakeClock{ticks: make(chan time.Time, 1)}
	pf := refcounts.NewPeriodicFlusher(h.rc, fc, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pf.Run(ctx)
		close(done)
	}()

	fc.ticks <- time.Time{}

	require.Eventually(t, func() bool {
		return !h.rc.AreActive()
	}, time.Second, time.Millisecond, "periodic flusher should have written the dirty block")

	cancel()
	<-done
}

func TestPeriodicFlusherSkipsWhileReadOnly(t *testing.T) {
	h := newHarness(t, 128)
	pbn, err := h.rc.Allocate()
	require.NoError(t, err)
	jp := slab.JournalPoint{SequenceNumber: 1, EntryCount: 1}
	_, err = h.rc.Adjust(refcounts.Operation{Type: refcounts.DataIncrement, PBN: pbn, JournalPoint: &jp, NormalOperation: true})
	require.NoError(t, err)

	h.readOnly.EnterReadOnlyMode(require.AnError)

	fc := &fakeClock{ticks: make(chan time.Time, 1)}
	pf := refcounts.NewPeriodicFlusher(h.rc, fc, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pf.Run(ctx)
		close(done)
	}()

	fc.ticks <- time.Time{}
	cancel()
	<-done

	require.True(t, h.rc.AreActive(), "flusher must not launch writes while read-only")
}
