package refcounts_test

import (
	"github.com/buildbarn/vdo-refcounts/pkg/slab"
)

// fakeInfo is a hand-written slab.Info fake. The teacher's own
// inMemoryBlockAllocator is used directly in both production and test
// code rather than being generated by a mocking framework, and this
// package follows that precedent throughout its fakes.
type fakeInfo struct {
	slabNumber           uint32
	open                 bool
	unrecovered          bool
	saveFullyBuilt       bool
	state                slab.AdminState
	drainedNotifications int
}

func newFakeInfo(slabNumber uint32) *fakeInfo {
	return &fakeInfo{slabNumber: slabNumber, open: true}
}

func (f *fakeInfo) Start() uint64                        { return 0 }
func (f *fakeInfo) SlabNumber() uint32                    { return f.slabNumber }
func (f *fakeInfo) IsOpen() bool                          { return f.open }
func (f *fakeInfo) IsUnrecovered() bool                   { return f.unrecovered }
func (f *fakeInfo) ShouldSaveFullyBuilt() bool             { return f.saveFullyBuilt }
func (f *fakeInfo) AdminState() slab.AdminState            { return f.state }
func (f *fakeInfo) NotifyReferenceCountsDrained()          { f.drainedNotifications++ }

// fakeJournal is a hand-written slab.Journal fake recording every
// adjustment applied, keyed by sequence number.
type fakeJournal struct {
	references map[uint64]int32
	failNext   error
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{references: map[uint64]int32{}}
}

func (f *fakeJournal) AdjustSlabJournalBlockReference(sequenceNumber uint64, delta int32) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.references[sequenceNumber] += delta
	return nil
}

// fakeSummaryZone is a hand-written slab.SummaryZone fake.
type fakeSummaryZone struct {
	mustLoad     bool
	tailOffset   uint64
	lastEntry    slab.SummaryEntry
	updateCount  int
	failNext     error
}

func (f *fakeSummaryZone) GetSummarizedTailBlockOffset(slabNumber uint32) uint64 {
	return f.tailOffset
}

func (f *fakeSummaryZone) MustLoadRefCounts(slabNumber uint32) bool {
	return f.mustLoad
}

func (f *fakeSummaryZone) UpdateSlabSummaryEntry(entry slab.SummaryEntry, callback func(error)) {
	f.updateCount++
	f.lastEntry = entry
	err := f.failNext
	f.failNext = nil
	callback(err)
}

// fakeReadOnlyNotifier is a hand-written slab.ReadOnlyNotifier fake: a
// sticky one-shot latch, per design note §9.
type fakeReadOnlyNotifier struct {
	readOnly bool
	err      error
}

func (f *fakeReadOnlyNotifier) EnterReadOnlyMode(err error) {
	if !f.readOnly {
		f.readOnly = true
		f.err = err
	}
}

func (f *fakeReadOnlyNotifier) IsReadOnly() bool {
	return f.readOnly
}

// fakeAllocationLock is a hand-written AllocationLock fake that counts
// assign/unassign calls, used to observe the calls the engine makes on
// the DATA_DECREMENT-of-PROVISIONAL-with-lock path.
type fakeAllocationLock struct {
	assignCount   int
	unassignCount int
}

func (l *fakeAllocationLock) AssignProvisionalReference()   { l.assignCount++ }
func (l *fakeAllocationLock) UnassignProvisionalReference() { l.unassignCount++ }

// fakeDescriptor is a synchronous slab.Descriptor backed by an in-memory
// byte slice, plus a shared map standing in for the underlying media so
// that writes performed by one descriptor are visible to a later read
// through a different descriptor instance.
type fakeDescriptor struct {
	pool *fakeDescriptorPool
	buf  []byte
}

func (d *fakeDescriptor) Buffer() []byte { return d.buf }

func (d *fakeDescriptor) WriteAt(pbn uint64, flush bool, done func(error)) {
	data := make([]byte, len(d.buf))
	copy(data, d.buf)
	d.pool.media[pbn] = data
	if d.pool.failNextWrite != nil {
		err := d.pool.failNextWrite
		d.pool.failNextWrite = nil
		done(err)
		return
	}
	done(nil)
}

func (d *fakeDescriptor) ReadAt(pbn uint64, done func(error)) {
	if data, ok := d.pool.media[pbn]; ok {
		copy(d.buf, data)
	} else {
		for i := range d.buf {
			d.buf[i] = 0
		}
	}
	if d.pool.failNextRead != nil {
		err := d.pool.failNextRead
		d.pool.failNextRead = nil
		done(err)
		return
	}
	done(nil)
}

// fakeDescriptorPool is a synchronous, effectively unbounded
// slab.DescriptorPool: Acquire always invokes waiter.Ready immediately
// from the calling goroutine, since the tests in this package drive the
// engine from a single goroutine and don't need real backpressure (that
// is exercised separately against pkg/slab/memdescriptorpool).
type fakeDescriptorPool struct {
	blockSizeBytes int
	media          map[uint64][]byte

	failNextWrite error
	failNextRead  error
}

func newFakeDescriptorPool(blockSizeBytes int) *fakeDescriptorPool {
	return &fakeDescriptorPool{blockSizeBytes: blockSizeBytes, media: map[uint64][]byte{}}
}

func (p *fakeDescriptorPool) Acquire(waiter *slab.AcquireWaiter) {
	waiter.Ready(&fakeDescriptor{pool: p, buf: make([]byte, p.blockSizeBytes)})
}

func (p *fakeDescriptorPool) Return(d slab.Descriptor) {}
