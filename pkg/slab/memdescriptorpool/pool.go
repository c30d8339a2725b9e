// Package memdescriptorpool provides an in-memory reference
// implementation of slab.DescriptorPool, backed by a fixed number of
// reusable buffers and a map standing in for the underlying block device.
//
// It is not the production I/O descriptor pool described by the
// specification (that component is out of scope for this module); it
// exists so the reference-count engine can be exercised end to end in
// tests and demonstrations with real backpressure and FIFO-fair
// acquisition, grounded on the teacher's golang.org/x/sync/semaphore-backed
// util.AcquireSemaphore helper and the free-list/waiter shape of its
// partitioningBlockAllocator.
package memdescriptorpool

import (
	"context"
	"sync"

	"github.com/buildbarn/vdo-refcounts/pkg/slab"
	"github.com/buildbarn/vdo-refcounts/pkg/util"

	"golang.org/x/sync/semaphore"
)

// Pool is an in-memory slab.DescriptorPool. The zero value is not usable;
// create one with New.
type Pool struct {
	blockSizeBytes int
	sem            *semaphore.Weighted

	mediaLock sync.Mutex
	media     map[uint64][]byte

	freeLock  sync.Mutex
	free      [][]byte
	waiters   []*slab.AcquireWaiter
}

// New creates a Pool with capacity descriptors, each blockSizeBytes in
// size.
func New(capacity, blockSizeBytes int) *Pool {
	p := &Pool{
		blockSizeBytes: blockSizeBytes,
		sem:            semaphore.NewWeighted(int64(capacity)),
		media:          map[uint64][]byte{},
	}
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, make([]byte, blockSizeBytes))
	}
	return p
}

// Acquire implements slab.DescriptorPool.
//
// If a buffer is immediately free, waiter.Ready fires synchronously before
// Acquire returns, matching the "waiter objects deposited into wait
// queues" model only when the pool is actually exhausted.
func (p *Pool) Acquire(waiter *slab.AcquireWaiter) {
	p.freeLock.Lock()
	if len(p.free) > 0 {
		buf := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.freeLock.Unlock()
		if err := util.AcquireSemaphore(context.Background(), p.sem, 1); err != nil {
			panic(err)
		}
		waiter.Ready(&descriptor{pool: p, buf: buf})
		return
	}
	p.waiters = append(p.waiters, waiter)
	p.freeLock.Unlock()
}

// Return implements slab.DescriptorPool.
func (p *Pool) Return(d slab.Descriptor) {
	desc := d.(*descriptor)

	p.freeLock.Lock()
	if len(p.waiters) > 0 {
		next := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.freeLock.Unlock()
		next.Ready(&descriptor{pool: p, buf: desc.buf})
		return
	}
	p.free = append(p.free, desc.buf)
	p.freeLock.Unlock()
	p.sem.Release(1)
}

type descriptor struct {
	pool *Pool
	buf  []byte
}

func (d *descriptor) Buffer() []byte {
	return d.buf
}

func (d *descriptor) WriteAt(pbn uint64, flush bool, done func(error)) {
	go func() {
		// flush is a no-op for in-memory media: there is no device
		// cache to push ahead of the write, but the parameter is
		// still threaded through so a persistent implementation can
		// honor slab-journal-before-ref-count write ordering.
		_ = flush
		data := make([]byte, len(d.buf))
		copy(data, d.buf)

		d.pool.mediaLock.Lock()
		d.pool.media[pbn] = data
		d.pool.mediaLock.Unlock()
		done(nil)
	}()
}

func (d *descriptor) ReadAt(pbn uint64, done func(error)) {
	go func() {
		d.pool.mediaLock.Lock()
		data, ok := d.pool.media[pbn]
		d.pool.mediaLock.Unlock()
		if ok {
			copy(d.buf, data)
			for i := len(data); i < len(d.buf); i++ {
				d.buf[i] = 0
			}
		} else {
			for i := range d.buf {
				d.buf[i] = 0
			}
		}
		done(nil)
	}()
}
