package memdescriptorpool_test

import (
	"sync"
	"testing"
	"time"

	"github.com/buildbarn/vdo-refcounts/pkg/slab"
	"github.com/buildbarn/vdo-refcounts/pkg/slab/memdescriptorpool"
	"github.com/stretchr/testify/require"
)

func TestPoolAcquireReturnRoundTrip(t *testing.T) {
	p := memdescriptorpool.New(1, 16)

	var got slab.Descriptor
	ready := make(chan struct{})
	p.Acquire(&slab.AcquireWaiter{
		Ready: func(d slab.Descriptor) {
			got = d
			close(ready)
		},
	})
	<-ready
	require.NotNil(t, got)
	require.Len(t, got.Buffer(), 16)

	copy(got.Buffer(), []byte("hello world!!!!!"))
	done := make(chan error, 1)
	got.WriteAt(1000, true, func(err error) { done <- err })
	require.NoError(t, <-done)

	p.Return(got)

	var reread slab.Descriptor
	ready2 := make(chan struct{})
	p.Acquire(&slab.AcquireWaiter{
		Ready: func(d slab.Descriptor) {
			reread = d
			close(ready2)
		},
	})
	<-ready2

	readDone := make(chan error, 1)
	reread.ReadAt(1000, func(err error) { readDone <- err })
	require.NoError(t, <-readDone)
	require.Equal(t, []byte("hello world!!!!!"), reread.Buffer())
}

func TestPoolBlocksUntilReturned(t *testing.T) {
	p := memdescriptorpool.New(1, 8)

	first := make(chan slab.Descriptor, 1)
	p.Acquire(&slab.AcquireWaiter{Ready: func(d slab.Descriptor) { first <- d }})
	d1 := <-first

	var mu sync.Mutex
	var secondAcquired bool
	second := make(chan slab.Descriptor, 1)
	p.Acquire(&slab.AcquireWaiter{Ready: func(d slab.Descriptor) {
		mu.Lock()
		secondAcquired = true
		mu.Unlock()
		second <- d
	}})

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.False(t, secondAcquired, "second waiter must not be served before the only descriptor is returned")
	mu.Unlock()

	p.Return(d1)

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second waiter was never served after Return")
	}
}
