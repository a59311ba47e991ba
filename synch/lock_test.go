package synch

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdave1/nachos/kthread"
)

// A lock admits only one holder at a time: a shared counter incremented
// and checked inside the critical section never observes a second holder.
func TestLockMutualExclusion(t *testing.T) {
	sched := kthread.NewScheduler()
	lock := NewLock("l", sched)

	var inside int32
	var violations int32
	var wg sync.WaitGroup

	const n = 64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			self := kthread.New("worker", nil)
			lock.Acquire(self)
			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.AddInt32(&violations, 1)
			}
			atomic.AddInt32(&inside, -1)
			lock.Release(self)
		}()
	}
	wg.Wait()

	require.Zero(t, violations)
	require.Nil(t, lock.Owner())
}

func TestLockReleaseByNonOwnerPanics(t *testing.T) {
	sched := kthread.NewScheduler()
	lock := NewLock("l", sched)
	owner := kthread.New("owner", nil)
	other := kthread.New("other", nil)

	lock.Acquire(owner)
	require.Panics(t, func() { lock.Release(other) })
}

func TestLockHeldByCurrent(t *testing.T) {
	sched := kthread.NewScheduler()
	lock := NewLock("l", sched)
	self := kthread.New("self", nil)

	require.False(t, lock.HeldByCurrent(self))
	lock.Acquire(self)
	require.True(t, lock.HeldByCurrent(self))
	lock.Release(self)
	require.False(t, lock.HeldByCurrent(self))
}
