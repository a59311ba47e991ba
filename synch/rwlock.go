package synch

import (
	"fmt"

	"github.com/cdave1/nachos/kthread"
)

// rwStatus is the readers/writers lock's tri-state, named after
// original_source/threads/synch.cc's lockStatus field.
type rwStatus int

const (
	rwFree rwStatus = iota
	rwRead
	rwWrite
)

// RWLock lets many readers or one exclusive writer access a resource, used
// by the filesystem layer to guard its directory of names. Readers and
// writers share a single condition variable; a continuous stream of
// readers can starve a writer indefinitely. That is an accepted,
// documented non-goal (spec.md §4.F), not a bug to fix here.
type RWLock struct {
	Name string

	lock   *Lock
	cond   *Condition
	count  int
	status rwStatus
	writer *kthread.Thread
}

// NewRWLock constructs a free readers/writers lock scheduled by sched.
func NewRWLock(name string, sched *kthread.Scheduler) *RWLock {
	return &RWLock{
		Name: name,
		lock: NewLock(name+".mu", sched),
		cond: NewCondition(name+".cv", sched),
	}
}

// ReadLock blocks while a writer holds the lock, then joins as a reader.
func (r *RWLock) ReadLock(self *kthread.Thread) {
	r.lock.Acquire(self)
	for r.status == rwWrite {
		r.cond.Wait(self, r.lock)
	}
	if r.status == rwFree {
		r.status = rwRead
	}
	r.count++
	r.lock.Release(self)
}

// ReadUnlock leaves as a reader, freeing the lock and waking waiters once
// the last reader departs.
func (r *RWLock) ReadUnlock(self *kthread.Thread) {
	r.lock.Acquire(self)
	if r.status != rwRead {
		r.lock.Release(self)
		panic(fmt.Sprintf("nachos: %q ReadUnlock while not held for reading", r.Name))
	}
	r.count--
	if r.count == 0 {
		r.status = rwFree
		r.cond.Broadcast(self, r.lock)
	}
	r.lock.Release(self)
}

// WriteLock blocks until the lock is entirely free, then takes it
// exclusively.
func (r *RWLock) WriteLock(self *kthread.Thread) {
	r.lock.Acquire(self)
	for r.status != rwFree {
		r.cond.Wait(self, r.lock)
	}
	r.writer = self
	r.status = rwWrite
	r.lock.Release(self)
}

// WriteUnlock releases exclusive ownership and wakes waiters.
func (r *RWLock) WriteUnlock(self *kthread.Thread) {
	r.lock.Acquire(self)
	if r.status != rwWrite || r.writer != self {
		r.lock.Release(self)
		panic(fmt.Sprintf("nachos: %q WriteUnlock by non-writer", r.Name))
	}
	r.status = rwFree
	r.writer = nil
	r.cond.Broadcast(self, r.lock)
	r.lock.Release(self)
}

// Stats reports reader count and whether a writer currently holds the
// lock, for the exclusion property test (spec.md §8 property 4).
func (r *RWLock) Stats(self *kthread.Thread) (readers int, writing bool) {
	r.lock.Acquire(self)
	readers, writing = r.count, r.status == rwWrite
	r.lock.Release(self)
	return
}
