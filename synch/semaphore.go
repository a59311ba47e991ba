// Package synch implements the kernel's synchronization primitives --
// semaphore, lock, condition variable, and readers/writers lock -- all
// built on package irq's atomicity primitive and package kthread's
// scheduler surface, following original_source/threads/synch.cc method for
// method.
package synch

import (
	"fmt"

	"github.com/cdave1/nachos/irq"
	"github.com/cdave1/nachos/kthread"
)

// Semaphore is a non-negative counter with a blocking decrement (P) and a
// waking increment (V). A thread appears in at most one semaphore/CV wait
// queue at a time (spec.md's Semaphore invariant), enforced via
// kthread.Thread's queued-once debug check.
type Semaphore struct {
	Name string

	gate  irq.Gate
	sched *kthread.Scheduler
	value int
	waitq []*kthread.Thread
}

// NewSemaphore constructs a semaphore with the given debug name and initial
// value, scheduled by sched.
func NewSemaphore(name string, initial int, sched *kthread.Scheduler) *Semaphore {
	if initial < 0 {
		panic(fmt.Sprintf("nachos: semaphore %q initialized negative", name))
	}
	return &Semaphore{Name: name, value: initial, sched: sched}
}

// P waits until the semaphore's value is positive, then decrements it.
// self is the calling thread, threaded explicitly rather than tracked as
// global/goroutine-local state (spec.md §9's "kernel context" design
// note).
func (s *Semaphore) P(self *kthread.Thread) {
	lvl := s.gate.Disable()
	for s.value == 0 {
		self.MarkQueued()
		s.waitq = append(s.waitq, self)
		s.gate.Restore(lvl)
		self.Sleep()
		lvl = s.gate.Disable()
	}
	s.value--
	s.gate.Restore(lvl)
}

// V wakes the head of the wait queue, if any, and then increments the
// value. The order matters: a waiter that resumes from P must already see
// the incremented value, so V's wakeup must be enqueued before the
// increment completes under the same disabled section (spec.md §4.C).
func (s *Semaphore) V(self *kthread.Thread) {
	lvl := s.gate.Disable()
	if len(s.waitq) > 0 {
		next := s.waitq[0]
		s.waitq = s.waitq[1:]
		next.ClearQueued()
		s.sched.ReadyToRun(next)
	}
	s.value++
	s.gate.Restore(lvl)
}

// Value reports the current count; for tests only (spec.md §8's semaphore
// conservation property).
func (s *Semaphore) Value() int {
	lvl := s.gate.Disable()
	defer s.gate.Restore(lvl)
	return s.value
}

// WaitLen reports the number of threads currently queued; for tests only.
func (s *Semaphore) WaitLen() int {
	lvl := s.gate.Disable()
	defer s.gate.Restore(lvl)
	return len(s.waitq)
}
