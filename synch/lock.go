package synch

import (
	"fmt"

	"github.com/cdave1/nachos/irq"
	"github.com/cdave1/nachos/kthread"
)

// Lock is a mutual-exclusion primitive built on a binary semaphore plus an
// owner field, following original_source/threads/synch.cc's Lock exactly:
// Acquire performs P and then, under interrupts disabled, records the
// owner; Release clears the owner and then performs V.
type Lock struct {
	Name string

	sem   *Semaphore
	gate  irq.Gate
	owner *kthread.Thread
}

// NewLock constructs an unheld lock scheduled by sched.
func NewLock(name string, sched *kthread.Scheduler) *Lock {
	return &Lock{Name: name, sem: NewSemaphore(name, 1, sched)}
}

// Acquire blocks until the lock is free, then takes it.
func (l *Lock) Acquire(self *kthread.Thread) {
	l.sem.P(self)
	lvl := l.gate.Disable()
	l.owner = self
	l.gate.Restore(lvl)
}

// Release gives up the lock, waking at most one waiter. It is a
// programming error -- a fatal assertion, per spec.md §4.D -- to release a
// lock the current thread does not hold.
func (l *Lock) Release(self *kthread.Thread) {
	lvl := l.gate.Disable()
	if l.owner != self {
		l.gate.Restore(lvl)
		panic(fmt.Sprintf("nachos: %q released by non-owner %q", l.Name, self.Name))
	}
	l.owner = nil
	l.gate.Restore(lvl)
	l.sem.V(self)
}

// HeldByCurrent reports whether self is the current owner.
func (l *Lock) HeldByCurrent(self *kthread.Thread) bool {
	lvl := l.gate.Disable()
	defer l.gate.Restore(lvl)
	return l.owner == self
}

// Owner returns the current owner, or nil if the lock is free. Exposed for
// tests asserting mutual exclusion (spec.md §8 property 2).
func (l *Lock) Owner() *kthread.Thread {
	lvl := l.gate.Disable()
	defer l.gate.Restore(lvl)
	return l.owner
}

// WaitLen reports the number of threads currently blocked trying to
// acquire the lock; for tests only.
func (l *Lock) WaitLen() int {
	return l.sem.WaitLen()
}

// assertHeldBy panics if self does not hold the lock; used by Condition to
// enforce spec.md §4.D's "wait on a CV while not holding its lock" fatal
// assertion.
func (l *Lock) assertHeldBy(self *kthread.Thread) {
	if !l.HeldByCurrent(self) {
		panic(fmt.Sprintf("nachos: %q used without holding lock %q", self.Name, l.Name))
	}
}
