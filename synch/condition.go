package synch

import (
	"github.com/cdave1/nachos/irq"
	"github.com/cdave1/nachos/kthread"
)

// Condition is a Mesa-style condition variable: not bound to a particular
// lock at construction, since each Wait supplies the lock to release and
// reacquire (spec.md §4.E). Mesa semantics mean a woken waiter must
// re-test its predicate -- callers always write
// "for !predicate { cv.Wait(self, lock) }", never a bare if.
type Condition struct {
	Name string

	gate  irq.Gate
	sched *kthread.Scheduler
	waitq []*kthread.Thread
}

// NewCondition constructs an empty condition variable scheduled by sched.
func NewCondition(name string, sched *kthread.Scheduler) *Condition {
	return &Condition{Name: name, sched: sched}
}

// Wait requires that self hold lock; it atomically enqueues self, releases
// lock, sleeps, and reacquires lock before returning.
func (c *Condition) Wait(self *kthread.Thread, lock *Lock) {
	lock.assertHeldBy(self)

	lvl := c.gate.Disable()
	self.MarkQueued()
	c.waitq = append(c.waitq, self)
	c.gate.Restore(lvl)

	lock.Release(self)
	self.Sleep()
	lock.Acquire(self)
}

// Signal wakes at most one waiter, in FIFO order. The signaller keeps the
// lock; the woken thread will not actually run its own code until the
// signaller releases it.
func (c *Condition) Signal(self *kthread.Thread, lock *Lock) {
	lock.assertHeldBy(self)

	lvl := c.gate.Disable()
	var next *kthread.Thread
	if len(c.waitq) > 0 {
		next = c.waitq[0]
		c.waitq = c.waitq[1:]
	}
	c.gate.Restore(lvl)

	if next != nil {
		next.ClearQueued()
		c.sched.ReadyToRun(next)
	}
}

// Broadcast wakes every thread currently waiting. It makes no promise
// about threads that begin waiting after the broadcast (spec.md §5).
func (c *Condition) Broadcast(self *kthread.Thread, lock *Lock) {
	lock.assertHeldBy(self)

	lvl := c.gate.Disable()
	waiters := c.waitq
	c.waitq = nil
	c.gate.Restore(lvl)

	for _, t := range waiters {
		t.ClearQueued()
		c.sched.ReadyToRun(t)
	}
}

// WaitLen reports the number of threads currently waiting; for tests only.
func (c *Condition) WaitLen() int {
	lvl := c.gate.Disable()
	defer c.gate.Restore(lvl)
	return len(c.waitq)
}
