// Package kthread implements the kernel-level execution context (Thread)
// and the FIFO ready-queue scheduler surface that the synchronization
// primitives in package synch are built on.
package kthread

import (
	"sync"

	"github.com/cdave1/nachos/common"
)

// State is a Thread's scheduling state.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Finished
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Thread is a kernel-level execution context. It is owned, at any instant,
// by at most one of: the scheduler's ready queue, a wait queue (semaphore
// or condition variable), or a process's thread set -- never more than one,
// per spec.md's Thread invariant.
type Thread struct {
	Name  string
	Space common.AddrSpace // nil for a pure kernel thread

	mu    sync.Mutex
	state State
	wake  chan struct{}

	onQueue bool // debug check: never on two queues at once
}

// New creates a thread in the Ready state. It does not enqueue it anywhere;
// callers enqueue it on the scheduler or hand it directly to a forked
// goroutine.
func New(name string, space common.AddrSpace) *Thread {
	return &Thread{
		Name:  name,
		Space: space,
		state: Ready,
		wake:  make(chan struct{}, 1),
	}
}

// State reports the thread's current scheduling state.
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Thread) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// MarkQueued and ClearQueued enforce the "at most one queue" invariant at
// run time, in every build; they panic on violation rather than silently corrupting two
// queues at once. Callers are the wait queues in package synch.
func (t *Thread) MarkQueued() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.onQueue {
		panic("nachos: thread " + t.Name + " enqueued on more than one wait queue")
	}
	t.onQueue = true
}

func (t *Thread) ClearQueued() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQueue = false
}

// wakeup delivers a non-blocking wakeup signal, coalescing with any pending
// one the way a level-triggered wakeup would.
func (t *Thread) wakeup() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Sleep removes the thread from the run set and blocks until some other
// party calls ReadyToRun on it. Callers must already have left the thread
// off of every queue except the one that will later wake it (a semaphore
// or condition-variable wait queue); Sleep itself only parks the goroutine.
func (t *Thread) Sleep() {
	t.setState(Blocked)
	<-t.wake
	t.setState(Running)
}

// Finish marks a thread as no longer schedulable. It is called by the
// thread itself as the last thing it does before its goroutine returns.
func (t *Thread) Finish() {
	t.setState(Finished)
}

// Scheduler is the opaque FIFO ready queue spec.md's component B describes:
// ready_to_run(thread) appends to the queue and wakes it, yield() gives the
// next ready thread a turn.
type Scheduler struct {
	mu    sync.Mutex
	ready []*Thread
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// ReadyToRun appends thread to the FIFO ready queue and wakes its goroutine.
// Semaphore.V calls it with its irq.Gate held; Condition's Signal and
// Broadcast call it after restoring theirs. Scheduler's own lock only
// protects the ready-queue slice itself.
func (s *Scheduler) ReadyToRun(t *Thread) {
	s.mu.Lock()
	s.ready = append(s.ready, t)
	s.mu.Unlock()
	t.setState(Ready)
	t.wakeup()
}

// Yield gives the next ready thread a turn and returns. Go's own runtime
// does the real multiplexing of goroutines; this method's contribution is
// keeping the FIFO ready-queue bookkeeping consistent with Nachos's
// cooperative contract, so tests can assert on queue order and length.
func (s *Scheduler) Yield(self *Thread) {
	s.mu.Lock()
	var next *Thread
	if len(s.ready) > 0 {
		next = s.ready[0]
		s.ready = s.ready[1:]
	}
	s.mu.Unlock()
	if next != nil && next != self {
		next.wakeup()
	}
}

// Len reports the number of threads currently on the ready queue; used by
// tests asserting the scheduler drains correctly.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ready)
}
