package synch

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdave1/nachos/kthread"
)

// boundedBuffer is a fixed-capacity ring buffer built from two counting
// semaphores (empty slots, full slots) and a lock guarding the ring
// itself, grounded on original_source/threads/boundedbuffer.cc.
type boundedBuffer struct {
	lock  *Lock
	empty *Semaphore
	full  *Semaphore

	items []string
	head  int
	tail  int
}

func newBoundedBuffer(capacity int, sched *kthread.Scheduler) *boundedBuffer {
	return &boundedBuffer{
		lock:  NewLock("buf", sched),
		empty: NewSemaphore("buf.empty", capacity, sched),
		full:  NewSemaphore("buf.full", 0, sched),
		items: make([]string, capacity),
	}
}

func (b *boundedBuffer) put(self *kthread.Thread, item string) {
	b.empty.P(self)
	b.lock.Acquire(self)
	b.items[b.tail] = item
	b.tail = (b.tail + 1) % len(b.items)
	b.lock.Release(self)
	b.full.V(self)
}

func (b *boundedBuffer) take(self *kthread.Thread) string {
	b.full.P(self)
	b.lock.Acquire(self)
	item := b.items[b.head]
	b.head = (b.head + 1) % len(b.items)
	b.lock.Release(self)
	b.empty.V(self)
	return item
}

// E5: 10 producers and 10 consumers around a capacity-10 bounded buffer,
// each producer writing "Hello World" 11 times; every item produced is
// eventually consumed, and the buffer's own lock never admits two holders
// at once (checked implicitly by the ring never being corrupted).
func TestBoundedBufferProducerConsumer(t *testing.T) {
	const (
		producers    = 10
		consumers    = 10
		perProducer  = 11
		capacity     = 10
	)
	sched := kthread.NewScheduler()
	buf := newBoundedBuffer(capacity, sched)

	var produced sync.WaitGroup
	for i := 0; i < producers; i++ {
		produced.Add(1)
		go func(i int) {
			defer produced.Done()
			self := kthread.New("producer", nil)
			for j := 0; j < perProducer; j++ {
				buf.put(self, "Hello World")
			}
		}(i)
	}

	var taken int64
	var wg sync.WaitGroup
	total := int64(producers * perProducer)
	results := make(chan string, int(total))
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			self := kthread.New("consumer", nil)
			for {
				if atomic.AddInt64(&taken, 1) > total {
					return
				}
				results <- buf.take(self)
			}
		}()
	}

	produced.Wait()
	wg.Wait()
	close(results)

	count := 0
	for item := range results {
		require.Equal(t, "Hello World", item)
		count++
	}
	require.EqualValues(t, total, count)
}

// bridge is a one-lane, fixed-capacity, two-direction crossing monitor: a
// lock plus a single condition variable guards a direction and an
// occupant count, admitting a car only when the bridge is empty, or
// already carrying cars the same way with room for one more. Grounded on
// original_source/threads/bridge.cc.
type bridge struct {
	lock     *Lock
	cond     *Condition
	capacity int

	occupants  int
	northbound bool // meaningless while occupants == 0
	violations int32
}

func newBridge(sched *kthread.Scheduler, capacity int) *bridge {
	return &bridge{
		lock:     NewLock("bridge", sched),
		cond:     NewCondition("bridge.cv", sched),
		capacity: capacity,
	}
}

// enter blocks until there's room to cross northbound (or southbound),
// re-testing its predicate on every wake per Mesa semantics. The invariant
// check happens here, still under the bridge's own lock, so it observes
// the true occupancy at the instant of entry rather than racing a
// concurrent leave/enter.
func (b *bridge) enter(self *kthread.Thread, northbound bool) {
	b.lock.Acquire(self)
	for b.occupants > 0 && (b.northbound != northbound || b.occupants >= b.capacity) {
		b.cond.Wait(self, b.lock)
	}
	if b.occupants > 0 && b.northbound != northbound {
		b.violations++
	}
	b.northbound = northbound
	b.occupants++
	if b.occupants < 1 || b.occupants > b.capacity {
		b.violations++
	}
	b.lock.Release(self)
}

// leave departs the bridge, waking every waiter so the one whose
// direction now fits (or who can start a fresh empty-bridge crossing)
// re-checks its predicate.
func (b *bridge) leave(self *kthread.Thread) {
	b.lock.Acquire(self)
	b.occupants--
	b.cond.Broadcast(self, b.lock)
	b.lock.Release(self)
}

func (b *bridge) cross(self *kthread.Thread, northbound bool) {
	b.enter(self, northbound)
	b.leave(self)
}

// E6: 20 cars each cross 60 times, alternating direction every crossing;
// the bridge never holds cars going both ways at once, and never more
// than its 3-car capacity.
func TestBridgeAlternatingDirections(t *testing.T) {
	const cars = 20
	const crossings = 60
	const capacity = 3

	sched := kthread.NewScheduler()
	b := newBridge(sched, capacity)

	var wg sync.WaitGroup
	for i := 0; i < cars; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			self := kthread.New("car", nil)
			for c := 0; c < crossings; c++ {
				northbound := (i+c)%2 == 0
				b.cross(self, northbound)
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, b.violations)
	require.Equal(t, 0, b.occupants)
}
