// Package console wraps an asynchronous character device behind a lock and
// a pair of semaphores, turning its interrupt-driven completion callbacks
// into ordinary blocking ReadLine/WriteLine calls. Grounded on
// original_source/userprog/syncconsole.cc.
package console

import (
	"github.com/cdave1/nachos/kthread"
	"github.com/cdave1/nachos/synch"
)

// Device is the asynchronous character device this package multiplexes.
// PutChar/GetChar are expected to be non-blocking and to eventually invoke
// the registered callback from an interrupt handler once the hardware
// finishes the transfer -- the real one has no such synchronous return,
// this interface just asks it to signal completion by calling back.
type Device interface {
	PutChar(c byte)
	GetChar() byte
	SetWriteDoneCallback(func())
	SetReadAvailCallback(func())
}

// Console serializes access to an async Device so callers can read and
// write a line at a time without juggling completion callbacks themselves.
type Console struct {
	device Device

	lock       *synch.Lock
	readAvail  *synch.Semaphore
	writeDone  *synch.Semaphore
}

// New wraps device, registering its own completion callbacks in place of
// any the caller may have already set.
func New(device Device, sched *kthread.Scheduler) *Console {
	c := &Console{
		device:    device,
		lock:      synch.NewLock("console", sched),
		readAvail: synch.NewSemaphore("console.readAvail", 0, sched),
		writeDone: synch.NewSemaphore("console.writeDone", 0, sched),
	}
	device.SetReadAvailCallback(func() { c.readAvail.V(nil) })
	device.SetWriteDoneCallback(func() { c.writeDone.V(nil) })
	return c
}

// WriteLine writes every byte of line to the device, one character at a
// time, waiting for each character's completion interrupt before sending
// the next.
func (c *Console) WriteLine(self *kthread.Thread, line []byte) {
	c.lock.Acquire(self)
	for _, ch := range line {
		c.device.PutChar(ch)
		c.writeDone.P(self)
	}
	c.lock.Release(self)
}

// ReadLine blocks until a full line (terminated by '\n' or max bytes) has
// arrived, reading one character at a time as readAvail interrupts fire.
func (c *Console) ReadLine(self *kthread.Thread, max int) []byte {
	c.lock.Acquire(self)
	var line []byte
	for len(line) < max {
		c.readAvail.P(self)
		ch := c.device.GetChar()
		line = append(line, ch)
		if ch == '\n' {
			break
		}
	}
	c.lock.Release(self)
	return line
}
