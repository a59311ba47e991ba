// Package kernel wires the synchronization, filesystem, console, and
// process/trap layers into a running system: format a disk, bring up the
// scheduler's worker pool, install the first process, and run it to
// completion. Follows main.go's tail -- attach_devs/cpus_start/fs.MkFS/exec
// -- generalized off the MIPS-and-APIC-specific bring-up it actually does.
package kernel

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cdave1/nachos/common"
	"github.com/cdave1/nachos/console"
	"github.com/cdave1/nachos/fs"
	"github.com/cdave1/nachos/kthread"
	"github.com/cdave1/nachos/proc"
	"github.com/cdave1/nachos/trap"
)

// Config describes a system to bring up.
type Config struct {
	NumSectors  int
	NumCPUs     int
	InitProgram string
}

// System is a fully booted kernel instance: the shared scheduler, disk,
// free map, filesystem, and console every process and CPU worker run
// against.
type System struct {
	Sched   *kthread.Scheduler
	Disk    common.Disk
	FreeMap common.FreeMap
	Fsys    *fs.Filesystem
	Console *console.Console

	// Init is the root process StartInit installed, or nil before StartInit
	// runs.
	Init *proc.Process

	log *logrus.Entry
}

// Boot formats a fresh disk per cfg and returns a System ready to run
// processes. dev is the asynchronous character device backing the
// console; it stands in for the real hardware UART main.go's kbd_init
// attaches.
func Boot(cfg Config, dev console.Device) *System {
	log := logrus.WithField("component", "kernel")
	log.WithField("sectors", cfg.NumSectors).WithField("cpus", cfg.NumCPUs).Info("booting")

	sched := kthread.NewScheduler()
	disk := fs.NewMemDisk()
	freeMap := fs.NewMemFreeMap(cfg.NumSectors)
	fsys := fs.NewFilesystem(disk, freeMap, sched, 1)
	con := console.New(dev, sched)

	return &System{
		Sched:   sched,
		Disk:    disk,
		FreeMap: freeMap,
		Fsys:    fsys,
		Console: con,
		log:     log,
	}
}

// BringUpCPUs starts n worker goroutines, standing in for main.go's
// cpus_start bringing up n APs; the workers do nothing beyond calling
// run, and do not touch the scheduler's ready queue themselves. Each
// worker runs run(ctx) until ctx is cancelled or returns an error; the
// first error cancels every other worker, matching errgroup.Group's usual
// contract.
func (s *System) BringUpCPUs(ctx context.Context, n int, run func(ctx context.Context, cpu int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		cpu := i
		g.Go(func() error {
			s.log.WithField("cpu", cpu).Debug("cpu started")
			return run(gctx, cpu)
		})
	}
	return g.Wait()
}

// RunProcess installs p's root thread on self's goroutine, dispatching
// trapped syscalls against m until the dispatcher reports the machine
// should stop. This is the Go-native replacement for main.go's
// sys_execv1/sched_add/Run sequence: one goroutine per user thread, a
// blocking Dispatch loop instead of a trap handler returning into
// machine.Run().
func (s *System) RunProcess(p *proc.Process, self *kthread.Thread, m common.Machine) {
	for {
		if !trap.Dispatch(p, self, m) {
			return
		}
	}
}

// StartInit opens cfg.InitProgram from the booted filesystem, builds the
// root process around it, primes space/m with that process's entry-point
// trampoline (the same register priming Process.Fork does for a forked
// thread, applied here to the root thread's very first instruction), and
// drives it to completion via RunProcess. It fails explicitly if the named
// program does not exist -- the realistic case for a freshly formatted disk
// -- rather than silently starting nothing, closing the gap left by
// main.go's exec() of a hardcoded init binary.
func (s *System) StartInit(cfg Config, space common.AddrSpace, m common.Machine) error {
	root := kthread.New(cfg.InitProgram, space)
	if _, err := s.Fsys.Open(root, cfg.InitProgram); err != common.OK {
		return fmt.Errorf("nachos: open init program %q failed: err %d", cfg.InitProgram, err)
	}

	p := proc.New(cfg.InitProgram, root, space, s.Fsys, s.Console, s.Sched)
	s.Init = p

	space.InitRegisters(m, 0)
	space.RestoreState()
	m.WriteRegister(common.RegSP, space.NumPages()*common.PageSize-16)
	m.WriteRegister(common.RegPC, 0)
	m.WriteRegister(common.RegNextPC, 4)

	s.log.WithField("program", cfg.InitProgram).Info("starting init")
	s.RunProcess(p, root, m)
	return nil
}

// Shutdown logs a final message; there's no hardware to power off in this
// simulation, so this is intentionally a no-op beyond that.
func (s *System) Shutdown() {
	s.log.Info("halted")
}
