// Package trap decodes a trapped syscall from the machine's trap frame and
// routes it to the owning process, following
// original_source/userprog/exception.cc's ExceptionHandler and
// IncrementPC.
package trap

import (
	"github.com/sirupsen/logrus"

	"github.com/cdave1/nachos/common"
	"github.com/cdave1/nachos/kthread"
	"github.com/cdave1/nachos/proc"
)

// advance implements IncrementPC: prevPC takes the trapped pc, pc takes
// nextPC, and nextPC moves one instruction further -- run unconditionally,
// before the syscall result is known, exactly as exception.cc does it.
func advance(m common.Machine) {
	pc := m.ReadRegister(common.RegPC)
	nextPC := m.ReadRegister(common.RegNextPC)
	m.WriteRegister(common.RegPrevPC, pc)
	m.WriteRegister(common.RegPC, nextPC)
	m.WriteRegister(common.RegNextPC, nextPC+4)
}

// Dispatch decodes the syscall trapped into m's register file, routes it to
// proc/self, advances the program counter, and reports whether the
// machine should keep running. A false return means the syscall failed or
// asked to halt; per exception.cc, any syscall failure takes down the
// whole machine rather than just the offending process (spec.md §7's
// documented simplification).
func Dispatch(p *proc.Process, self *kthread.Thread, m common.Machine) (keepRunning bool) {
	syscall := m.ReadRegister(common.RegResult)
	arg1 := m.ReadRegister(common.RegArg1)
	arg2 := m.ReadRegister(common.RegArg2)
	arg3 := m.ReadRegister(common.RegArg3)

	advance(m)

	switch syscall {
	case common.SysHalt:
		m.Halt()
		return false

	case common.SysExit:
		halt := p.Exit(self, arg1)
		if halt {
			m.Halt()
			return false
		}
		return true

	case common.SysCreate:
		name, err := m.ReadCString(arg1, 256)
		if err != common.OK {
			return fatal(m, "Create: bad name pointer")
		}
		if err := p.FileCreate(self, name); err != common.OK {
			return fatal(m, "Create failed")
		}
		m.WriteRegister(common.RegResult, int(common.OK))
		return true

	case common.SysOpen:
		name, err := m.ReadCString(arg1, 256)
		if err != common.OK {
			return fatal(m, "Open: bad name pointer")
		}
		fid, oerr := p.FileOpen(self, name)
		if oerr != common.OK {
			return fatal(m, "Open failed")
		}
		m.WriteRegister(common.RegResult, fid)
		return true

	case common.SysRead:
		buf := make([]byte, arg2)
		n, rerr := p.FileRead(self, arg3, buf)
		if rerr != common.OK {
			return fatal(m, "Read failed")
		}
		if err := m.WriteMem(arg1, buf[:n]); err != common.OK {
			return fatal(m, "Read: bad buffer pointer")
		}
		m.WriteRegister(common.RegResult, n)
		return true

	case common.SysWrite:
		buf := make([]byte, arg2)
		if err := m.ReadMem(arg1, buf); err != common.OK {
			return fatal(m, "Write: bad buffer pointer")
		}
		if werr := p.FileWrite(self, arg3, buf); werr != common.OK {
			return fatal(m, "Write failed")
		}
		m.WriteRegister(common.RegResult, int(common.OK))
		return true

	case common.SysClose:
		if err := p.FileClose(arg1); err != common.OK {
			return fatal(m, "Close failed")
		}
		m.WriteRegister(common.RegResult, int(common.OK))
		return true

	case common.SysFork:
		if _, err := p.Fork(m, arg1); err != common.OK {
			return fatal(m, "Fork failed")
		}
		m.WriteRegister(common.RegResult, int(common.OK))
		return true

	case common.SysYield:
		p.Yield(self)
		return true

	default:
		return fatal(m, "unexpected exception")
	}
}

func fatal(m common.Machine, msg string) bool {
	logrus.WithField("msg", msg).Error("fatal trap")
	m.Halt()
	return false
}
