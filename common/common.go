// Package common holds the types shared across the kernel's packages and
// the interfaces for the collaborators this core treats as external: the
// MIPS machine, the free-sector bitmap, and the synchronous disk.
package common

// Err_t is the kernel-wide result code. 0 is success; negative values name a
// failure. Modeled on main.go's common.Err_t rather than a Go error, since
// it crosses the syscall boundary into a single register.
type Err_t int

const (
	OK Err_t = 0

	EINVAL  Err_t = -1 // bad argument (empty name, zero-length read, ...)
	ENOENT  Err_t = -2 // no such file
	ENOMEM  Err_t = -3 // out of address-space pages (no stack left for Fork)
	EMFILE  Err_t = -4 // too many open files
	EBADF   Err_t = -5 // bad file descriptor
	EEXIST  Err_t = -6 // create on a name that already exists
	EFAULT  Err_t = -7 // bad user pointer
	ENOSPC  Err_t = -8 // disk out of sectors
	EPIPE   Err_t = -9 // write to console input, read from console output
)

// Reserved file ids. User fids begin at FidOffset and index into a
// process's open-file table as id - FidOffset.
const (
	ConsoleInput  = 0
	ConsoleOutput = 1
	FidOffset     = 2
	MaxOpenFiles  = 100
)

// Syscall numbers, as delivered in trap frame register r2.
const (
	SysHalt  = 0
	SysExit  = 1
	SysExec  = 2 // unused
	SysJoin  = 3 // unused
	SysCreate = 4
	SysOpen  = 5
	SysRead  = 6
	SysWrite = 7
	SysClose = 8
	SysFork  = 9
	SysYield = 10
)

// Trap frame register indices, matching the MIPS calling convention this
// kernel's dispatcher decodes: r2 is the syscall number / return value,
// r4..r7 are arguments 1..4, r29 is the stack pointer. RegPC/RegNextPC/
// RegPrevPC sit outside the r0..r31 general-purpose file, matching
// exception.cc's PCReg/NextPCReg/PrevPCReg -- kept here rather than
// private to package trap because package proc's Fork also has to prime
// them when it sets up a forked thread's trampoline state.
const (
	RegResult = 2
	RegArg1   = 4
	RegArg2   = 5
	RegArg3   = 6
	RegArg4   = 7
	RegSP     = 29
	RegPC     = 32
	RegNextPC = 33
	RegPrevPC = 34
)

// TFSIZE is the number of words in a trap frame, named after main.go's
// common.TFSIZE constant.
const TFSIZE = 32

// PageSize is the byte size of one page/sector of simulated memory,
// matching original_source's PageSize == DiskSectorSize convention (the
// header file defining the constant itself was filtered out of the
// retrieval pack, so the value is taken from SectorSize in package fs).
const PageSize = 128

// Disk is the synchronous sector transport this core consumes but does not
// implement (spec: "the low-level asynchronous disk ... treated as a
// byte/sector transport that signals completion via an interrupt
// callback" - already synchronized for callers of this interface).
type Disk interface {
	ReadSector(sector int, buf []byte) Err_t
	WriteSector(sector int, buf []byte) Err_t
	SectorSize() int
}

// FreeMap is the free-sector bitmap this core consumes but does not
// implement (spec: "a set of free sector indices with find, clear, test,
// count-free").
type FreeMap interface {
	Find() (sector int, ok bool)
	Clear(sector int)
	Test(sector int) bool
	NumClear() int
}

// Machine is the simulated MIPS machine's register file and main memory,
// an external collaborator per spec.md §1.
type Machine interface {
	ReadRegister(n int) int
	WriteRegister(n int, v int)
	ReadMem(addr int, buf []byte) Err_t
	WriteMem(addr int, buf []byte) Err_t
	ReadCString(addr int, max int) (string, Err_t)
	Halt()
}

// AddrSpace is the per-process simulated address space this core consumes
// but does not build (the page-table/address-space loader is out of
// scope).
type AddrSpace interface {
	NumPages() int
	CreateStack() bool
	InitRegisters(m Machine, pc int)
	RestoreState()
}
