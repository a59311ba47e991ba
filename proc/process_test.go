package proc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdave1/nachos/common"
	"github.com/cdave1/nachos/fs"
	"github.com/cdave1/nachos/kthread"
)

func newTestProcess(t *testing.T) (*Process, *kthread.Thread) {
	sched := kthread.NewScheduler()
	disk := fs.NewMemDisk()
	freeMap := fs.NewMemFreeMap(1000)
	fsys := fs.NewFilesystem(disk, freeMap, sched, 1)
	root := kthread.New("root", nil)
	p := New("prog", root, nil, fsys, nil, sched)
	require.NotEqual(t, p.DebugID.String(), "")
	return p, root
}

// fakeAddrSpace is a minimal common.AddrSpace standing in for the real
// page-table-backed address space, which is out of scope: it tracks a
// fixed page budget and a single-stack allotment, and records whether
// InitRegisters/RestoreState were invoked.
type fakeAddrSpace struct {
	pages       int
	stackTaken  bool
	initialized bool
	restored    bool
}

func (a *fakeAddrSpace) NumPages() int { return a.pages }

func (a *fakeAddrSpace) CreateStack() bool {
	if a.stackTaken {
		return false
	}
	a.stackTaken = true
	return true
}

func (a *fakeAddrSpace) InitRegisters(m common.Machine, pc int) { a.initialized = true }

func (a *fakeAddrSpace) RestoreState() { a.restored = true }

// fakeMachine is a minimal common.Machine standing in for the MIPS
// simulator, which is out of scope: a register map and nothing else.
type fakeMachine struct {
	regs [64]int
}

func (m *fakeMachine) ReadRegister(n int) int   { return m.regs[n] }
func (m *fakeMachine) WriteRegister(n int, v int) { m.regs[n] = v }
func (m *fakeMachine) ReadMem(addr int, buf []byte) common.Err_t  { return common.OK }
func (m *fakeMachine) WriteMem(addr int, buf []byte) common.Err_t { return common.OK }
func (m *fakeMachine) ReadCString(addr int, max int) (string, common.Err_t) {
	return "", common.OK
}
func (m *fakeMachine) Halt() {}

func newForkableTestProcess(t *testing.T) (*Process, *kthread.Thread, *fakeAddrSpace) {
	sched := kthread.NewScheduler()
	disk := fs.NewMemDisk()
	freeMap := fs.NewMemFreeMap(1000)
	fsys := fs.NewFilesystem(disk, freeMap, sched, 1)
	root := kthread.New("root", nil)
	space := &fakeAddrSpace{pages: 8}
	p := New("prog", root, space, fsys, nil, sched)
	return p, root, space
}

// Standing in for original_source/test/exittest.c: the root thread of a
// process with no forked threads reports halt on Exit.
func TestExitRootAloneHalts(t *testing.T) {
	p, root := newTestProcess(t)
	require.True(t, p.Exit(root, 0))
}

// Standing in for original_source/test/forktest.c: a process whose root
// thread exits while a forked thread is still live keeps running; the
// forked thread's own later exit does not halt either, since it isn't the
// root.
func TestExitRootWithForkedThreadDoesNotHalt(t *testing.T) {
	p, root, space := newForkableTestProcess(t)
	m := &fakeMachine{}
	child, err := p.Fork(m, 0x1000)
	require.Equal(t, common.OK, err)
	require.Equal(t, 2, p.ThreadCount())
	require.True(t, space.stackTaken)
	require.True(t, space.initialized)
	require.True(t, space.restored)
	require.Equal(t, 0x1000, m.ReadRegister(common.RegPC))
	require.Equal(t, 0x1004, m.ReadRegister(common.RegNextPC))
	require.Equal(t, space.NumPages()*common.PageSize-16, m.ReadRegister(common.RegSP))

	require.False(t, p.Exit(root, 0))
	require.False(t, p.Exit(child, 0))
}

// A process whose address space has no free page for another stack fails
// Fork with ENOMEM rather than scheduling a thread it can't actually give a
// stack to.
func TestForkFailsWhenStackExhausted(t *testing.T) {
	p, _, space := newForkableTestProcess(t)
	space.stackTaken = true
	m := &fakeMachine{}

	child, err := p.Fork(m, 0x2000)
	require.Nil(t, child)
	require.Equal(t, common.ENOMEM, err)
	require.Equal(t, 1, p.ThreadCount())
}

// Standing in for original_source/test/catfile.c / writefile.c: a file is
// created, opened, written, closed, reopened, and read back.
func TestFileCreateWriteReadClose(t *testing.T) {
	p, root := newTestProcess(t)

	require.Equal(t, common.OK, p.FileCreate(root, "data.txt"))

	fid, err := p.FileOpen(root, "data.txt")
	require.Equal(t, common.OK, err)
	require.GreaterOrEqual(t, fid, common.FidOffset)

	require.Equal(t, common.OK, p.FileWrite(root, fid, []byte("contents")))
	require.Equal(t, common.OK, p.FileClose(fid))

	fid2, err := p.FileOpen(root, "data.txt")
	require.Equal(t, common.OK, err)

	buf := make([]byte, 8)
	n, err := p.FileRead(root, fid2, buf)
	require.Equal(t, common.OK, err)
	require.Equal(t, 8, n)
	require.Equal(t, "contents", string(buf))
}

// Standing in for original_source/test/fail.c: operating on a closed or
// never-opened fid fails explicitly rather than silently succeeding
// (spec.md Open Question #3's slot-reuse fix).
func TestFileCloseThenReadFails(t *testing.T) {
	p, root := newTestProcess(t)
	require.Equal(t, common.OK, p.FileCreate(root, "f"))
	fid, err := p.FileOpen(root, "f")
	require.Equal(t, common.OK, err)
	require.Equal(t, common.OK, p.FileClose(fid))

	_, err = p.FileRead(root, fid, make([]byte, 1))
	require.Equal(t, common.EBADF, err)

	require.Equal(t, common.EBADF, p.FileClose(fid))
}

// Two files opened concurrently get distinct fids, and closing one does
// not disturb the other's slot -- the bug original_source's fileCounter
// decrement could cause.
func TestFileCloseDoesNotDisturbOtherSlot(t *testing.T) {
	p, root := newTestProcess(t)
	require.Equal(t, common.OK, p.FileCreate(root, "a"))
	require.Equal(t, common.OK, p.FileCreate(root, "b"))

	fidA, err := p.FileOpen(root, "a")
	require.Equal(t, common.OK, err)
	fidB, err := p.FileOpen(root, "b")
	require.Equal(t, common.OK, err)
	require.NotEqual(t, fidA, fidB)

	require.Equal(t, common.OK, p.FileClose(fidA))
	// fidB's slot must still work.
	require.Equal(t, common.OK, p.FileWrite(root, fidB, []byte("x")))
}

// Standing in for original_source/test/copyconsole.c: writing to the
// console input fid, or reading from the console output fid, fails rather
// than silently doing nothing.
func TestConsoleFidsRejectWrongDirection(t *testing.T) {
	p, root := newTestProcess(t)
	require.Equal(t, common.EPIPE, p.FileWrite(root, common.ConsoleInput, []byte("x")))
	_, err := p.FileRead(root, common.ConsoleOutput, make([]byte, 1))
	require.Equal(t, common.EPIPE, err)
}

func TestFileOpenTableFull(t *testing.T) {
	p, root := newTestProcess(t)
	for i := 0; i < common.MaxOpenFiles; i++ {
		name := string(rune('a' + i%26))
		require.Equal(t, common.OK, p.FileCreate(root, name+string(rune(i))))
		_, err := p.FileOpen(root, name+string(rune(i)))
		require.Equal(t, common.OK, err)
	}
	require.Equal(t, common.OK, p.FileCreate(root, "overflow"))
	_, err := p.FileOpen(root, "overflow")
	require.Equal(t, common.EMFILE, err)
}
