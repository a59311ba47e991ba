package fs

import (
	"testing"

	"github.com/cdave1/nachos/common"
	"github.com/cdave1/nachos/kthread"
	"github.com/stretchr/testify/require"
)

func newTestFilesystem() (*Filesystem, *kthread.Thread) {
	disk := NewMemDisk()
	freeMap := NewMemFreeMap(10000)
	sched := kthread.NewScheduler()
	self := kthread.New("test", nil)
	return NewFilesystem(disk, freeMap, sched, 1), self
}

func TestFilesystemCreateOpenWriteRead(t *testing.T) {
	fsys, self := newTestFilesystem()

	require.Equal(t, common.OK, fsys.Create(self, "hello.txt", 0))

	f, err := fsys.Open(self, "hello.txt")
	require.Equal(t, common.OK, err)
	require.Equal(t, 0, f.Length())

	n, err := f.Write([]byte("hello world"))
	require.Equal(t, common.OK, err)
	require.Equal(t, 11, n)

	f2, err := fsys.Open(self, "hello.txt")
	require.Equal(t, common.OK, err)
	require.Equal(t, 11, f2.Length())

	buf := make([]byte, 11)
	n, err = f2.Read(buf)
	require.Equal(t, common.OK, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello world", string(buf))
}

func TestFilesystemCreateDuplicateFails(t *testing.T) {
	fsys, self := newTestFilesystem()
	require.Equal(t, common.OK, fsys.Create(self, "a", 0))
	require.Equal(t, common.EEXIST, fsys.Create(self, "a", 0))
}

func TestFilesystemOpenMissingFails(t *testing.T) {
	fsys, self := newTestFilesystem()
	_, err := fsys.Open(self, "nope")
	require.Equal(t, common.ENOENT, err)
}

// Write never transfers more than the bytes given to it, fixing
// original_source/userprog's off-by-one carry-over (spec.md Open
// Question #4).
func TestFilesystemWriteTransfersExactSize(t *testing.T) {
	fsys, self := newTestFilesystem()
	require.Equal(t, common.OK, fsys.Create(self, "f", 0))
	f, err := fsys.Open(self, "f")
	require.Equal(t, common.OK, err)

	payload := []byte("abc")
	n, err := f.Write(payload)
	require.Equal(t, common.OK, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, len(payload), f.Length())
}

// Reading past the end of a file returns however many bytes remain, not
// an error.
func TestFilesystemReadPastEOF(t *testing.T) {
	fsys, self := newTestFilesystem()
	require.Equal(t, common.OK, fsys.Create(self, "f", 0))
	f, err := fsys.Open(self, "f")
	require.Equal(t, common.OK, err)
	n, err := f.Write([]byte("ab"))
	require.Equal(t, common.OK, err)
	require.Equal(t, 2, n)

	f2, err := fsys.Open(self, "f")
	require.Equal(t, common.OK, err)
	buf := make([]byte, 10)
	n, err = f2.Read(buf)
	require.Equal(t, common.OK, err)
	require.Equal(t, 2, n)
}
