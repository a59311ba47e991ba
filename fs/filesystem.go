package fs

import (
	"github.com/cdave1/nachos/common"
	"github.com/cdave1/nachos/kthread"
	"github.com/cdave1/nachos/synch"
)

// Filesystem ties file headers to a flat directory of names, standing in
// for the directory layer spec.md doesn't cover (the core here is the
// header, not the directory). Concurrent access is guarded by an
// synch.RWLock -- many concurrent Open lookups, one Create at a
// time -- the same readers/writers lock component F defines, given a real
// caller beyond its own tests.
type Filesystem struct {
	disk    common.Disk
	freeMap common.FreeMap

	dirLock *synch.RWLock
	entries map[string]int // name -> header sector
	next    int             // firstDataSector as given; not consulted afterwards
}

// NewFilesystem formats a fresh filesystem over disk using freeMap for
// sector accounting. firstDataSector is recorded but not consulted: every
// header and data sector is taken from freeMap.
func NewFilesystem(disk common.Disk, freeMap common.FreeMap, sched *kthread.Scheduler, firstDataSector int) *Filesystem {
	return &Filesystem{
		disk:    disk,
		freeMap: freeMap,
		dirLock: synch.NewRWLock("fs.directory", sched),
		entries: make(map[string]int),
		next:    firstDataSector,
	}
}

// Create makes a new, empty file named name with an initial size of
// initialBytes (it is immediately extended to that size, matching the
// original fileSystem->Create(name, size) contract process.cc relies on).
func (fsys *Filesystem) Create(self *kthread.Thread, name string, initialBytes int) common.Err_t {
	if name == "" {
		return common.EINVAL
	}

	fsys.dirLock.WriteLock(self)
	defer fsys.dirLock.WriteUnlock(self)

	if _, exists := fsys.entries[name]; exists {
		return common.EEXIST
	}

	headerSector, ok := fsys.freeMap.Find()
	if !ok {
		return common.ENOSPC
	}

	var hdr FileHeader
	if initialBytes > 0 {
		if err := hdr.Allocate(fsys.disk, fsys.freeMap, initialBytes); err != common.OK {
			fsys.freeMap.Clear(headerSector)
			return err
		}
	}
	if err := hdr.WriteBack(fsys.disk, headerSector); err != common.OK {
		return err
	}

	fsys.entries[name] = headerSector
	return common.OK
}

// Open returns a fresh OpenFile for name, or ENOENT if it doesn't exist.
func (fsys *Filesystem) Open(self *kthread.Thread, name string) (*OpenFile, common.Err_t) {
	fsys.dirLock.ReadLock(self)
	sector, ok := fsys.entries[name]
	fsys.dirLock.ReadUnlock(self)
	if !ok {
		return nil, common.ENOENT
	}

	var hdr FileHeader
	if err := hdr.FetchFrom(fsys.disk, sector); err != common.OK {
		return nil, err
	}
	return &OpenFile{disk: fsys.disk, freeMap: fsys.freeMap, header: &hdr, headerSector: sector}, common.OK
}

// OpenFile is a file handle with an internal sequential cursor, following
// original_source/userprog's OpenFile::Read/Write contract.
type OpenFile struct {
	disk         common.Disk
	freeMap      common.FreeMap
	header       *FileHeader
	headerSector int
	pos          int
}

// Length reports the file's current byte length.
func (f *OpenFile) Length() int { return f.header.FileLength() }

// Read transfers up to len(buf) bytes starting at the file's current
// position and advances it; it returns exactly the number of bytes
// transferred, which may be less than len(buf) at end of file.
func (f *OpenFile) Read(buf []byte) (int, common.Err_t) {
	remaining := f.header.FileLength() - f.pos
	if remaining <= 0 {
		return 0, common.OK
	}
	n := len(buf)
	if n > remaining {
		n = remaining
	}
	read := 0
	for read < n {
		sector, err := f.header.ByteToSector(f.disk, f.pos)
		if err != common.OK {
			return read, err
		}
		sectorBuf := make([]byte, SectorSize)
		if err := f.disk.ReadSector(sector, sectorBuf); err != common.OK {
			return read, err
		}
		within := f.pos % SectorSize
		chunk := SectorSize - within
		if chunk > n-read {
			chunk = n - read
		}
		copy(buf[read:read+chunk], sectorBuf[within:within+chunk])
		read += chunk
		f.pos += chunk
	}
	return read, common.OK
}

// Write transfers exactly len(buf) bytes to the file starting at the
// current position, growing the file (and allocating sectors) as needed,
// and advances the position. Unlike original_source's FileWrite, it never
// silently transfers one byte more than asked (spec.md Open Question #4).
func (f *OpenFile) Write(buf []byte) (int, common.Err_t) {
	need := f.pos + len(buf) - f.header.FileLength()
	if need > 0 {
		if err := f.header.Allocate(f.disk, f.freeMap, need); err != common.OK {
			return 0, err
		}
		if err := f.header.WriteBack(f.disk, f.headerSector); err != common.OK {
			return 0, err
		}
	}

	written := 0
	for written < len(buf) {
		sector, err := f.header.ByteToSector(f.disk, f.pos)
		if err != common.OK {
			return written, err
		}
		sectorBuf := make([]byte, SectorSize)
		if err := f.disk.ReadSector(sector, sectorBuf); err != common.OK {
			return written, err
		}
		within := f.pos % SectorSize
		chunk := SectorSize - within
		if chunk > len(buf)-written {
			chunk = len(buf) - written
		}
		copy(sectorBuf[within:within+chunk], buf[written:written+chunk])
		if err := f.disk.WriteSector(sector, sectorBuf); err != common.OK {
			return written, err
		}
		written += chunk
		f.pos += chunk
	}
	return written, common.OK
}
