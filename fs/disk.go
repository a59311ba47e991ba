package fs

import "github.com/cdave1/nachos/common"

// MemDisk is an in-memory stand-in for the synchronous disk spec.md treats
// as an external collaborator (the real one multiplexes an asynchronous
// device behind a completion callback; from this package's point of view
// that machinery is already hidden behind common.Disk). It exists so this
// package's tests, and the bootstrap path in package kernel, have
// something to read and write sectors against without a real block
// device.
type MemDisk struct {
	sectors map[int][]byte
}

// NewMemDisk returns an empty disk.
func NewMemDisk() *MemDisk {
	return &MemDisk{sectors: make(map[int][]byte)}
}

func (d *MemDisk) ReadSector(sector int, buf []byte) common.Err_t {
	data, ok := d.sectors[sector]
	if !ok {
		// An unwritten sector reads as zeros, matching a freshly
		// formatted disk.
		for i := range buf {
			buf[i] = 0
		}
		return common.OK
	}
	copy(buf, data)
	return common.OK
}

func (d *MemDisk) WriteSector(sector int, buf []byte) common.Err_t {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.sectors[sector] = cp
	return common.OK
}

func (d *MemDisk) SectorSize() int { return SectorSize }

var _ common.Disk = (*MemDisk)(nil)
