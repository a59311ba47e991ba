package fs

import "github.com/cdave1/nachos/common"

// MemFreeMap is an in-memory free-sector bitmap implementing common.FreeMap.
// The real one is an external collaborator (spec.md §1); this is the
// stand-in this package's tests and package kernel's bootstrap run against.
// Sector 0 is reserved to mean "none" and is marked allocated up front, the
// same way a freshly formatted Nachos disk reserves it for the boot sector.
type MemFreeMap struct {
	bits []bool
}

// NewMemFreeMap returns a bitmap with n sectors, sector 0 pre-allocated.
func NewMemFreeMap(n int) *MemFreeMap {
	b := &MemFreeMap{bits: make([]bool, n)}
	if n > 0 {
		b.bits[0] = true
	}
	return b
}

func (b *MemFreeMap) Find() (int, bool) {
	for i, used := range b.bits {
		if !used {
			b.bits[i] = true
			return i, true
		}
	}
	return 0, false
}

func (b *MemFreeMap) Clear(sector int) {
	if sector >= 0 && sector < len(b.bits) {
		b.bits[sector] = false
	}
}

func (b *MemFreeMap) Test(sector int) bool {
	return sector >= 0 && sector < len(b.bits) && b.bits[sector]
}

func (b *MemFreeMap) NumClear() int {
	n := 0
	for _, used := range b.bits {
		if !used {
			n++
		}
	}
	return n
}

var _ common.FreeMap = (*MemFreeMap)(nil)
