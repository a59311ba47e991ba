package kernel

import (
	"sync"

	"github.com/cdave1/nachos/common"
)

// SimpleAddrSpace is a common.AddrSpace standing in for the real
// page-table-backed address space main.go builds from an ELF-ish binary --
// the page-table/loader machinery is out of scope, so this only tracks a
// fixed page budget and how many of those pages have been handed out as
// stacks, following original_source/userprog/addrspace.cc's NumPages/
// InitRegisters/RestoreState method set without the paging underneath it.
type SimpleAddrSpace struct {
	mu sync.Mutex

	numPages   int
	maxStacks  int
	stacksUsed int
}

// NewSimpleAddrSpace builds a space of numPages pages that can hand out up
// to maxStacks of them as per-thread stacks before CreateStack starts
// failing.
func NewSimpleAddrSpace(numPages, maxStacks int) *SimpleAddrSpace {
	return &SimpleAddrSpace{numPages: numPages, maxStacks: maxStacks}
}

func (a *SimpleAddrSpace) NumPages() int { return a.numPages }

// CreateStack hands out one more stack allotment, or reports false once
// maxStacks have already been claimed -- the ENOMEM path Process.Fork
// needs. System.StartInit does not call it for the root thread.
func (a *SimpleAddrSpace) CreateStack() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stacksUsed >= a.maxStacks {
		return false
	}
	a.stacksUsed++
	return true
}

// InitRegisters zeroes the general-purpose registers, following
// AddrSpace::InitRegisters in original_source/userprog/addrspace.cc: the
// real implementation also loads a page-table base register, which this
// space has none of.
func (a *SimpleAddrSpace) InitRegisters(m common.Machine, pc int) {
	for r := 0; r < int(common.TFSIZE); r++ {
		m.WriteRegister(r, 0)
	}
}

// RestoreState is a no-op here; the real AddrSpace::RestoreState installs
// this space's page table into the MMU, which this simulation doesn't
// model.
func (a *SimpleAddrSpace) RestoreState() {}

var _ common.AddrSpace = (*SimpleAddrSpace)(nil)
