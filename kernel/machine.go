package kernel

import (
	"sync"

	"github.com/cdave1/nachos/common"
)

// SimpleMachine is a common.Machine standing in for the real MIPS
// instruction-set simulator -- fetch/execute/decode is explicitly out of
// scope per the machine's role as an external collaborator -- so this is
// only the register file and byte-addressed memory the trap dispatcher
// reads and writes, plus a halted flag StartInit and the CLI can observe
// after a run.
type SimpleMachine struct {
	mu sync.Mutex

	regs   [common.TFSIZE + 8]int
	mem    []byte
	halted bool
}

// NewSimpleMachine allocates a machine with memSize bytes of simulated
// memory, all registers zeroed.
func NewSimpleMachine(memSize int) *SimpleMachine {
	return &SimpleMachine{mem: make([]byte, memSize)}
}

func (m *SimpleMachine) ReadRegister(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[n]
}

func (m *SimpleMachine) WriteRegister(n int, v int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[n] = v
}

func (m *SimpleMachine) ReadMem(addr int, buf []byte) common.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr < 0 || addr+len(buf) > len(m.mem) {
		return common.EFAULT
	}
	copy(buf, m.mem[addr:addr+len(buf)])
	return common.OK
}

func (m *SimpleMachine) WriteMem(addr int, buf []byte) common.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr < 0 || addr+len(buf) > len(m.mem) {
		return common.EFAULT
	}
	copy(m.mem[addr:], buf)
	return common.OK
}

func (m *SimpleMachine) ReadCString(addr int, max int) (string, common.Err_t) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr < 0 || addr >= len(m.mem) {
		return "", common.EFAULT
	}
	end := addr
	for end < len(m.mem) && end-addr < max && m.mem[end] != 0 {
		end++
	}
	return string(m.mem[addr:end]), common.OK
}

func (m *SimpleMachine) Halt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halted = true
}

// Halted reports whether Halt has been called; for the CLI and tests.
func (m *SimpleMachine) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

var _ common.Machine = (*SimpleMachine)(nil)
