// Package emu provides the architectural state and the instruction
// semantics for the RV32 functional simulator.
package emu

import "fmt"

// WriteHook observes writes to a register cell.
type WriteHook func(value uint64)

// Register is a named storage cell of a fixed bit width. Scalar cells
// (width <= 64) store their value inline; wider cells (vector registers)
// store bytes. A cell is reachable under its canonical name and any number
// of aliases, but there is never more than one cell per architectural
// register.
type Register struct {
	name      string
	width     int
	value     uint64
	vec       []byte
	hardwired bool // x0: writes are dropped, reads return zero
	hooks     []WriteHook
}

// Name returns the canonical name of the cell.
func (r *Register) Name() string { return r.name }

// Width returns the width of the cell in bits.
func (r *Register) Width() int { return r.width }

// Get returns the scalar value of the cell.
func (r *Register) Get() uint64 {
	if r.hardwired {
		return 0
	}
	return r.value
}

// Set writes the scalar value of the cell, masked to its width. Writes to a
// hardwired cell are silently dropped.
func (r *Register) Set(v uint64) {
	if r.hardwired {
		return
	}
	if r.width < 64 {
		v &= 1<<uint(r.width) - 1
	}
	r.value = v
	for _, hook := range r.hooks {
		hook(v)
	}
}

// AddWriteHook registers a write observer on the cell.
func (r *Register) AddWriteHook(h WriteHook) {
	r.hooks = append(r.hooks, h)
}

// Bytes returns the backing bytes of a wide (vector) cell, or nil for a
// scalar cell.
func (r *Register) Bytes() []byte { return r.vec }

// RegFile maps canonical register names and their aliases to cells. It also
// keeps direct indexed access to the x and f banks for the semantic layer.
type RegFile struct {
	byName map[string]*Register

	x  [32]*Register
	f  [32]*Register
	pc *Register
}

// xRegAliases are the ABI names of the integer registers, by index.
var xRegAliases = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// fRegAliases are the ABI names of the floating-point registers, by index.
var fRegAliases = [32]string{
	"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7",
	"fs0", "fs1", "fa0", "fa1", "fa2", "fa3", "fa4", "fa5",
	"fa6", "fa7", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7",
	"fs8", "fs9", "fs10", "fs11", "ft8", "ft9", "ft10", "ft11",
}

// NewRegFile creates the register file with the x bank, the f bank, the pc
// cell, the vector registers, and their ABI aliases installed.
func NewRegFile(vlenBits int) *RegFile {
	rf := &RegFile{byName: make(map[string]*Register)}

	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("x%d", i)
		reg, _ := rf.AddRegister(name, 32)
		reg.hardwired = i == 0
		rf.x[i] = reg
		_ = rf.AddRegisterAlias(name, xRegAliases[i])
	}
	// "fp" is a second alias for x8 on top of "s0".
	_ = rf.AddRegisterAlias("x8", "fp")

	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("f%d", i)
		reg, _ := rf.AddRegister(name, 64)
		rf.f[i] = reg
		_ = rf.AddRegisterAlias(name, fRegAliases[i])
	}

	for i := 0; i < 32; i++ {
		_, _ = rf.AddRegister(fmt.Sprintf("v%d", i), vlenBits)
	}

	rf.pc, _ = rf.AddRegister("pc", 32)

	return rf
}

// AddRegister creates a cell. The name must be unused.
func (rf *RegFile) AddRegister(name string, width int) (*Register, error) {
	if _, ok := rf.byName[name]; ok {
		return nil, fmt.Errorf("register %q already exists", name)
	}
	reg := &Register{name: name, width: width}
	if width > 64 {
		reg.vec = make([]byte, width/8)
	}
	rf.byName[name] = reg
	return reg, nil
}

// AddRegisterAlias maps alias to the cell already registered under existing.
func (rf *RegFile) AddRegisterAlias(existing, alias string) error {
	reg, ok := rf.byName[existing]
	if !ok {
		return fmt.Errorf("register %q not found", existing)
	}
	if _, ok := rf.byName[alias]; ok {
		return fmt.Errorf("register %q already exists", alias)
	}
	rf.byName[alias] = reg
	return nil
}

// Lookup resolves a name or alias to its cell.
func (rf *RegFile) Lookup(name string) (*Register, bool) {
	reg, ok := rf.byName[name]
	return reg, ok
}

// X returns the cell of integer register i.
func (rf *RegFile) X(i uint8) *Register { return rf.x[i] }

// F returns the cell of floating-point register i.
func (rf *RegFile) F(i uint8) *Register { return rf.f[i] }

// PC returns the program-counter cell.
func (rf *RegFile) PC() *Register { return rf.pc }
