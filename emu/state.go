package emu

import (
	"fmt"
	"math"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/mem"
)

// TrapCause is an mcause exception code.
type TrapCause uint32

// Exception causes recorded by the semantic layer.
const (
	TrapInstructionMisaligned TrapCause = 0
	TrapIllegalInstruction    TrapCause = 2
	TrapBreakpoint            TrapCause = 3
	TrapEcallFromMMode        TrapCause = 11
)

// String names the trap cause for logs and halt reports.
func (c TrapCause) String() string {
	switch c {
	case TrapInstructionMisaligned:
		return "instruction address misaligned"
	case TrapIllegalInstruction:
		return "illegal instruction"
	case TrapBreakpoint:
		return "breakpoint"
	case TrapEcallFromMMode:
		return "environment call"
	}
	return fmt.Sprintf("cause %d", uint32(c))
}

// InstHandler is offered ecall/ebreak instructions; returning true stops
// further propagation.
type InstHandler func(*insts.Instruction) bool

// State owns the architectural state of one hart: the register file, the
// CSRs, the FP and vector state, and the memory routing. Semantics read and
// write operands exclusively through it.
type State struct {
	regs *RegFile
	csrs *CSRSet
	fp   *FPState
	vec  *VectorState

	// mem is the data path; the driver may re-point it at a Watcher for
	// HTIF semihosting. amem serializes LR/SC and AMO. Instruction fetch
	// also goes through mem; rawMem is the flat memory under both.
	mem     mem.Access
	amem    *mem.AtomicMemory
	rawMem  *mem.Memory

	ecallHandlers  []InstHandler
	ebreakHandlers []InstHandler

	trapped   bool
	trapCause TrapCause
	trapValue uint32

	// Counter sources patched in by the core so cycle/instret CSR reads
	// observe the live counters.
	instretFn func() uint64
	cycleFn   func() uint64
}

// NewState builds the architectural state over the given memory, creating
// the register file, the CSR set, and the FP/vector state.
func NewState(memory *mem.Memory) *State {
	s := &State{
		regs:   NewRegFile(VLenBits),
		csrs:   NewCSRSet(),
		fp:     NewFPState(),
		rawMem: memory,
	}
	s.amem = mem.NewAtomicMemory(memory)
	s.mem = s.amem
	s.vec = NewVectorState(s.regs)
	s.addStandardCSRs()
	return s
}

// misa value: RV32 with I, M, A, F, D, C, V extension bits.
const misaValue = 1<<30 | // MXL=32
	1<<0 | // A
	1<<2 | // C
	1<<3 | // D
	1<<5 | // F
	1<<8 | // I
	1<<12 | // M
	1<<21 // V

func (s *State) addStandardCSRs() {
	add := func(name string, index uint16, readMask, writeMask uint32) *CSR {
		c, err := s.csrs.Add(name, index, readMask, writeMask)
		if err != nil {
			panic(err)
		}
		return c
	}
	mapped := func(name string, index uint16, readMask, writeMask uint32,
		rd func() uint32, wr func(uint32)) *CSR {
		c, err := s.csrs.AddMapped(name, index, readMask, writeMask, rd, wr)
		if err != nil {
			panic(err)
		}
		return c
	}

	// FP views.
	mapped("fflags", CsrFflags, 0x1F, 0x1F,
		func() uint32 { return s.fp.Flags() },
		func(v uint32) { s.fp.SetFlags(v) })
	mapped("frm", CsrFrm, 0x7, 0x7,
		func() uint32 { return uint32(s.fp.RoundingMode()) },
		func(v uint32) { s.fp.SetRoundingMode(RoundingMode(v)) })
	mapped("fcsr", CsrFcsr, 0xFF, 0xFF,
		func() uint32 { return uint32(s.fp.RoundingMode())<<5 | s.fp.Flags() },
		func(v uint32) {
			s.fp.SetFlags(v & 0x1F)
			s.fp.SetRoundingMode(RoundingMode(v >> 5))
		})

	// Vector views. vl/vtype/vlenb are read-only; vset instructions update
	// them through the vector state.
	mapped("vstart", CsrVstart, 0xFFFFFFFF, 0xFFFFFFFF,
		func() uint32 { return s.vec.Vstart() },
		func(v uint32) { s.vec.SetVstart(v) })
	add("vcsr", CsrVcsr, 0x7, 0x7)
	mapped("vl", CsrVl, 0xFFFFFFFF, 0,
		func() uint32 { return s.vec.Vl() }, func(uint32) {})
	mapped("vtype", CsrVtype, 0xFFFFFFFF, 0,
		func() uint32 { return s.vec.Vtype() }, func(uint32) {})
	mapped("vlenb", CsrVlenb, 0xFFFFFFFF, 0,
		func() uint32 { return VLenBits / 8 }, func(uint32) {})

	// Machine information and trap setup.
	add("mstatus", CsrMstatus, 0xFFFFFFFF, 0xFFFFFFFF)
	add("misa", CsrMisa, 0xFFFFFFFF, 0).value = misaValue
	add("mie", CsrMie, 0xFFFFFFFF, 0xFFFFFFFF)
	add("mtvec", CsrMtvec, 0xFFFFFFFF, 0xFFFFFFFF)
	add("mscratch", CsrMscratch, 0xFFFFFFFF, 0xFFFFFFFF)
	add("mepc", CsrMepc, 0xFFFFFFFF, 0xFFFFFFFF)
	add("mcause", CsrMcause, 0xFFFFFFFF, 0xFFFFFFFF)
	add("mtval", CsrMtval, 0xFFFFFFFF, 0xFFFFFFFF)
	add("mip", CsrMip, 0xFFFFFFFF, 0)
	add("mvendorid", CsrMvendorid, 0xFFFFFFFF, 0)
	add("marchid", CsrMarchid, 0xFFFFFFFF, 0)
	add("mimpid", CsrMimpid, 0xFFFFFFFF, 0)
	add("mhartid", CsrMhartid, 0xFFFFFFFF, 0)

	// Counters. The machine and user views share the same sources.
	instret := func() uint32 {
		if s.instretFn != nil {
			return uint32(s.instretFn())
		}
		return 0
	}
	cycle := func() uint32 {
		if s.cycleFn != nil {
			return uint32(s.cycleFn())
		}
		return 0
	}
	mapped("mcycle", CsrMcycle, 0xFFFFFFFF, 0, cycle, func(uint32) {})
	mapped("minstret", CsrMinstret, 0xFFFFFFFF, 0, instret, func(uint32) {})
	mapped("cycle", CsrCycle, 0xFFFFFFFF, 0, cycle, func(uint32) {})
	mapped("instret", CsrInstret, 0xFFFFFFFF, 0, instret, func(uint32) {})
}

// Registers returns the register file.
func (s *State) Registers() *RegFile { return s.regs }

// CSRs returns the CSR set.
func (s *State) CSRs() *CSRSet { return s.csrs }

// FP returns the floating-point state.
func (s *State) FP() *FPState { return s.fp }

// Vector returns the vector state.
func (s *State) Vector() *VectorState { return s.vec }

// SetCounterSources patches the cycle/instret CSR views to the core's live
// counters.
func (s *State) SetCounterSources(instret, cycle func() uint64) {
	s.instretFn = instret
	s.cycleFn = cycle
}

// Memory returns the current data-path memory interface.
func (s *State) Memory() mem.Access { return s.mem }

// SetMemory re-points the data path, normally at a Watcher wrapping the
// previous interface.
func (s *State) SetMemory(m mem.Access) { s.mem = m }

// RawMemory returns the underlying flat memory, bypassing watcher and
// atomic wrapper. Debug access and the loader use it.
func (s *State) RawMemory() *mem.Memory { return s.rawMem }

// Atomic returns the atomic memory wrapper.
func (s *State) Atomic() *mem.AtomicMemory { return s.amem }

// Register file access for the semantic layer.

// ReadX reads integer register i.
func (s *State) ReadX(i uint8) uint32 { return uint32(s.regs.x[i].Get()) }

// WriteX writes integer register i; writes to x0 are dropped.
func (s *State) WriteX(i uint8, v uint32) { s.regs.x[i].Set(uint64(v)) }

// ReadF reads the raw 64-bit value of FP register i.
func (s *State) ReadF(i uint8) uint64 { return s.regs.f[i].Get() }

// WriteF writes the raw 64-bit value of FP register i.
func (s *State) WriteF(i uint8, v uint64) { s.regs.f[i].Set(v) }

// nanBoxHigh is the upper half of a NaN-boxed single.
const nanBoxHigh = uint64(0xFFFFFFFF) << 32

// canonicalNaN32 is the single-precision canonical quiet NaN.
const canonicalNaN32 = 0x7FC00000

// ReadF32 reads FP register i as single-precision bits, unboxing. A value
// that is not properly NaN-boxed reads as the canonical NaN.
func (s *State) ReadF32(i uint8) uint32 {
	v := s.regs.f[i].Get()
	if v&nanBoxHigh != nanBoxHigh {
		return canonicalNaN32
	}
	return uint32(v)
}

// WriteF32 writes single-precision bits to FP register i, NaN-boxing.
func (s *State) WriteF32(i uint8, bits uint32) {
	s.regs.f[i].Set(nanBoxHigh | uint64(bits))
}

// ReadF64 reads FP register i as a float64.
func (s *State) ReadF64(i uint8) float64 { return math.Float64frombits(s.ReadF(i)) }

// WriteF64 writes a float64 to FP register i.
func (s *State) WriteF64(i uint8, v float64) { s.WriteF(i, math.Float64bits(v)) }

// PC reads the program counter.
func (s *State) PC() uint32 { return uint32(s.regs.pc.Get()) }

// SetPC writes the program counter.
func (s *State) SetPC(v uint32) { s.regs.pc.Set(uint64(v)) }

// ReadRegister reads a register or CSR by name. Vector registers read
// their low 64 bits.
func (s *State) ReadRegister(name string) (uint64, error) {
	if reg, ok := s.regs.Lookup(name); ok {
		if b := reg.Bytes(); b != nil {
			var v uint64
			for i := 7; i >= 0; i-- {
				v = v<<8 | uint64(b[i])
			}
			return v, nil
		}
		return reg.Get(), nil
	}
	if csr, ok := s.csrs.ByName(name); ok {
		return uint64(csr.Read()), nil
	}
	return 0, fmt.Errorf("register %q: %w", name, ErrRegisterNotFound)
}

// WriteRegister writes a register or CSR by name. Writes to x0 are
// silently dropped.
func (s *State) WriteRegister(name string, value uint64) error {
	if reg, ok := s.regs.Lookup(name); ok {
		if b := reg.Bytes(); b != nil {
			for i := 0; i < 8; i++ {
				b[i] = byte(value)
				value >>= 8
			}
			return nil
		}
		reg.Set(value)
		return nil
	}
	if csr, ok := s.csrs.ByName(name); ok {
		csr.Write(uint32(value))
		return nil
	}
	return fmt.Errorf("register %q: %w", name, ErrRegisterNotFound)
}

// ErrRegisterNotFound reports a debug access to an unknown register name.
var ErrRegisterNotFound = fmt.Errorf("register not found")

// Memory access for the semantic layer, routed through the current data
// path (watcher, then atomic wrapper).

// ReadMemory fills buf from the data path.
func (s *State) ReadMemory(addr uint32, buf []byte) { s.mem.Load(addr, buf) }

// WriteMemory stores buf through the data path.
func (s *State) WriteMemory(addr uint32, buf []byte) { s.mem.Store(addr, buf) }

// FetchMemory reads instruction bytes. Fetch uses the same path as data so
// stores to code (breakpoints included) are observed immediately.
func (s *State) FetchMemory(addr uint32, buf []byte) { s.mem.Load(addr, buf) }

// Hooks.

// OnEcall appends an ecall handler; handlers run in registration order and
// the first to return true consumes the call.
func (s *State) OnEcall(h InstHandler) { s.ecallHandlers = append(s.ecallHandlers, h) }

// AddEbreakHandler appends an ebreak handler; same propagation rule.
func (s *State) AddEbreakHandler(h InstHandler) {
	s.ebreakHandlers = append(s.ebreakHandlers, h)
}

// Ecall offers inst to the ecall handlers; unhandled calls trap.
func (s *State) Ecall(inst *insts.Instruction) {
	for _, h := range s.ecallHandlers {
		if h(inst) {
			return
		}
	}
	s.Trap(TrapEcallFromMMode, inst.Addr, 0)
}

// Ebreak offers inst to the ebreak handlers; unhandled breaks trap.
func (s *State) Ebreak(inst *insts.Instruction) {
	for _, h := range s.ebreakHandlers {
		if h(inst) {
			return
		}
	}
	s.Trap(TrapBreakpoint, inst.Addr, inst.Addr)
}

// Trap records the trap into mepc/mcause/mtval and raises the trap flag
// polled by the run loop at the next instruction boundary.
func (s *State) Trap(cause TrapCause, pc uint32, tval uint32) {
	if c, ok := s.csrs.ByIndex(CsrMepc); ok {
		c.Write(pc)
	}
	if c, ok := s.csrs.ByIndex(CsrMcause); ok {
		c.Write(uint32(cause))
	}
	if c, ok := s.csrs.ByIndex(CsrMtval); ok {
		c.Write(tval)
	}
	s.trapped = true
	s.trapCause = cause
	s.trapValue = tval
}

// Trapped reports whether a trap is pending.
func (s *State) Trapped() bool { return s.trapped }

// TrapCause returns the pending trap cause.
func (s *State) TrapCause() TrapCause { return s.trapCause }

// ClearTrap clears the pending trap.
func (s *State) ClearTrap() { s.trapped = false }
