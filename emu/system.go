package emu

import "github.com/sarchlab/rvsim/insts"

// System semantics: environment calls, fences, and Zicsr.

func execEcall(s *State, i *insts.Instruction) {
	s.Ecall(i)
}

func execEbreak(s *State, i *insts.Instruction) {
	s.Ebreak(i)
}

// execFence is a no-op: a single in-order hart needs no memory ordering,
// and fence.i needs no action because stores into instruction memory
// already invalidate the decode cache.
func execFence(s *State, i *insts.Instruction) {}

func csrByIndex(s *State, i *insts.Instruction) (*CSR, bool) {
	csr, ok := s.CSRs().ByIndex(i.CSR)
	if !ok {
		s.Trap(TrapIllegalInstruction, i.Addr, i.Raw)
	}
	return csr, ok
}

func execCsrrw(s *State, i *insts.Instruction) {
	csr, ok := csrByIndex(s, i)
	if !ok {
		return
	}
	var old uint32
	if i.Rd != 0 {
		old = csr.Read()
	}
	csr.Write(s.ReadX(i.Rs1))
	s.WriteX(i.Rd, old)
}

func execCsrrs(s *State, i *insts.Instruction) {
	csr, ok := csrByIndex(s, i)
	if !ok {
		return
	}
	old := csr.Read()
	if i.Rs1 != 0 {
		csr.Write(old | s.ReadX(i.Rs1))
	}
	s.WriteX(i.Rd, old)
}

func execCsrrc(s *State, i *insts.Instruction) {
	csr, ok := csrByIndex(s, i)
	if !ok {
		return
	}
	old := csr.Read()
	if i.Rs1 != 0 {
		csr.Write(old &^ s.ReadX(i.Rs1))
	}
	s.WriteX(i.Rd, old)
}

func execCsrrwi(s *State, i *insts.Instruction) {
	csr, ok := csrByIndex(s, i)
	if !ok {
		return
	}
	var old uint32
	if i.Rd != 0 {
		old = csr.Read()
	}
	csr.Write(uint32(i.Imm))
	s.WriteX(i.Rd, old)
}

func execCsrrsi(s *State, i *insts.Instruction) {
	csr, ok := csrByIndex(s, i)
	if !ok {
		return
	}
	old := csr.Read()
	if i.Imm != 0 {
		csr.Write(old | uint32(i.Imm))
	}
	s.WriteX(i.Rd, old)
}

func execCsrrci(s *State, i *insts.Instruction) {
	csr, ok := csrByIndex(s, i)
	if !ok {
		return
	}
	old := csr.Read()
	if i.Imm != 0 {
		csr.Write(old &^ uint32(i.Imm))
	}
	s.WriteX(i.Rd, old)
}
