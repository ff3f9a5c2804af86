package emu

import (
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/mem"
)

// A-extension semantics, routed through the atomic memory wrapper so that
// reservation tracking and read-modify-write indivisibility hold across
// every observer of the wrapper.

// Re-exported AMO operation selectors so the dispatch table reads cleanly.
const (
	AmoOpSwap = mem.AmoSwap
	AmoOpAdd  = mem.AmoAdd
	AmoOpAnd  = mem.AmoAnd
	AmoOpOr   = mem.AmoOr
	AmoOpXor  = mem.AmoXor
	AmoOpMin  = mem.AmoMin
	AmoOpMax  = mem.AmoMax
	AmoOpMinu = mem.AmoMinu
	AmoOpMaxu = mem.AmoMaxu
)

func execLrw(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.Atomic().LoadReserved(s.ReadX(i.Rs1)))
}

// execScw writes 0 to rd on success, 1 on failure, per the SC.W contract.
func execScw(s *State, i *insts.Instruction) {
	ok := s.Atomic().StoreConditional(s.ReadX(i.Rs1), s.ReadX(i.Rs2))
	if ok {
		s.WriteX(i.Rd, 0)
	} else {
		s.WriteX(i.Rd, 1)
	}
}

// amoSemantic builds the semantic for one AMO: rd receives the original
// memory word, memory receives op(old, rs2).
func amoSemantic(op mem.AmoOp) SemanticFn {
	return func(s *State, i *insts.Instruction) {
		old := s.Atomic().AMO(op, s.ReadX(i.Rs1), s.ReadX(i.Rs2))
		s.WriteX(i.Rd, old)
	}
}
