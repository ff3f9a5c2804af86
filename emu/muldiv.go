package emu

import (
	"math"

	"github.com/sarchlab/rvsim/insts"
)

// M-extension semantics. Divide by zero and signed overflow do not trap;
// the results are the ones the RV spec defines.

func execMul(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)*s.ReadX(i.Rs2))
}

func execMulh(s *State, i *insts.Instruction) {
	p := int64(int32(s.ReadX(i.Rs1))) * int64(int32(s.ReadX(i.Rs2)))
	s.WriteX(i.Rd, uint32(uint64(p)>>32))
}

func execMulhsu(s *State, i *insts.Instruction) {
	p := int64(int32(s.ReadX(i.Rs1))) * int64(s.ReadX(i.Rs2))
	s.WriteX(i.Rd, uint32(uint64(p)>>32))
}

func execMulhu(s *State, i *insts.Instruction) {
	p := uint64(s.ReadX(i.Rs1)) * uint64(s.ReadX(i.Rs2))
	s.WriteX(i.Rd, uint32(p>>32))
}

func execDiv(s *State, i *insts.Instruction) {
	a := int32(s.ReadX(i.Rs1))
	b := int32(s.ReadX(i.Rs2))
	switch {
	case b == 0:
		s.WriteX(i.Rd, 0xFFFFFFFF)
	case a == math.MinInt32 && b == -1:
		s.WriteX(i.Rd, uint32(a))
	default:
		s.WriteX(i.Rd, uint32(a/b))
	}
}

func execDivu(s *State, i *insts.Instruction) {
	a := s.ReadX(i.Rs1)
	b := s.ReadX(i.Rs2)
	if b == 0 {
		s.WriteX(i.Rd, 0xFFFFFFFF)
		return
	}
	s.WriteX(i.Rd, a/b)
}

func execRem(s *State, i *insts.Instruction) {
	a := int32(s.ReadX(i.Rs1))
	b := int32(s.ReadX(i.Rs2))
	switch {
	case b == 0:
		s.WriteX(i.Rd, uint32(a))
	case a == math.MinInt32 && b == -1:
		s.WriteX(i.Rd, 0)
	default:
		s.WriteX(i.Rd, uint32(a%b))
	}
}

func execRemu(s *State, i *insts.Instruction) {
	a := s.ReadX(i.Rs1)
	b := s.ReadX(i.Rs2)
	if b == 0 {
		s.WriteX(i.Rd, a)
		return
	}
	s.WriteX(i.Rd, a%b)
}
