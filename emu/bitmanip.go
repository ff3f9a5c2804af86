package emu

import (
	"math/bits"

	"github.com/sarchlab/rvsim/insts"
)

// Zba/Zbb/Zbc/Zbs semantics.

// shAddSemantic builds the shNadd semantic: rd = rs2 + (rs1 << shift).
func shAddSemantic(shift uint32) SemanticFn {
	return func(s *State, i *insts.Instruction) {
		s.WriteX(i.Rd, s.ReadX(i.Rs2)+s.ReadX(i.Rs1)<<shift)
	}
}

func execAndn(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)&^s.ReadX(i.Rs2))
}

func execOrn(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)|^s.ReadX(i.Rs2))
}

func execXnor(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, ^(s.ReadX(i.Rs1) ^ s.ReadX(i.Rs2)))
}

func execClz(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(bits.LeadingZeros32(s.ReadX(i.Rs1))))
}

func execCtz(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(bits.TrailingZeros32(s.ReadX(i.Rs1))))
}

func execCpop(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(bits.OnesCount32(s.ReadX(i.Rs1))))
}

func execMax(s *State, i *insts.Instruction) {
	a, b := int32(s.ReadX(i.Rs1)), int32(s.ReadX(i.Rs2))
	if b > a {
		a = b
	}
	s.WriteX(i.Rd, uint32(a))
}

func execMaxu(s *State, i *insts.Instruction) {
	a, b := s.ReadX(i.Rs1), s.ReadX(i.Rs2)
	if b > a {
		a = b
	}
	s.WriteX(i.Rd, a)
}

func execMin(s *State, i *insts.Instruction) {
	a, b := int32(s.ReadX(i.Rs1)), int32(s.ReadX(i.Rs2))
	if b < a {
		a = b
	}
	s.WriteX(i.Rd, uint32(a))
}

func execMinu(s *State, i *insts.Instruction) {
	a, b := s.ReadX(i.Rs1), s.ReadX(i.Rs2)
	if b < a {
		a = b
	}
	s.WriteX(i.Rd, a)
}

func execSextb(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(int32(int8(s.ReadX(i.Rs1)))))
}

func execSexth(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(int32(int16(s.ReadX(i.Rs1)))))
}

func execZexth(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(uint16(s.ReadX(i.Rs1))))
}

// Rotates mask the amount to the low 5 bits. bits.RotateLeft32 is defined
// for a zero amount, which the naive (a<<b)|(a>>(32-b)) form is not.

func execRol(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, bits.RotateLeft32(s.ReadX(i.Rs1), int(s.ReadX(i.Rs2)&0x1F)))
}

func execRor(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, bits.RotateLeft32(s.ReadX(i.Rs1), -int(s.ReadX(i.Rs2)&0x1F)))
}

func execRori(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, bits.RotateLeft32(s.ReadX(i.Rs1), -int(uint32(i.Imm)&0x1F)))
}

// execOrcb sets each output byte to 0xFF when the corresponding input byte
// is non-zero.
func execOrcb(s *State, i *insts.Instruction) {
	a := s.ReadX(i.Rs1)
	var result uint32
	mask := uint32(0xFF)
	for n := 0; n < 4; n++ {
		if a&mask != 0 {
			result |= mask
		}
		mask <<= 8
	}
	s.WriteX(i.Rd, result)
}

func execRev8(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, bits.ReverseBytes32(s.ReadX(i.Rs1)))
}

// Carry-less multiply. clmul keeps the low XLEN bits of the polynomial
// product, clmulh the high bits, and clmulr bits [2*XLEN-2 : XLEN-1].
// The loop bounds are the ones the Zbc reference vectors confirm: clmulh
// runs i in [1, XLEN), clmulr i in [0, XLEN).

func execClmul(s *State, i *insts.Instruction) {
	a, b := s.ReadX(i.Rs1), s.ReadX(i.Rs2)
	var result uint32
	for k := 0; k < 32; k++ {
		if b>>k&1 == 1 {
			result ^= a << k
		}
	}
	s.WriteX(i.Rd, result)
}

func execClmulh(s *State, i *insts.Instruction) {
	a, b := s.ReadX(i.Rs1), s.ReadX(i.Rs2)
	var result uint32
	for k := 1; k < 32; k++ {
		if b>>k&1 == 1 {
			result ^= a >> (32 - k)
		}
	}
	s.WriteX(i.Rd, result)
}

func execClmulr(s *State, i *insts.Instruction) {
	a, b := s.ReadX(i.Rs1), s.ReadX(i.Rs2)
	var result uint32
	for k := 0; k < 32; k++ {
		if b>>k&1 == 1 {
			result ^= a >> (31 - k)
		}
	}
	s.WriteX(i.Rd, result)
}

// Single-bit instructions operate on bit rs2 mod 32.

func execBclr(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)&^(1<<(s.ReadX(i.Rs2)&0x1F)))
}

func execBclri(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)&^(1<<(uint32(i.Imm)&0x1F)))
}

func execBset(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)|1<<(s.ReadX(i.Rs2)&0x1F))
}

func execBseti(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)|1<<(uint32(i.Imm)&0x1F))
}

func execBinv(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)^1<<(s.ReadX(i.Rs2)&0x1F))
}

func execBinvi(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)^1<<(uint32(i.Imm)&0x1F))
}

func execBext(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)>>(s.ReadX(i.Rs2)&0x1F)&1)
}

func execBexti(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)>>(uint32(i.Imm)&0x1F)&1)
}
