package emu

import "github.com/sarchlab/rvsim/insts"

// Integer ALU, shift, branch, and jump semantics. Each function reads its
// operands from the decoded instruction, computes in 32-bit two's
// complement, and writes the destination. Branch and jump semantics
// overwrite the PC that the run loop pre-set to the next sequential
// address.

func execLui(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(i.Imm))
}

func execAuipc(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, i.Addr+uint32(i.Imm))
}

func execJal(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, i.Addr+i.Size)
	s.SetPC(i.Addr + uint32(i.Imm))
}

func execJalr(s *State, i *insts.Instruction) {
	target := (s.ReadX(i.Rs1) + uint32(i.Imm)) &^ 1
	s.WriteX(i.Rd, i.Addr+i.Size)
	s.SetPC(target)
}

func branch(s *State, i *insts.Instruction, taken bool) {
	if taken {
		s.SetPC(i.Addr + uint32(i.Imm))
	}
}

func execBeq(s *State, i *insts.Instruction) {
	branch(s, i, s.ReadX(i.Rs1) == s.ReadX(i.Rs2))
}

func execBne(s *State, i *insts.Instruction) {
	branch(s, i, s.ReadX(i.Rs1) != s.ReadX(i.Rs2))
}

func execBlt(s *State, i *insts.Instruction) {
	branch(s, i, int32(s.ReadX(i.Rs1)) < int32(s.ReadX(i.Rs2)))
}

func execBge(s *State, i *insts.Instruction) {
	branch(s, i, int32(s.ReadX(i.Rs1)) >= int32(s.ReadX(i.Rs2)))
}

func execBltu(s *State, i *insts.Instruction) {
	branch(s, i, s.ReadX(i.Rs1) < s.ReadX(i.Rs2))
}

func execBgeu(s *State, i *insts.Instruction) {
	branch(s, i, s.ReadX(i.Rs1) >= s.ReadX(i.Rs2))
}

func execAddi(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)+uint32(i.Imm))
}

func execSlti(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, boolTo32(int32(s.ReadX(i.Rs1)) < i.Imm))
}

func execSltiu(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, boolTo32(s.ReadX(i.Rs1) < uint32(i.Imm)))
}

func execXori(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)^uint32(i.Imm))
}

func execOri(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)|uint32(i.Imm))
}

func execAndi(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)&uint32(i.Imm))
}

// Shift amounts, register or immediate, use only the low 5 bits.

func execSlli(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)<<(uint32(i.Imm)&0x1F))
}

func execSrli(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)>>(uint32(i.Imm)&0x1F))
}

func execSrai(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(int32(s.ReadX(i.Rs1))>>(uint32(i.Imm)&0x1F)))
}

func execAdd(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)+s.ReadX(i.Rs2))
}

func execSub(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)-s.ReadX(i.Rs2))
}

func execSll(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)<<(s.ReadX(i.Rs2)&0x1F))
}

func execSlt(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, boolTo32(int32(s.ReadX(i.Rs1)) < int32(s.ReadX(i.Rs2))))
}

func execSltu(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, boolTo32(s.ReadX(i.Rs1) < s.ReadX(i.Rs2)))
}

func execXor(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)^s.ReadX(i.Rs2))
}

func execSrl(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)>>(s.ReadX(i.Rs2)&0x1F))
}

func execSra(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(int32(s.ReadX(i.Rs1))>>(s.ReadX(i.Rs2)&0x1F)))
}

func execOr(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)|s.ReadX(i.Rs2))
}

func execAnd(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, s.ReadX(i.Rs1)&s.ReadX(i.Rs2))
}

func boolTo32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
