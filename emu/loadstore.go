package emu

import (
	"encoding/binary"

	"github.com/sarchlab/rvsim/insts"
)

// Load and store semantics. Addresses need not be aligned; the memory
// splits cross-page accesses itself.

func loadAddr(s *State, i *insts.Instruction) uint32 {
	return s.ReadX(i.Rs1) + uint32(i.Imm)
}

func execLb(s *State, i *insts.Instruction) {
	var b [1]byte
	s.ReadMemory(loadAddr(s, i), b[:])
	s.WriteX(i.Rd, uint32(int32(int8(b[0]))))
}

func execLh(s *State, i *insts.Instruction) {
	var b [2]byte
	s.ReadMemory(loadAddr(s, i), b[:])
	s.WriteX(i.Rd, uint32(int32(int16(binary.LittleEndian.Uint16(b[:])))))
}

func execLw(s *State, i *insts.Instruction) {
	var b [4]byte
	s.ReadMemory(loadAddr(s, i), b[:])
	s.WriteX(i.Rd, binary.LittleEndian.Uint32(b[:]))
}

func execLbu(s *State, i *insts.Instruction) {
	var b [1]byte
	s.ReadMemory(loadAddr(s, i), b[:])
	s.WriteX(i.Rd, uint32(b[0]))
}

func execLhu(s *State, i *insts.Instruction) {
	var b [2]byte
	s.ReadMemory(loadAddr(s, i), b[:])
	s.WriteX(i.Rd, uint32(binary.LittleEndian.Uint16(b[:])))
}

func execSb(s *State, i *insts.Instruction) {
	s.WriteMemory(loadAddr(s, i), []byte{byte(s.ReadX(i.Rs2))})
}

func execSh(s *State, i *insts.Instruction) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(s.ReadX(i.Rs2)))
	s.WriteMemory(loadAddr(s, i), b[:])
}

func execSw(s *State, i *insts.Instruction) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], s.ReadX(i.Rs2))
	s.WriteMemory(loadAddr(s, i), b[:])
}

// FP loads and stores move raw bits; singles are NaN-boxed in the 64-bit
// cells.

func execFlw(s *State, i *insts.Instruction) {
	var b [4]byte
	s.ReadMemory(loadAddr(s, i), b[:])
	s.WriteF32(i.Rd, binary.LittleEndian.Uint32(b[:]))
}

func execFsw(s *State, i *insts.Instruction) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(s.ReadF(i.Rs2)))
	s.WriteMemory(loadAddr(s, i), b[:])
}

func execFld(s *State, i *insts.Instruction) {
	var b [8]byte
	s.ReadMemory(loadAddr(s, i), b[:])
	s.WriteF(i.Rd, binary.LittleEndian.Uint64(b[:]))
}

func execFsd(s *State, i *insts.Instruction) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], s.ReadF(i.Rs2))
	s.WriteMemory(loadAddr(s, i), b[:])
}
