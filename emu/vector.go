package emu

import "github.com/sarchlab/rvsim/insts"

// Vector semantics. Every operation iterates the elements vstart..vl-1,
// honors the v0 mask when the instruction is masked (masked-off elements
// stay undisturbed), leaves the tail undisturbed (a legal tail-agnostic
// policy), and clears vstart on completion.

func execVsetvli(s *State, i *insts.Instruction) {
	applyVset(s, i, vsetAvl(s, i), uint32(i.Imm))
}

func execVsetivli(s *State, i *insts.Instruction) {
	applyVset(s, i, uint32(i.Rs1), uint32(i.Imm))
}

func execVsetvl(s *State, i *insts.Instruction) {
	applyVset(s, i, vsetAvl(s, i), s.ReadX(i.Rs2))
}

// vsetAvl applies the AVL selection rule: rs1 when non-zero-numbered, else
// VLMAX when rd is named, else the current vl (vtype change only).
func vsetAvl(s *State, i *insts.Instruction) uint32 {
	if i.Rs1 != 0 {
		return s.ReadX(i.Rs1)
	}
	if i.Rd != 0 {
		return ^uint32(0)
	}
	return s.Vector().Vl()
}

func applyVset(s *State, i *insts.Instruction, avl, vtype uint32) {
	s.WriteX(i.Rd, s.Vector().SetVl(avl, vtype))
}

// active reports whether element idx participates under the mask.
func active(s *State, i *insts.Instruction, idx uint32) bool {
	return i.Vm || s.Vector().MaskBit(idx)
}

// vloadSemantic builds the unit-stride load semantic for one element width.
func vloadSemantic(eew uint32) SemanticFn {
	return func(s *State, i *insts.Instruction) {
		v := s.Vector()
		base := s.ReadX(i.Rs1)
		size := eew / 8
		buf := make([]byte, size)
		for idx := v.Vstart(); idx < v.Vl(); idx++ {
			if !active(s, i, idx) {
				continue
			}
			s.ReadMemory(base+idx*size, buf)
			var val uint32
			for b := len(buf) - 1; b >= 0; b-- {
				val = val<<8 | uint32(buf[b])
			}
			v.ElemSet(i.Rd, idx, eew, val)
		}
		v.SetVstart(0)
	}
}

// vstoreSemantic builds the unit-stride store semantic for one element
// width.
func vstoreSemantic(eew uint32) SemanticFn {
	return func(s *State, i *insts.Instruction) {
		v := s.Vector()
		base := s.ReadX(i.Rs1)
		size := eew / 8
		buf := make([]byte, size)
		for idx := v.Vstart(); idx < v.Vl(); idx++ {
			if !active(s, i, idx) {
				continue
			}
			val := v.ElemGet(i.Rd, idx, eew)
			for b := range buf {
				buf[b] = byte(val)
				val >>= 8
			}
			s.WriteMemory(base+idx*size, buf)
		}
		v.SetVstart(0)
	}
}

// Second-operand source selectors for the integer arithmetic forms.
type vSrc uint8

const (
	srcVV vSrc = iota // vs1
	srcVX             // scalar rs1
	srcVI             // simm5
)

// vBinarySemantic builds an element-wise binary semantic: vd[i] =
// op(vs2[i], src[i]).
func vBinarySemantic(src vSrc, op func(a, b uint32) uint32) SemanticFn {
	return func(s *State, i *insts.Instruction) {
		v := s.Vector()
		sew := v.Sew()
		for idx := v.Vstart(); idx < v.Vl(); idx++ {
			if !active(s, i, idx) {
				continue
			}
			a := v.ElemGet(i.Rs2, idx, sew)
			var b uint32
			switch src {
			case srcVV:
				b = v.ElemGet(i.Rs1, idx, sew)
			case srcVX:
				b = s.ReadX(i.Rs1)
			case srcVI:
				b = uint32(i.Imm)
			}
			v.ElemSet(i.Rd, idx, sew, op(a, b))
		}
		v.SetVstart(0)
	}
}

func execVmvvv(s *State, i *insts.Instruction) {
	v := s.Vector()
	sew := v.Sew()
	for idx := v.Vstart(); idx < v.Vl(); idx++ {
		v.ElemSet(i.Rd, idx, sew, v.ElemGet(i.Rs1, idx, sew))
	}
	v.SetVstart(0)
}

func execVmvvx(s *State, i *insts.Instruction) {
	v := s.Vector()
	sew := v.Sew()
	val := s.ReadX(i.Rs1)
	for idx := v.Vstart(); idx < v.Vl(); idx++ {
		v.ElemSet(i.Rd, idx, sew, val)
	}
	v.SetVstart(0)
}

func execVmvvi(s *State, i *insts.Instruction) {
	v := s.Vector()
	sew := v.Sew()
	for idx := v.Vstart(); idx < v.Vl(); idx++ {
		v.ElemSet(i.Rd, idx, sew, uint32(i.Imm))
	}
	v.SetVstart(0)
}
