package emu

import "strconv"

// VLenBits is the width of one vector register. The original simulator
// configuration uses 16-byte vector registers.
const VLenBits = 128

// vtype field layout.
const (
	vtypeVill uint32 = 1 << 31
	vtypeVma  uint32 = 1 << 7
	vtypeVta  uint32 = 1 << 6
)

// VectorState holds the vector configuration (vtype, vl, vstart) and the
// vector register bytes. The vector cells in the register file share this
// backing store.
type VectorState struct {
	regs *RegFile

	vl     uint32
	vstart uint32
	vtype  uint32
}

// NewVectorState creates the vector state with vill set, matching a hart
// that has not executed a vset instruction yet.
func NewVectorState(regs *RegFile) *VectorState {
	return &VectorState{regs: regs, vtype: vtypeVill}
}

// Vl returns the active element count.
func (v *VectorState) Vl() uint32 { return v.vl }

// Vstart returns the resume element index.
func (v *VectorState) Vstart() uint32 { return v.vstart }

// SetVstart sets the resume element index.
func (v *VectorState) SetVstart(i uint32) { v.vstart = i }

// Vtype returns the raw vtype value.
func (v *VectorState) Vtype() uint32 { return v.vtype }

// Sew returns the configured element width in bits.
func (v *VectorState) Sew() uint32 { return 8 << (v.vtype >> 3 & 0x7) }

// TailAgnostic reports the configured tail policy.
func (v *VectorState) TailAgnostic() bool { return v.vtype&vtypeVta != 0 }

// MaskAgnostic reports the configured mask policy.
func (v *VectorState) MaskAgnostic() bool { return v.vtype&vtypeVma != 0 }

// Vlmax computes the maximum vector length for a vtype value.
func Vlmax(vtype uint32) uint32 {
	sew := uint32(8) << (vtype >> 3 & 0x7)
	elems := uint32(VLenBits) / sew
	switch vtype & 0x7 { // vlmul
	case 0: // LMUL=1
		return elems
	case 1: // LMUL=2
		return elems * 2
	case 2: // LMUL=4
		return elems * 4
	case 3: // LMUL=8
		return elems * 8
	case 5: // LMUL=1/8
		return elems / 8
	case 6: // LMUL=1/4
		return elems / 4
	case 7: // LMUL=1/2
		return elems / 2
	}
	return 0
}

// SetVl applies the vset{i}vl{i} rule: configure vtype, clamp avl to vlmax,
// and return the new vl. Unsupported configurations (SEW > 32, vlmax == 0,
// reserved vlmul) set vill and zero vl.
func (v *VectorState) SetVl(avl uint32, vtype uint32) uint32 {
	sew := uint32(8) << (vtype >> 3 & 0x7)
	vlmax := Vlmax(vtype)
	if sew > 32 || vlmax == 0 || vtype&0x7 == 4 {
		v.vtype = vtypeVill
		v.vl = 0
		return 0
	}
	v.vtype = vtype
	v.vl = avl
	if v.vl > vlmax {
		v.vl = vlmax
	}
	v.vstart = 0
	return v.vl
}

// vreg returns the byte backing of vector register i. Group overflow for
// LMUL > 1 wraps into the following registers.
func (v *VectorState) vreg(i uint8) []byte {
	reg, _ := v.regs.Lookup(vRegNames[i])
	return reg.Bytes()
}

var vRegNames = func() [32]string {
	var names [32]string
	for i := range names {
		names[i] = "v" + strconv.Itoa(i)
	}
	return names
}()

// elemBytes returns the byte slice of element idx for a register group
// starting at reg with the given element size in bytes.
func (v *VectorState) elemBytes(reg uint8, idx uint32, size uint32) []byte {
	perReg := uint32(VLenBits/8) / size
	r := reg + uint8(idx/perReg)
	off := idx % perReg * size
	return v.vreg(r)[off : off+size]
}

// ElemGet reads element idx of the group starting at reg, zero-extended.
func (v *VectorState) ElemGet(reg uint8, idx uint32, sew uint32) uint32 {
	b := v.elemBytes(reg, idx, sew/8)
	var val uint32
	for i := len(b) - 1; i >= 0; i-- {
		val = val<<8 | uint32(b[i])
	}
	return val
}

// ElemSet writes element idx of the group starting at reg.
func (v *VectorState) ElemSet(reg uint8, idx uint32, sew uint32, val uint32) {
	b := v.elemBytes(reg, idx, sew/8)
	for i := range b {
		b[i] = byte(val)
		val >>= 8
	}
}

// MaskBit returns bit idx of the mask register v0.
func (v *VectorState) MaskBit(idx uint32) bool {
	return v.vreg(0)[idx/8]>>(idx%8)&1 == 1
}
