package emu

import (
	"math"

	"github.com/sarchlab/rvsim/insts"
)

// F and D semantics. Values compute through Go's IEEE-754 arithmetic
// (round-to-nearest-even); the explicitly rounded operations are the
// integer conversions, which honor the resolved rounding mode. Generated
// NaNs are canonicalized the way the ISA requires, and the sticky flags
// are raised for invalid operations, divide by zero, and inexact
// conversions; overflow and underflow are never raised.

func f32Val(s *State, reg uint8) float32 {
	return math.Float32frombits(s.ReadF32(reg))
}

func writeF32Val(s *State, reg uint8, v float32) {
	bits := math.Float32bits(v)
	if v != v { // NaN results are canonicalized
		bits = canonicalNaN32
	}
	s.WriteF32(reg, bits)
}

func writeF64Val(s *State, reg uint8, v float64) {
	b := math.Float64bits(v)
	if math.IsNaN(v) {
		b = canonicalNaN64
	}
	s.WriteF(reg, b)
}

const canonicalNaN64 = 0x7FF8000000000000

func isNaN32(bits uint32) bool {
	return bits&0x7F800000 == 0x7F800000 && bits&0x007FFFFF != 0
}

func isSNaN32(bits uint32) bool {
	return isNaN32(bits) && bits&0x00400000 == 0
}

func isNaN64(bits uint64) bool {
	return bits&0x7FF0000000000000 == 0x7FF0000000000000 &&
		bits&0x000FFFFFFFFFFFFF != 0
}

func isSNaN64(bits uint64) bool {
	return isNaN64(bits) && bits&0x0008000000000000 == 0
}

// raiseInvalid32 raises NV when an operation over the given operand bits
// produced a NaN from non-NaN inputs, or consumed a signaling NaN.
func raiseInvalid32(s *State, result float32, operands ...uint32) {
	anyNaN := false
	for _, op := range operands {
		if isSNaN32(op) {
			s.FP().RaiseFlags(FlagNV)
			return
		}
		if isNaN32(op) {
			anyNaN = true
		}
	}
	if result != result && !anyNaN {
		s.FP().RaiseFlags(FlagNV)
	}
}

func raiseInvalid64(s *State, result float64, operands ...uint64) {
	anyNaN := false
	for _, op := range operands {
		if isSNaN64(op) {
			s.FP().RaiseFlags(FlagNV)
			return
		}
		if isNaN64(op) {
			anyNaN = true
		}
	}
	if math.IsNaN(result) && !anyNaN {
		s.FP().RaiseFlags(FlagNV)
	}
}

// Single-precision arithmetic.

func execFadds(s *State, i *insts.Instruction) {
	a, b := f32Val(s, i.Rs1), f32Val(s, i.Rs2)
	r := a + b
	raiseInvalid32(s, r, s.ReadF32(i.Rs1), s.ReadF32(i.Rs2))
	writeF32Val(s, i.Rd, r)
}

func execFsubs(s *State, i *insts.Instruction) {
	a, b := f32Val(s, i.Rs1), f32Val(s, i.Rs2)
	r := a - b
	raiseInvalid32(s, r, s.ReadF32(i.Rs1), s.ReadF32(i.Rs2))
	writeF32Val(s, i.Rd, r)
}

func execFmuls(s *State, i *insts.Instruction) {
	a, b := f32Val(s, i.Rs1), f32Val(s, i.Rs2)
	r := a * b
	raiseInvalid32(s, r, s.ReadF32(i.Rs1), s.ReadF32(i.Rs2))
	writeF32Val(s, i.Rd, r)
}

func execFdivs(s *State, i *insts.Instruction) {
	a, b := f32Val(s, i.Rs1), f32Val(s, i.Rs2)
	if b == 0 && a == a && !math.IsInf(float64(a), 0) && a != 0 {
		s.FP().RaiseFlags(FlagDZ)
	}
	r := a / b
	raiseInvalid32(s, r, s.ReadF32(i.Rs1), s.ReadF32(i.Rs2))
	writeF32Val(s, i.Rd, r)
}

func execFsqrts(s *State, i *insts.Instruction) {
	a := f32Val(s, i.Rs1)
	if a < 0 {
		s.FP().RaiseFlags(FlagNV)
	}
	writeF32Val(s, i.Rd, float32(math.Sqrt(float64(a))))
}

// The fused multiply-adds compute through float64 FMA, which is exact for
// single-precision products.

func execFmadds(s *State, i *insts.Instruction) {
	r := float32(math.FMA(float64(f32Val(s, i.Rs1)), float64(f32Val(s, i.Rs2)),
		float64(f32Val(s, i.Rs3))))
	raiseInvalid32(s, r, s.ReadF32(i.Rs1), s.ReadF32(i.Rs2), s.ReadF32(i.Rs3))
	writeF32Val(s, i.Rd, r)
}

func execFmsubs(s *State, i *insts.Instruction) {
	r := float32(math.FMA(float64(f32Val(s, i.Rs1)), float64(f32Val(s, i.Rs2)),
		-float64(f32Val(s, i.Rs3))))
	raiseInvalid32(s, r, s.ReadF32(i.Rs1), s.ReadF32(i.Rs2), s.ReadF32(i.Rs3))
	writeF32Val(s, i.Rd, r)
}

func execFnmsubs(s *State, i *insts.Instruction) {
	r := float32(math.FMA(-float64(f32Val(s, i.Rs1)), float64(f32Val(s, i.Rs2)),
		float64(f32Val(s, i.Rs3))))
	raiseInvalid32(s, r, s.ReadF32(i.Rs1), s.ReadF32(i.Rs2), s.ReadF32(i.Rs3))
	writeF32Val(s, i.Rd, r)
}

func execFnmadds(s *State, i *insts.Instruction) {
	r := float32(math.FMA(-float64(f32Val(s, i.Rs1)), float64(f32Val(s, i.Rs2)),
		-float64(f32Val(s, i.Rs3))))
	raiseInvalid32(s, r, s.ReadF32(i.Rs1), s.ReadF32(i.Rs2), s.ReadF32(i.Rs3))
	writeF32Val(s, i.Rd, r)
}

// Sign injection moves raw bits; no flags.

func execFsgnjs(s *State, i *insts.Instruction) {
	s.WriteF32(i.Rd, s.ReadF32(i.Rs1)&0x7FFFFFFF|s.ReadF32(i.Rs2)&0x80000000)
}

func execFsgnjns(s *State, i *insts.Instruction) {
	s.WriteF32(i.Rd, s.ReadF32(i.Rs1)&0x7FFFFFFF|^s.ReadF32(i.Rs2)&0x80000000)
}

func execFsgnjxs(s *State, i *insts.Instruction) {
	s.WriteF32(i.Rd, s.ReadF32(i.Rs1)^s.ReadF32(i.Rs2)&0x80000000)
}

// fmin/fmax: a quiet NaN operand yields the other operand; two NaNs yield
// the canonical NaN; signaling NaNs raise NV. -0.0 orders below +0.0.

func execFmins(s *State, i *insts.Instruction) {
	fminmax32(s, i, true)
}

func execFmaxs(s *State, i *insts.Instruction) {
	fminmax32(s, i, false)
}

func fminmax32(s *State, i *insts.Instruction, min bool) {
	aBits, bBits := s.ReadF32(i.Rs1), s.ReadF32(i.Rs2)
	if isSNaN32(aBits) || isSNaN32(bBits) {
		s.FP().RaiseFlags(FlagNV)
	}
	aNaN, bNaN := isNaN32(aBits), isNaN32(bBits)
	switch {
	case aNaN && bNaN:
		s.WriteF32(i.Rd, canonicalNaN32)
		return
	case aNaN:
		s.WriteF32(i.Rd, bBits)
		return
	case bNaN:
		s.WriteF32(i.Rd, aBits)
		return
	}
	a, b := math.Float32frombits(aBits), math.Float32frombits(bBits)
	pick := aBits
	if a == b { // ±0: order by sign bit
		if (aBits&0x80000000 != 0) != min {
			pick = bBits
		}
	} else if (a < b) != min {
		pick = bBits
	}
	s.WriteF32(i.Rd, pick)
}

// Comparisons write 0/1 to an integer register. flt/fle raise NV on any
// NaN; feq only on signaling NaNs.

func execFeqs(s *State, i *insts.Instruction) {
	aBits, bBits := s.ReadF32(i.Rs1), s.ReadF32(i.Rs2)
	if isSNaN32(aBits) || isSNaN32(bBits) {
		s.FP().RaiseFlags(FlagNV)
	}
	s.WriteX(i.Rd, boolTo32(math.Float32frombits(aBits) == math.Float32frombits(bBits)))
}

func execFlts(s *State, i *insts.Instruction) {
	aBits, bBits := s.ReadF32(i.Rs1), s.ReadF32(i.Rs2)
	if isNaN32(aBits) || isNaN32(bBits) {
		s.FP().RaiseFlags(FlagNV)
	}
	s.WriteX(i.Rd, boolTo32(math.Float32frombits(aBits) < math.Float32frombits(bBits)))
}

func execFles(s *State, i *insts.Instruction) {
	aBits, bBits := s.ReadF32(i.Rs1), s.ReadF32(i.Rs2)
	if isNaN32(aBits) || isNaN32(bBits) {
		s.FP().RaiseFlags(FlagNV)
	}
	s.WriteX(i.Rd, boolTo32(math.Float32frombits(aBits) <= math.Float32frombits(bBits)))
}

// roundByMode rounds v to an integer-valued float per the rounding mode.
func roundByMode(v float64, rm RoundingMode) float64 {
	switch rm {
	case RoundTowardZero:
		return math.Trunc(v)
	case RoundDown:
		return math.Floor(v)
	case RoundUp:
		return math.Ceil(v)
	case RoundNearestMax:
		return math.Round(v)
	default:
		return math.RoundToEven(v)
	}
}

// convToInt32 converts with saturation, raising NV on NaN or out-of-range
// and NX on inexact conversions.
func convToInt32(s *State, v float64, rm RoundingMode) uint32 {
	if math.IsNaN(v) {
		s.FP().RaiseFlags(FlagNV)
		return math.MaxInt32
	}
	r := roundByMode(v, s.FP().Resolve(uint8(rm)))
	if r < math.MinInt32 {
		s.FP().RaiseFlags(FlagNV)
		return 0x80000000
	}
	if r > math.MaxInt32 {
		s.FP().RaiseFlags(FlagNV)
		return math.MaxInt32
	}
	if r != v {
		s.FP().RaiseFlags(FlagNX)
	}
	return uint32(int32(r))
}

func convToUint32(s *State, v float64, rm RoundingMode) uint32 {
	if math.IsNaN(v) {
		s.FP().RaiseFlags(FlagNV)
		return math.MaxUint32
	}
	r := roundByMode(v, s.FP().Resolve(uint8(rm)))
	if r < 0 {
		s.FP().RaiseFlags(FlagNV)
		return 0
	}
	if r > math.MaxUint32 {
		s.FP().RaiseFlags(FlagNV)
		return math.MaxUint32
	}
	if r != v {
		s.FP().RaiseFlags(FlagNX)
	}
	return uint32(r)
}

func execFcvtws(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, convToInt32(s, float64(f32Val(s, i.Rs1)), RoundingMode(i.Rm)))
}

func execFcvtwus(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, convToUint32(s, float64(f32Val(s, i.Rs1)), RoundingMode(i.Rm)))
}

func execFcvtsw(s *State, i *insts.Instruction) {
	writeF32Val(s, i.Rd, float32(int32(s.ReadX(i.Rs1))))
}

func execFcvtswu(s *State, i *insts.Instruction) {
	writeF32Val(s, i.Rd, float32(s.ReadX(i.Rs1)))
}

func execFmvxw(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, uint32(s.ReadF(i.Rs1)))
}

func execFmvwx(s *State, i *insts.Instruction) {
	s.WriteF32(i.Rd, s.ReadX(i.Rs1))
}

// fclass classification bits.
const (
	classNegInf uint32 = 1 << iota
	classNegNormal
	classNegSubnormal
	classNegZero
	classPosZero
	classPosSubnormal
	classPosNormal
	classPosInf
	classSNaN
	classQNaN
)

func execFclasss(s *State, i *insts.Instruction) {
	bits := s.ReadF32(i.Rs1)
	exp := bits >> 23 & 0xFF
	frac := bits & 0x007FFFFF
	neg := bits&0x80000000 != 0

	var class uint32
	switch {
	case exp == 0xFF && frac != 0:
		if isSNaN32(bits) {
			class = classSNaN
		} else {
			class = classQNaN
		}
	case exp == 0xFF && neg:
		class = classNegInf
	case exp == 0xFF:
		class = classPosInf
	case exp == 0 && frac == 0 && neg:
		class = classNegZero
	case exp == 0 && frac == 0:
		class = classPosZero
	case exp == 0 && neg:
		class = classNegSubnormal
	case exp == 0:
		class = classPosSubnormal
	case neg:
		class = classNegNormal
	default:
		class = classPosNormal
	}
	s.WriteX(i.Rd, class)
}

// Double precision.

func execFaddd(s *State, i *insts.Instruction) {
	r := s.ReadF64(i.Rs1) + s.ReadF64(i.Rs2)
	raiseInvalid64(s, r, s.ReadF(i.Rs1), s.ReadF(i.Rs2))
	writeF64Val(s, i.Rd, r)
}

func execFsubd(s *State, i *insts.Instruction) {
	r := s.ReadF64(i.Rs1) - s.ReadF64(i.Rs2)
	raiseInvalid64(s, r, s.ReadF(i.Rs1), s.ReadF(i.Rs2))
	writeF64Val(s, i.Rd, r)
}

func execFmuld(s *State, i *insts.Instruction) {
	r := s.ReadF64(i.Rs1) * s.ReadF64(i.Rs2)
	raiseInvalid64(s, r, s.ReadF(i.Rs1), s.ReadF(i.Rs2))
	writeF64Val(s, i.Rd, r)
}

func execFdivd(s *State, i *insts.Instruction) {
	a, b := s.ReadF64(i.Rs1), s.ReadF64(i.Rs2)
	if b == 0 && !math.IsNaN(a) && !math.IsInf(a, 0) && a != 0 {
		s.FP().RaiseFlags(FlagDZ)
	}
	r := a / b
	raiseInvalid64(s, r, s.ReadF(i.Rs1), s.ReadF(i.Rs2))
	writeF64Val(s, i.Rd, r)
}

func execFsqrtd(s *State, i *insts.Instruction) {
	a := s.ReadF64(i.Rs1)
	if a < 0 {
		s.FP().RaiseFlags(FlagNV)
	}
	writeF64Val(s, i.Rd, math.Sqrt(a))
}

func execFmaddd(s *State, i *insts.Instruction) {
	r := math.FMA(s.ReadF64(i.Rs1), s.ReadF64(i.Rs2), s.ReadF64(i.Rs3))
	raiseInvalid64(s, r, s.ReadF(i.Rs1), s.ReadF(i.Rs2), s.ReadF(i.Rs3))
	writeF64Val(s, i.Rd, r)
}

func execFmsubd(s *State, i *insts.Instruction) {
	r := math.FMA(s.ReadF64(i.Rs1), s.ReadF64(i.Rs2), -s.ReadF64(i.Rs3))
	raiseInvalid64(s, r, s.ReadF(i.Rs1), s.ReadF(i.Rs2), s.ReadF(i.Rs3))
	writeF64Val(s, i.Rd, r)
}

func execFnmsubd(s *State, i *insts.Instruction) {
	r := math.FMA(-s.ReadF64(i.Rs1), s.ReadF64(i.Rs2), s.ReadF64(i.Rs3))
	raiseInvalid64(s, r, s.ReadF(i.Rs1), s.ReadF(i.Rs2), s.ReadF(i.Rs3))
	writeF64Val(s, i.Rd, r)
}

func execFnmaddd(s *State, i *insts.Instruction) {
	r := math.FMA(-s.ReadF64(i.Rs1), s.ReadF64(i.Rs2), -s.ReadF64(i.Rs3))
	raiseInvalid64(s, r, s.ReadF(i.Rs1), s.ReadF(i.Rs2), s.ReadF(i.Rs3))
	writeF64Val(s, i.Rd, r)
}

func execFsgnjd(s *State, i *insts.Instruction) {
	const signBit = uint64(1) << 63
	s.WriteF(i.Rd, s.ReadF(i.Rs1)&^signBit|s.ReadF(i.Rs2)&signBit)
}

func execFsgnjnd(s *State, i *insts.Instruction) {
	const signBit = uint64(1) << 63
	s.WriteF(i.Rd, s.ReadF(i.Rs1)&^signBit|^s.ReadF(i.Rs2)&signBit)
}

func execFsgnjxd(s *State, i *insts.Instruction) {
	const signBit = uint64(1) << 63
	s.WriteF(i.Rd, s.ReadF(i.Rs1)^s.ReadF(i.Rs2)&signBit)
}

func execFmind(s *State, i *insts.Instruction) {
	fminmax64(s, i, true)
}

func execFmaxd(s *State, i *insts.Instruction) {
	fminmax64(s, i, false)
}

func fminmax64(s *State, i *insts.Instruction, min bool) {
	aBits, bBits := s.ReadF(i.Rs1), s.ReadF(i.Rs2)
	if isSNaN64(aBits) || isSNaN64(bBits) {
		s.FP().RaiseFlags(FlagNV)
	}
	aNaN, bNaN := isNaN64(aBits), isNaN64(bBits)
	switch {
	case aNaN && bNaN:
		s.WriteF(i.Rd, canonicalNaN64)
		return
	case aNaN:
		s.WriteF(i.Rd, bBits)
		return
	case bNaN:
		s.WriteF(i.Rd, aBits)
		return
	}
	a, b := math.Float64frombits(aBits), math.Float64frombits(bBits)
	pick := aBits
	if a == b {
		if (aBits>>63 != 0) != min {
			pick = bBits
		}
	} else if (a < b) != min {
		pick = bBits
	}
	s.WriteF(i.Rd, pick)
}

func execFcvtsd(s *State, i *insts.Instruction) {
	writeF32Val(s, i.Rd, float32(s.ReadF64(i.Rs1)))
}

func execFcvtds(s *State, i *insts.Instruction) {
	writeF64Val(s, i.Rd, float64(f32Val(s, i.Rs1)))
}

func execFeqd(s *State, i *insts.Instruction) {
	aBits, bBits := s.ReadF(i.Rs1), s.ReadF(i.Rs2)
	if isSNaN64(aBits) || isSNaN64(bBits) {
		s.FP().RaiseFlags(FlagNV)
	}
	s.WriteX(i.Rd, boolTo32(math.Float64frombits(aBits) == math.Float64frombits(bBits)))
}

func execFltd(s *State, i *insts.Instruction) {
	aBits, bBits := s.ReadF(i.Rs1), s.ReadF(i.Rs2)
	if isNaN64(aBits) || isNaN64(bBits) {
		s.FP().RaiseFlags(FlagNV)
	}
	s.WriteX(i.Rd, boolTo32(math.Float64frombits(aBits) < math.Float64frombits(bBits)))
}

func execFled(s *State, i *insts.Instruction) {
	aBits, bBits := s.ReadF(i.Rs1), s.ReadF(i.Rs2)
	if isNaN64(aBits) || isNaN64(bBits) {
		s.FP().RaiseFlags(FlagNV)
	}
	s.WriteX(i.Rd, boolTo32(math.Float64frombits(aBits) <= math.Float64frombits(bBits)))
}

func execFclassd(s *State, i *insts.Instruction) {
	bits := s.ReadF(i.Rs1)
	exp := bits >> 52 & 0x7FF
	frac := bits & 0x000FFFFFFFFFFFFF
	neg := bits>>63 != 0

	var class uint32
	switch {
	case exp == 0x7FF && frac != 0:
		if isSNaN64(bits) {
			class = classSNaN
		} else {
			class = classQNaN
		}
	case exp == 0x7FF && neg:
		class = classNegInf
	case exp == 0x7FF:
		class = classPosInf
	case exp == 0 && frac == 0 && neg:
		class = classNegZero
	case exp == 0 && frac == 0:
		class = classPosZero
	case exp == 0 && neg:
		class = classNegSubnormal
	case exp == 0:
		class = classPosSubnormal
	case neg:
		class = classNegNormal
	default:
		class = classPosNormal
	}
	s.WriteX(i.Rd, class)
}

func execFcvtwd(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, convToInt32(s, s.ReadF64(i.Rs1), RoundingMode(i.Rm)))
}

func execFcvtwud(s *State, i *insts.Instruction) {
	s.WriteX(i.Rd, convToUint32(s, s.ReadF64(i.Rs1), RoundingMode(i.Rm)))
}

func execFcvtdw(s *State, i *insts.Instruction) {
	writeF64Val(s, i.Rd, float64(int32(s.ReadX(i.Rs1))))
}

func execFcvtdwu(s *State, i *insts.Instruction) {
	writeF64Val(s, i.Rd, float64(s.ReadX(i.Rs1)))
}
