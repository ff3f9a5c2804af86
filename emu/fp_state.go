package emu

// RoundingMode is an IEEE-754 rounding mode as encoded in frm and in the
// instruction rm field.
type RoundingMode uint8

// The RV32 rounding modes. RoundDyn only appears in instruction rm fields
// and selects the dynamic mode held in frm.
const (
	RoundNearestEven RoundingMode = 0 // RNE
	RoundTowardZero  RoundingMode = 1 // RTZ
	RoundDown        RoundingMode = 2 // RDN
	RoundUp          RoundingMode = 3 // RUP
	RoundNearestMax  RoundingMode = 4 // RMM
	RoundDyn         RoundingMode = 7
)

// Sticky exception flag bits, fflags layout.
const (
	FlagNX uint32 = 1 << 0 // inexact
	FlagUF uint32 = 1 << 1 // underflow
	FlagOF uint32 = 1 << 2 // overflow
	FlagDZ uint32 = 1 << 3 // divide by zero
	FlagNV uint32 = 1 << 4 // invalid operation
)

// FPState holds the dynamic rounding mode and the sticky exception flags.
// The fflags/frm/fcsr CSRs are views onto this state.
type FPState struct {
	frm    RoundingMode
	fflags uint32
}

// NewFPState creates the FP state with round-to-nearest-even and no flags.
func NewFPState() *FPState {
	return &FPState{}
}

// RoundingMode returns the current dynamic rounding mode.
func (f *FPState) RoundingMode() RoundingMode { return f.frm }

// SetRoundingMode sets the dynamic rounding mode.
func (f *FPState) SetRoundingMode(rm RoundingMode) { f.frm = rm & 0x7 }

// Flags returns the sticky exception flags.
func (f *FPState) Flags() uint32 { return f.fflags }

// SetFlags replaces the sticky exception flags.
func (f *FPState) SetFlags(flags uint32) { f.fflags = flags & 0x1F }

// RaiseFlags ORs flags into the sticky exception flags.
func (f *FPState) RaiseFlags(flags uint32) { f.fflags |= flags & 0x1F }

// Resolve maps an instruction rm field to the effective rounding mode,
// substituting the dynamic mode for RoundDyn.
func (f *FPState) Resolve(rm uint8) RoundingMode {
	mode := RoundingMode(rm)
	if mode == RoundDyn {
		return f.frm
	}
	return mode
}
