package semihost

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// The RISC-V adaptation of ARM semihosting marks a semihosting ebreak with
// a sentinel instruction on each side:
//
//	slli x0, x0, 0x1f
//	ebreak
//	srai x0, x0, 7
//
// The call number travels in a0, the parameter (or parameter block
// address) in a1, and the result returns in a0.
const (
	armSentinelBefore = 0x01F01013 // slli x0, x0, 0x1f
	armSentinelAfter  = 0x40705013 // srai x0, x0, 7
)

// ARM semihosting call numbers (the subset a bare-metal libc exercises).
const (
	armSysOpen   = 0x01
	armSysClose  = 0x02
	armSysWriteC = 0x03
	armSysWrite0 = 0x04
	armSysWrite  = 0x05
	armSysRead   = 0x06
	armSysClock  = 0x10
	armSysExit   = 0x18
)

// ArmSemihost implements the ebreak-sentinel semihosting convention over
// the architectural state.
type ArmSemihost struct {
	state  *emu.State
	stdout io.Writer
	exitFn func()

	log *logrus.Entry
}

// NewArmSemihost creates the ARM semihosting backend. The caller registers
// it as an ebreak handler:
//
//	state.AddEbreakHandler(func(inst *insts.Instruction) bool {
//		if semi.IsSemihostingCall(inst) {
//			semi.OnEBreak(inst)
//			return true
//		}
//		return false
//	})
func NewArmSemihost(state *emu.State, stdout io.Writer, exitFn func()) *ArmSemihost {
	return &ArmSemihost{
		state:  state,
		stdout: stdout,
		exitFn: exitFn,
		log:    logrus.WithField("component", "arm-semihost"),
	}
}

// IsSemihostingCall reports whether the ebreak at inst carries the
// semihosting sentinel sequence.
func (a *ArmSemihost) IsSemihostingCall(inst *insts.Instruction) bool {
	if inst.Addr < 4 {
		return false
	}
	var buf [4]byte
	a.state.RawMemory().Load(inst.Addr-4, buf[:])
	before := le32(buf[:])
	a.state.RawMemory().Load(inst.Addr+4, buf[:])
	after := le32(buf[:])
	return before == armSentinelBefore && after == armSentinelAfter
}

// OnEBreak services the semihosting call: the call number is read from a0,
// the argument block from a1. An exit call invokes the exit callback.
func (a *ArmSemihost) OnEBreak(inst *insts.Instruction) {
	op := a.state.ReadX(10)    // a0
	param := a.state.ReadX(11) // a1

	switch op {
	case armSysWriteC:
		var b [1]byte
		a.state.RawMemory().Load(param, b[:])
		_, _ = a.stdout.Write(b[:])
	case armSysWrite0:
		var out []byte
		for addr := param; ; addr++ {
			b := a.state.RawMemory().Read8(addr)
			if b == 0 {
				break
			}
			out = append(out, b)
		}
		_, _ = a.stdout.Write(out)
	case armSysWrite:
		// Parameter block: {fd, buffer, length} as 32-bit words.
		buffer := a.state.RawMemory().Read32(param + 4)
		length := a.state.RawMemory().Read32(param + 8)
		data := make([]byte, length)
		a.state.RawMemory().Load(buffer, data)
		_, _ = a.stdout.Write(data)
		a.state.WriteX(10, 0) // all bytes written
	case armSysExit:
		a.log.Debug("arm semihost exit request")
		a.exitFn()
	default:
		a.log.WithField("op", op).Warn("unhandled arm semihosting call")
		a.state.WriteX(10, ^uint32(0))
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
