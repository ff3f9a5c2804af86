package core

import "fmt"

// The synchronous debug surface consumed by the interactive shell. Every
// operation except Halt and Wait requires the core to be Halted (or still
// Idle); the loop goroutine owns the state while Running.

// halted reports whether debug access is currently legal.
func (c *Core) halted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusHalted || c.status == StatusIdle
}

// ReadRegister reads a register or CSR by name.
func (c *Core) ReadRegister(name string) (uint64, error) {
	if !c.halted() {
		return 0, fmt.Errorf("ReadRegister: %w", ErrNotHalted)
	}
	return c.state.ReadRegister(name)
}

// WriteRegister writes a register or CSR by name. Writing pc while halted
// at a breakpoint clears the pending step-over, since the next instruction
// is no longer the one under the stub.
func (c *Core) WriteRegister(name string, value uint64) error {
	if !c.halted() {
		return fmt.Errorf("WriteRegister: %w", ErrNotHalted)
	}
	if name == "pc" {
		c.mu.Lock()
		if c.haltInfo.Reason == HaltBreakpoint {
			c.haltInfo = HaltInfo{}
			c.needStepOver = false
		}
		c.mu.Unlock()
	}
	return c.state.WriteRegister(name, value)
}

// ReadMemory reads size bytes at addr, bypassing watchers. Armed
// breakpoints read back as the original instruction bytes, not the ebreak
// stubs.
func (c *Core) ReadMemory(addr uint32, size uint32) ([]byte, error) {
	if !c.halted() {
		return nil, fmt.Errorf("ReadMemory: %w", ErrNotHalted)
	}
	if err := checkRange(addr, size); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	c.state.RawMemory().Load(addr, buf)
	c.bps.overlay(addr, buf)
	return buf, nil
}

// WriteMemory writes bytes at addr, bypassing watchers but not the atomic
// wrapper, so a live LR reservation on the written word is invalidated.
func (c *Core) WriteMemory(addr uint32, data []byte) error {
	if !c.halted() {
		return fmt.Errorf("WriteMemory: %w", ErrNotHalted)
	}
	if err := checkRange(addr, uint32(len(data))); err != nil {
		return err
	}
	c.state.Atomic().Store(addr, data)
	return nil
}

func checkRange(addr uint32, size uint32) error {
	if size == 0 {
		return nil
	}
	if addr+size-1 < addr { // wraps past the top of the address space
		return fmt.Errorf("0x%08x+%d: %w", addr, size, ErrMemoryRange)
	}
	return nil
}

// SetSwBreakpoint installs a software breakpoint at addr.
func (c *Core) SetSwBreakpoint(addr uint32) error {
	if !c.halted() {
		return fmt.Errorf("SetSwBreakpoint: %w", ErrNotHalted)
	}
	return c.bps.set(addr)
}

// ClearSwBreakpoint removes the breakpoint at addr.
func (c *Core) ClearSwBreakpoint(addr uint32) error {
	if !c.halted() {
		return fmt.Errorf("ClearSwBreakpoint: %w", ErrNotHalted)
	}
	return c.bps.clear(addr)
}

// ClearAllSwBreakpoints removes every breakpoint.
func (c *Core) ClearAllSwBreakpoints() error {
	if !c.halted() {
		return fmt.Errorf("ClearAllSwBreakpoints: %w", ErrNotHalted)
	}
	c.bps.clearAll()
	return nil
}

// HasBreakpoint reports whether a breakpoint is armed at addr.
func (c *Core) HasBreakpoint(addr uint32) bool {
	return c.bps.has(addr)
}

// Breakpoints returns the armed breakpoint addresses.
func (c *Core) Breakpoints() []uint32 {
	return c.bps.list()
}

// GetDisassembly disassembles the instruction at addr. At an armed
// breakpoint it disassembles the original instruction, not the stub.
func (c *Core) GetDisassembly(addr uint32) (string, error) {
	if !c.halted() {
		return "", fmt.Errorf("GetDisassembly: %w", ErrNotHalted)
	}
	var raw [4]byte
	c.state.RawMemory().Load(addr, raw[:])
	c.bps.overlay(addr, raw[:])
	word := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	inst := c.decoder.Decode(addr, word)
	return inst.String(), nil
}
