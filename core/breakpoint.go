package core

import (
	"fmt"
	"sort"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/mem"
)

// Breakpoint encodings written over the original instruction.
const (
	ebreakWord     = 0x00100073 // ebreak
	ebreakHalfword = 0x9002     // c.ebreak
)

// breakpoint remembers the original instruction bytes replaced by the
// ebreak stub at addr.
type breakpoint struct {
	addr     uint32
	original []byte
}

// breakpointManager implements software breakpoints by rewriting
// instruction memory with the ebreak encoding matching the width of the
// original instruction. The stores go to the raw memory, so the decode
// cache invalidates through the ordinary write-observer path.
type breakpointManager struct {
	memory  *mem.Memory
	decoder *insts.Decoder
	active  map[uint32]*breakpoint
}

func newBreakpointManager(memory *mem.Memory, decoder *insts.Decoder) *breakpointManager {
	return &breakpointManager{
		memory:  memory,
		decoder: decoder,
		active:  make(map[uint32]*breakpoint),
	}
}

// set installs a breakpoint at addr. Setting an existing breakpoint is a
// no-op.
func (b *breakpointManager) set(addr uint32) error {
	if _, ok := b.active[addr]; ok {
		return nil
	}
	inst := b.decoder.Decode(addr, b.memory.Read32(addr))
	if inst.Op == insts.OpIllegal {
		return fmt.Errorf("address 0x%08x: no decodable instruction", addr)
	}

	bp := &breakpoint{addr: addr, original: make([]byte, inst.Size)}
	b.memory.Load(addr, bp.original)
	b.active[addr] = bp
	b.arm(bp)
	return nil
}

// arm writes the ebreak stub matching the original instruction width.
func (b *breakpointManager) arm(bp *breakpoint) {
	if len(bp.original) == 2 {
		b.memory.Write16(bp.addr, ebreakHalfword)
		return
	}
	b.memory.Write32(bp.addr, ebreakWord)
}

// disarm restores the original instruction bytes.
func (b *breakpointManager) disarm(bp *breakpoint) {
	b.memory.Store(bp.addr, bp.original)
}

// clear removes the breakpoint at addr, restoring the original bytes.
func (b *breakpointManager) clear(addr uint32) error {
	bp, ok := b.active[addr]
	if !ok {
		return fmt.Errorf("address 0x%08x: no breakpoint", addr)
	}
	b.disarm(bp)
	delete(b.active, addr)
	return nil
}

// clearAll removes every breakpoint.
func (b *breakpointManager) clearAll() {
	for addr := range b.active {
		_ = b.clear(addr)
	}
}

func (b *breakpointManager) has(addr uint32) bool {
	_, ok := b.active[addr]
	return ok
}

func (b *breakpointManager) get(addr uint32) (*breakpoint, bool) {
	bp, ok := b.active[addr]
	return bp, ok
}

// list returns the breakpoint addresses in ascending order.
func (b *breakpointManager) list() []uint32 {
	addrs := make([]uint32, 0, len(b.active))
	for addr := range b.active {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// overlay copies the original instruction bytes over buf wherever the read
// range intersects an armed breakpoint, so debug reads observe the program
// as written, not the ebreak stubs.
func (b *breakpointManager) overlay(addr uint32, buf []byte) {
	end := addr + uint32(len(buf))
	for _, bp := range b.active {
		bpEnd := bp.addr + uint32(len(bp.original))
		if bp.addr >= end || bpEnd <= addr {
			continue
		}
		for i, by := range bp.original {
			a := bp.addr + uint32(i)
			if a >= addr && a < end {
				buf[a-addr] = by
			}
		}
	}
}
