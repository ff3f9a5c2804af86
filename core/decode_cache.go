package core

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// boundInst couples a decoded instruction with its semantic function, so
// the hot loop dispatches through a direct function reference.
type boundInst struct {
	inst *insts.Instruction
	fn   emu.SemanticFn
}

// decodeCache memoizes decode results by PC. Any store whose range
// overlaps a cached instruction's bytes drops that entry before the next
// fetch, which keeps breakpoint rewrites and self-modifying code correct.
type decodeCache struct {
	entries map[uint32]boundInst
}

func newDecodeCache() *decodeCache {
	return &decodeCache{entries: make(map[uint32]boundInst)}
}

func (c *decodeCache) get(pc uint32) (boundInst, bool) {
	e, ok := c.entries[pc]
	return e, ok
}

func (c *decodeCache) put(pc uint32, e boundInst) {
	c.entries[pc] = e
}

// invalidate drops every cached instruction whose byte range overlaps
// [addr, addr+size). An instruction is at most 4 bytes, so only PCs in
// [addr-3, addr+size) can overlap.
func (c *decodeCache) invalidate(addr uint32, size uint32) {
	if len(c.entries) == 0 || size == 0 {
		return
	}
	start := addr - 3
	if start > addr { // wrapped below zero
		start = 0
	}
	for pc := start; pc < addr+size; pc++ {
		e, ok := c.entries[pc]
		if !ok {
			continue
		}
		if pc+e.inst.Size > addr {
			delete(c.entries, pc)
		}
	}
}

func (c *decodeCache) clear() {
	c.entries = make(map[uint32]boundInst)
}
