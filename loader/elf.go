// Package loader provides ELF binary loading for RV32 executables.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// DefaultStackSize is the stack size used when neither the stack-size flag,
// the __stack_size symbol, nor a GNU_STACK segment specifies one.
const DefaultStackSize = 32 * 1024

// Symbol names the simulator looks up in the executable.
const (
	StackEndSymbol  = "__stack_end"
	StackSizeSymbol = "__stack_size"
)

// Symbol is a resolved ELF symbol.
type Symbol struct {
	Address uint32
	Size    uint32
}

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded RV32 program ready for execution.
type Program struct {
	// EntryPoint is the virtual address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment

	symbols map[string]Symbol

	// gnuStackSize is the PT_GNU_STACK memory size, 0 when absent.
	gnuStackSize uint32
}

// Load parses an RV32 ELF binary and returns a Program struct ready for
// loading into the simulator's memory.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
		symbols:    make(map[string]Symbol),
	}

	for _, phdr := range f.Progs {
		switch phdr.Type {
		case elf.PT_GNU_STACK:
			prog.gnuStackSize = uint32(phdr.Memsz)
			continue
		case elf.PT_LOAD:
		default:
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	// Symbols are optional; a stripped executable simply has none.
	syms, err := f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}
	for _, sym := range syms {
		if sym.Name == "" {
			continue
		}
		prog.symbols[sym.Name] = Symbol{
			Address: uint32(sym.Value),
			Size:    uint32(sym.Size),
		}
	}

	logrus.WithFields(logrus.Fields{
		"path":     path,
		"entry":    fmt.Sprintf("0x%08x", prog.EntryPoint),
		"segments": len(prog.Segments),
		"symbols":  len(prog.symbols),
	}).Debug("loaded ELF program")

	return prog, nil
}

// GetSymbol resolves a symbol by name.
func (p *Program) GetSymbol(name string) (Symbol, bool) {
	sym, ok := p.symbols[name]
	return sym, ok
}

// GetStackSize returns the PT_GNU_STACK memory size; ok is false when the
// executable carries no such segment.
func (p *Program) GetStackSize() (uint32, bool) {
	return p.gnuStackSize, p.gnuStackSize != 0
}

// MemoryWriter is the sink LoadInto copies segments into.
type MemoryWriter interface {
	Store(addr uint32, data []byte)
}

// LoadInto copies every loadable segment into memory, zero-filling the BSS
// tail where the memory size exceeds the file size.
func (p *Program) LoadInto(memory MemoryWriter) {
	for _, seg := range p.Segments {
		if len(seg.Data) > 0 {
			memory.Store(seg.VirtAddr, seg.Data)
		}
		if tail := seg.MemSize - uint32(len(seg.Data)); tail > 0 {
			memory.Store(seg.VirtAddr+uint32(len(seg.Data)), make([]byte, tail))
		}
	}
}

// StackConfig carries the driver's stack flags; nil fields mean unset.
type StackConfig struct {
	StackEnd  *uint32
	StackSize *uint32
}

// ResolveStack applies the stack initialization precedence. The stack end
// comes from the flag, else the __stack_end symbol; without either, no
// stack pointer is initialized and ok is false. The stack size comes from
// the flag, else the __stack_size symbol, else the GNU_STACK segment size,
// else DefaultStackSize. The two are resolved independently; the initial
// sp is stackEnd + stackSize.
func (p *Program) ResolveStack(cfg StackConfig) (sp uint32, ok bool) {
	var stackEnd uint32
	haveEnd := false
	if sym, found := p.GetSymbol(StackEndSymbol); found {
		stackEnd = sym.Address
		haveEnd = true
	}
	if cfg.StackEnd != nil {
		stackEnd = *cfg.StackEnd
		haveEnd = true
	}
	if !haveEnd {
		return 0, false
	}

	stackSize := uint32(DefaultStackSize)
	if size, found := p.GetStackSize(); found {
		stackSize = size
	}
	if sym, found := p.GetSymbol(StackSizeSymbol); found {
		stackSize = sym.Address
	}
	if cfg.StackSize != nil {
		stackSize = *cfg.StackSize
	}

	return stackEnd + stackSize, true
}
