package loader_test

import (
	"encoding/binary"
	"os"

	. "github.com/onsi/gomega"
)

// Minimal hand-built ELF images for the loader tests.

type elfSegment struct {
	vaddr uint32
	data  []byte
	memsz uint32 // 0: len(data)
	flags uint32
}

type elfSymbol struct {
	name  string
	value uint32
	size  uint32
}

type elfSpec struct {
	entry        uint32
	machine      uint16 // 0: EM_RISCV
	segments     []elfSegment
	symbols      []elfSymbol
	gnuStackSize uint32
}

const (
	elfEhSize   = 52
	elfPhSize   = 32
	elfShSize   = 40
	elfSymSize  = 16
	ptLoad      = 1
	ptGnuStack  = 0x6474E551
	emRiscv     = 243
)

// writeELF assembles an ELF32 executable image per spec: the program
// headers, the segment bytes, and (when symbols are given) a .symtab /
// .strtab / .shstrtab section group.
func writeELF(path string, spec elfSpec) {
	machine := spec.machine
	if machine == 0 {
		machine = emRiscv
	}

	phnum := len(spec.segments)
	if spec.gnuStackSize != 0 {
		phnum++
	}

	dataOff := uint32(elfEhSize + elfPhSize*phnum)

	// Program headers and segment payloads.
	var phdrs, payload []byte
	off := dataOff
	for _, seg := range spec.segments {
		memsz := seg.memsz
		if memsz == 0 {
			memsz = uint32(len(seg.data))
		}
		ph := make([]byte, elfPhSize)
		binary.LittleEndian.PutUint32(ph[0:], ptLoad)
		binary.LittleEndian.PutUint32(ph[4:], off)
		binary.LittleEndian.PutUint32(ph[8:], seg.vaddr)
		binary.LittleEndian.PutUint32(ph[12:], seg.vaddr)
		binary.LittleEndian.PutUint32(ph[16:], uint32(len(seg.data)))
		binary.LittleEndian.PutUint32(ph[20:], memsz)
		binary.LittleEndian.PutUint32(ph[24:], seg.flags)
		binary.LittleEndian.PutUint32(ph[28:], 0x1000)
		phdrs = append(phdrs, ph...)
		payload = append(payload, seg.data...)
		off += uint32(len(seg.data))
	}
	if spec.gnuStackSize != 0 {
		ph := make([]byte, elfPhSize)
		binary.LittleEndian.PutUint32(ph[0:], ptGnuStack)
		binary.LittleEndian.PutUint32(ph[20:], spec.gnuStackSize)
		binary.LittleEndian.PutUint32(ph[24:], 0x6)
		binary.LittleEndian.PutUint32(ph[28:], 16)
		phdrs = append(phdrs, ph...)
	}

	// Optional symbol table sections.
	var sections []byte
	var shoff uint32
	shnum := 0
	shstrndx := 0
	if len(spec.symbols) > 0 {
		strtab := []byte{0}
		symtab := make([]byte, elfSymSize) // null symbol
		for _, sym := range spec.symbols {
			nameOff := uint32(len(strtab))
			strtab = append(strtab, sym.name...)
			strtab = append(strtab, 0)

			entry := make([]byte, elfSymSize)
			binary.LittleEndian.PutUint32(entry[0:], nameOff)
			binary.LittleEndian.PutUint32(entry[4:], sym.value)
			binary.LittleEndian.PutUint32(entry[8:], sym.size)
			entry[12] = 0x11   // STB_GLOBAL, STT_OBJECT
			binary.LittleEndian.PutUint16(entry[14:], 0xFFF1) // SHN_ABS
			symtab = append(symtab, entry...)
		}
		shstrtab := []byte("\x00.symtab\x00.strtab\x00.shstrtab\x00")

		symtabOff := off
		strtabOff := symtabOff + uint32(len(symtab))
		shstrtabOff := strtabOff + uint32(len(strtab))
		shoff = shstrtabOff + uint32(len(shstrtab))
		shnum = 4
		shstrndx = 3

		payload = append(payload, symtab...)
		payload = append(payload, strtab...)
		payload = append(payload, shstrtab...)

		shdr := func(name, typ, offset, size, link, info, entsize uint32) []byte {
			sh := make([]byte, elfShSize)
			binary.LittleEndian.PutUint32(sh[0:], name)
			binary.LittleEndian.PutUint32(sh[4:], typ)
			binary.LittleEndian.PutUint32(sh[16:], offset)
			binary.LittleEndian.PutUint32(sh[20:], size)
			binary.LittleEndian.PutUint32(sh[24:], link)
			binary.LittleEndian.PutUint32(sh[28:], info)
			binary.LittleEndian.PutUint32(sh[32:], 1)
			binary.LittleEndian.PutUint32(sh[36:], entsize)
			return sh
		}

		sections = append(sections, make([]byte, elfShSize)...) // null
		sections = append(sections, shdr(1, 2, symtabOff, uint32(len(symtab)), 2, 1, elfSymSize)...)
		sections = append(sections, shdr(9, 3, strtabOff, uint32(len(strtab)), 0, 0, 0)...)
		sections = append(sections, shdr(17, 3, shstrtabOff, uint32(len(shstrtab)), 0, 0, 0)...)
	}

	ehdr := make([]byte, elfEhSize)
	copy(ehdr[0:4], []byte{0x7F, 'E', 'L', 'F'})
	ehdr[4] = 1 // ELFCLASS32
	ehdr[5] = 1 // little endian
	ehdr[6] = 1 // version
	binary.LittleEndian.PutUint16(ehdr[16:], 2) // ET_EXEC
	binary.LittleEndian.PutUint16(ehdr[18:], machine)
	binary.LittleEndian.PutUint32(ehdr[20:], 1)
	binary.LittleEndian.PutUint32(ehdr[24:], spec.entry)
	binary.LittleEndian.PutUint32(ehdr[28:], elfEhSize) // phoff
	binary.LittleEndian.PutUint32(ehdr[32:], shoff)
	binary.LittleEndian.PutUint16(ehdr[40:], elfEhSize)
	binary.LittleEndian.PutUint16(ehdr[42:], elfPhSize)
	binary.LittleEndian.PutUint16(ehdr[44:], uint16(phnum))
	binary.LittleEndian.PutUint16(ehdr[46:], elfShSize)
	binary.LittleEndian.PutUint16(ehdr[48:], uint16(shnum))
	binary.LittleEndian.PutUint16(ehdr[50:], uint16(shstrndx))

	var image []byte
	image = append(image, ehdr...)
	image = append(image, phdrs...)
	image = append(image, payload...)
	image = append(image, sections...)

	Expect(os.WriteFile(path, image, 0644)).To(Succeed())
}

// writeELF64 writes a minimal 64-bit ELF header to test class rejection.
func writeELF64(path string) {
	ehdr := make([]byte, 64)
	copy(ehdr[0:4], []byte{0x7F, 'E', 'L', 'F'})
	ehdr[4] = 2 // ELFCLASS64
	ehdr[5] = 1
	ehdr[6] = 1
	binary.LittleEndian.PutUint16(ehdr[16:], 2)
	binary.LittleEndian.PutUint16(ehdr[18:], emRiscv)
	binary.LittleEndian.PutUint32(ehdr[20:], 1)
	binary.LittleEndian.PutUint16(ehdr[52:], 64) // ehsize
	binary.LittleEndian.PutUint16(ehdr[54:], 56) // phentsize

	Expect(os.WriteFile(path, ehdr, 0644)).To(Succeed())
}
