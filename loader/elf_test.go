package loader_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/mem"
)

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with a valid RV32 ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				writeELF(elfPath, elfSpec{
					entry: 0x10080,
					segments: []elfSegment{
						{vaddr: 0x10000, data: []byte{
							0x93, 0x00, 0x50, 0x00, // addi x1, x0, 5
							0x33, 0x81, 0x10, 0x00, // add x2, x1, x1
						}, flags: 0x5},
					},
				})
			})

			It("should load without error", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
			})

			It("should extract the correct entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x10080)))
			})

			It("should load segment contents", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].VirtAddr).To(Equal(uint32(0x10000)))
				Expect(prog.Segments[0].Data).To(HaveLen(8))
				Expect(prog.Segments[0].Flags & loader.SegmentFlagExecute).NotTo(BeZero())
			})

			It("should copy segments into memory with LoadInto", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				m := mem.NewMemory()
				prog.LoadInto(m)
				Expect(m.Read32(0x10000)).To(Equal(uint32(0x00500093)))
				Expect(m.Read32(0x10004)).To(Equal(uint32(0x00108133)))
			})
		})

		Context("with BSS", func() {
			It("should zero-fill the BSS tail", func() {
				elfPath := filepath.Join(tempDir, "bss.elf")
				writeELF(elfPath, elfSpec{
					entry: 0x10000,
					segments: []elfSegment{
						{vaddr: 0x20000, data: []byte{1, 2, 3, 4}, memsz: 64, flags: 0x6},
					},
				})

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				m := mem.NewMemory()
				// Pre-dirty the BSS range to prove the zero fill.
				m.Write32(0x20010, 0xFFFFFFFF)
				prog.LoadInto(m)

				Expect(m.Read8(0x20000)).To(Equal(uint8(1)))
				Expect(m.Read32(0x20010)).To(Equal(uint32(0)))
			})
		})

		Context("with an invalid file", func() {
			It("should return an error for a non-existent file", func() {
				_, err := loader.Load("/nonexistent/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("should return an error for a non-ELF file", func() {
				path := filepath.Join(tempDir, "not-elf.bin")
				Expect(os.WriteFile(path, []byte("not an elf"), 0644)).To(Succeed())

				_, err := loader.Load(path)
				Expect(err).To(HaveOccurred())
			})

			It("should reject a 64-bit ELF", func() {
				path := filepath.Join(tempDir, "elf64.elf")
				writeELF64(path)

				_, err := loader.Load(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not a 32-bit"))
			})

			It("should reject a non-RISC-V machine", func() {
				path := filepath.Join(tempDir, "x86.elf")
				writeELF(path, elfSpec{entry: 0, machine: 3}) // EM_386

				_, err := loader.Load(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not a RISC-V"))
			})
		})
	})

	Describe("symbols", func() {
		It("should resolve symbols by name", func() {
			elfPath := filepath.Join(tempDir, "syms.elf")
			writeELF(elfPath, elfSpec{
				entry: 0x10000,
				segments: []elfSegment{
					{vaddr: 0x10000, data: []byte{0x13, 0, 0, 0}, flags: 0x5},
				},
				symbols: []elfSymbol{
					{name: "tohost", value: 0x30000, size: 8},
					{name: "__stack_end", value: 0x200000},
				},
			})

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			sym, ok := prog.GetSymbol("tohost")
			Expect(ok).To(BeTrue())
			Expect(sym.Address).To(Equal(uint32(0x30000)))
			Expect(sym.Size).To(Equal(uint32(8)))

			_, ok = prog.GetSymbol("fromhost")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("stack resolution", func() {
		makeProg := func(symbols []elfSymbol, gnuStack uint32) *loader.Program {
			elfPath := filepath.Join(tempDir, "stack.elf")
			writeELF(elfPath, elfSpec{
				entry: 0x10000,
				segments: []elfSegment{
					{vaddr: 0x10000, data: []byte{0x13, 0, 0, 0}, flags: 0x5},
				},
				symbols:      symbols,
				gnuStackSize: gnuStack,
			})
			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			return prog
		}

		It("should combine __stack_end and __stack_size", func() {
			prog := makeProg([]elfSymbol{
				{name: "__stack_end", value: 0x200000},
				{name: "__stack_size", value: 0x8000},
			}, 0)

			sp, ok := prog.ResolveStack(loader.StackConfig{})
			Expect(ok).To(BeTrue())
			Expect(sp).To(Equal(uint32(0x208000)))
		})

		It("should fall back to the 32 KiB default size", func() {
			prog := makeProg([]elfSymbol{
				{name: "__stack_end", value: 0x200000},
			}, 0)

			sp, ok := prog.ResolveStack(loader.StackConfig{})
			Expect(ok).To(BeTrue())
			Expect(sp).To(Equal(uint32(0x200000 + 32*1024)))
		})

		It("should use the GNU_STACK size below the symbol", func() {
			prog := makeProg([]elfSymbol{
				{name: "__stack_end", value: 0x200000},
			}, 0x4000)

			sp, ok := prog.ResolveStack(loader.StackConfig{})
			Expect(ok).To(BeTrue())
			Expect(sp).To(Equal(uint32(0x204000)))
		})

		It("should let the __stack_size symbol beat GNU_STACK", func() {
			prog := makeProg([]elfSymbol{
				{name: "__stack_end", value: 0x200000},
				{name: "__stack_size", value: 0x8000},
			}, 0x4000)

			sp, ok := prog.ResolveStack(loader.StackConfig{})
			Expect(ok).To(BeTrue())
			Expect(sp).To(Equal(uint32(0x208000)))
		})

		It("should let flags beat everything", func() {
			prog := makeProg([]elfSymbol{
				{name: "__stack_end", value: 0x200000},
				{name: "__stack_size", value: 0x8000},
			}, 0x4000)

			end := uint32(0x400000)
			size := uint32(0x1000)
			sp, ok := prog.ResolveStack(loader.StackConfig{
				StackEnd:  &end,
				StackSize: &size,
			})
			Expect(ok).To(BeTrue())
			Expect(sp).To(Equal(uint32(0x401000)))
		})

		It("should not initialize the stack without a stack end", func() {
			prog := makeProg(nil, 0x4000)

			_, ok := prog.ResolveStack(loader.StackConfig{})
			Expect(ok).To(BeFalse())
		})

		It("should accept a stack end from the flag alone", func() {
			prog := makeProg(nil, 0)

			end := uint32(0x100000)
			sp, ok := prog.ResolveStack(loader.StackConfig{StackEnd: &end})
			Expect(ok).To(BeTrue())
			Expect(sp).To(Equal(uint32(0x100000 + 32*1024)))
		})
	})
})
