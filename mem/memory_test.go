package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/mem"
)

var _ = Describe("Memory", func() {
	var m *mem.Memory

	BeforeEach(func() {
		m = mem.NewMemory()
	})

	It("should return zero for never-written addresses", func() {
		Expect(m.Read32(0x1000)).To(Equal(uint32(0)))
		Expect(m.Read8(0xFFFFFFFF)).To(Equal(uint8(0)))
	})

	It("should round-trip byte stores", func() {
		m.Write8(0x2000, 0xAB)
		Expect(m.Read8(0x2000)).To(Equal(uint8(0xAB)))
	})

	It("should store words little-endian", func() {
		m.Write32(0x3000, 0xDEADBEEF)

		Expect(m.Read8(0x3000)).To(Equal(uint8(0xEF)))
		Expect(m.Read8(0x3001)).To(Equal(uint8(0xBE)))
		Expect(m.Read8(0x3002)).To(Equal(uint8(0xAD)))
		Expect(m.Read8(0x3003)).To(Equal(uint8(0xDE)))
	})

	It("should allow unaligned access", func() {
		m.Write32(0x1001, 0x11223344)
		Expect(m.Read32(0x1001)).To(Equal(uint32(0x11223344)))
		Expect(m.Read16(0x1002)).To(Equal(uint16(0x2233)))
	})

	It("should split an unaligned load across a page boundary", func() {
		// Write the two halves through separate pages, then read across.
		m.Write16(mem.PageSize-2, 0x2211)
		m.Write16(mem.PageSize, 0x4433)

		Expect(m.Read32(mem.PageSize - 2)).To(Equal(uint32(0x44332211)))
	})

	It("should split an unaligned store across a page boundary", func() {
		m.Write32(2*mem.PageSize-2, 0x44332211)

		Expect(m.Read16(2*mem.PageSize - 2)).To(Equal(uint16(0x2211)))
		Expect(m.Read16(2 * mem.PageSize)).To(Equal(uint16(0x4433)))
	})

	It("should handle bulk loads spanning several pages", func() {
		data := make([]byte, 3*mem.PageSize)
		for i := range data {
			data[i] = byte(i)
		}
		m.Store(0x10, data)

		got := make([]byte, len(data))
		m.Load(0x10, got)
		Expect(got).To(Equal(data))
	})

	It("should notify write observers with the stored range", func() {
		var gotAddr, gotSize uint32
		m.AddWriteObserver(func(addr, size uint32) {
			gotAddr, gotSize = addr, size
		})

		m.Write32(0x1234, 1)

		Expect(gotAddr).To(Equal(uint32(0x1234)))
		Expect(gotSize).To(Equal(uint32(4)))
	})

	It("should read and write 64-bit values", func() {
		m.Write64(0x4000, 0x1122334455667788)
		Expect(m.Read64(0x4000)).To(Equal(uint64(0x1122334455667788)))
		Expect(m.Read32(0x4000)).To(Equal(uint32(0x55667788)))
	})
})
