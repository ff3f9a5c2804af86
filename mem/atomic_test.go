package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/mem"
)

var _ = Describe("AtomicMemory", func() {
	var (
		m *mem.Memory
		a *mem.AtomicMemory
	)

	BeforeEach(func() {
		m = mem.NewMemory()
		a = mem.NewAtomicMemory(m)
	})

	Describe("LR/SC", func() {
		It("should succeed when the reservation is undisturbed", func() {
			m.Write32(0x100, 7)

			Expect(a.LoadReserved(0x100)).To(Equal(uint32(7)))
			Expect(a.StoreConditional(0x100, 9)).To(BeTrue())
			Expect(m.Read32(0x100)).To(Equal(uint32(9)))
		})

		It("should fail without a reservation", func() {
			Expect(a.StoreConditional(0x100, 9)).To(BeFalse())
			Expect(m.Read32(0x100)).To(Equal(uint32(0)))
		})

		It("should fail after an intervening store to the reserved word", func() {
			a.LoadReserved(0x100)
			a.Store(0x100, []byte{1})

			Expect(a.StoreConditional(0x100, 9)).To(BeFalse())
		})

		It("should fail after a store overlapping any reserved byte", func() {
			a.LoadReserved(0x100)
			a.Store(0x103, []byte{1})

			Expect(a.StoreConditional(0x100, 9)).To(BeFalse())
		})

		It("should survive stores outside the reservation granule", func() {
			a.LoadReserved(0x100)
			a.Store(0x104, []byte{1})
			a.Store(0x0FC, []byte{1, 2, 3, 4})

			Expect(a.StoreConditional(0x100, 9)).To(BeTrue())
		})

		It("should consume the reservation on a failed SC", func() {
			a.LoadReserved(0x100)
			Expect(a.StoreConditional(0x104, 9)).To(BeFalse())
			Expect(a.StoreConditional(0x100, 9)).To(BeFalse())
		})

		It("should clear the reservation on demand", func() {
			a.LoadReserved(0x100)
			a.ClearReservation()

			Expect(a.StoreConditional(0x100, 9)).To(BeFalse())
		})
	})

	Describe("AMO", func() {
		BeforeEach(func() {
			m.Write32(0x200, 10)
		})

		It("should swap and return the old value", func() {
			Expect(a.AMO(mem.AmoSwap, 0x200, 42)).To(Equal(uint32(10)))
			Expect(m.Read32(0x200)).To(Equal(uint32(42)))
		})

		It("should add", func() {
			a.AMO(mem.AmoAdd, 0x200, 5)
			Expect(m.Read32(0x200)).To(Equal(uint32(15)))
		})

		It("should and/or/xor", func() {
			a.AMO(mem.AmoAnd, 0x200, 0x2)
			Expect(m.Read32(0x200)).To(Equal(uint32(2)))
			a.AMO(mem.AmoOr, 0x200, 0x8)
			Expect(m.Read32(0x200)).To(Equal(uint32(10)))
			a.AMO(mem.AmoXor, 0x200, 0xF)
			Expect(m.Read32(0x200)).To(Equal(uint32(5)))
		})

		It("should take the signed min of a negative value", func() {
			a.AMO(mem.AmoMin, 0x200, 0xFFFFFFFF) // -1
			Expect(m.Read32(0x200)).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should take the unsigned max of the same value", func() {
			a.AMO(mem.AmoMaxu, 0x200, 0xFFFFFFFF)
			Expect(m.Read32(0x200)).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should take the signed max", func() {
			a.AMO(mem.AmoMax, 0x200, 0xFFFFFFFF) // -1 < 10
			Expect(m.Read32(0x200)).To(Equal(uint32(10)))
		})

		It("should invalidate an overlapping reservation", func() {
			a.LoadReserved(0x200)
			a.AMO(mem.AmoAdd, 0x200, 1)

			Expect(a.StoreConditional(0x200, 9)).To(BeFalse())
		})
	})
})
