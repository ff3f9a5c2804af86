package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/mem"
)

var _ = Describe("Watcher", func() {
	var (
		m *mem.Memory
		w *mem.Watcher
	)

	BeforeEach(func() {
		m = mem.NewMemory()
		w = mem.NewWatcher(m)
	})

	It("should pass unwatched accesses through", func() {
		w.Store(0x100, []byte{1, 2, 3, 4})

		buf := make([]byte, 4)
		w.Load(0x100, buf)
		Expect(buf).To(Equal([]byte{1, 2, 3, 4}))
		Expect(m.Read32(0x100)).To(Equal(uint32(0x04030201)))
	})

	It("should divert stores into a watched range", func() {
		var hit []byte
		err := w.Watch(mem.AddressRange{Start: 0x200, End: 0x207}, nil,
			func(addr uint32, buf []byte) { hit = append([]byte{}, buf...) })
		Expect(err).NotTo(HaveOccurred())

		w.Store(0x200, []byte{0xAA})

		Expect(hit).To(Equal([]byte{0xAA}))
		// The underlying memory never saw the store.
		Expect(m.Read8(0x200)).To(Equal(uint8(0)))
	})

	It("should divert loads into a watched range", func() {
		err := w.Watch(mem.AddressRange{Start: 0x300, End: 0x303},
			func(addr uint32, buf []byte) {
				for i := range buf {
					buf[i] = 0x55
				}
			}, nil)
		Expect(err).NotTo(HaveOccurred())

		buf := make([]byte, 4)
		w.Load(0x300, buf)
		Expect(buf).To(Equal([]byte{0x55, 0x55, 0x55, 0x55}))
	})

	It("should divert an access that only intersects the range", func() {
		hits := 0
		err := w.Watch(mem.AddressRange{Start: 0x404, End: 0x407}, nil,
			func(addr uint32, buf []byte) { hits++ })
		Expect(err).NotTo(HaveOccurred())

		w.Store(0x402, []byte{1, 2, 3, 4}) // overlaps 0x404..0x405
		Expect(hits).To(Equal(1))
	})

	It("should reject overlapping registrations", func() {
		err := w.Watch(mem.AddressRange{Start: 0x500, End: 0x50F}, nil,
			func(addr uint32, buf []byte) {})
		Expect(err).NotTo(HaveOccurred())

		err = w.Watch(mem.AddressRange{Start: 0x508, End: 0x517}, nil,
			func(addr uint32, buf []byte) {})
		Expect(err).To(HaveOccurred())
	})

	It("should reject an inverted range", func() {
		err := w.Watch(mem.AddressRange{Start: 0x10, End: 0x0}, nil,
			func(addr uint32, buf []byte) {})
		Expect(err).To(HaveOccurred())
	})
})
