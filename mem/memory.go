// Package mem provides the simulator's flat demand-paged memory, the
// atomic-extension wrapper that serializes LR/SC and AMO sequences, and a
// watcher that routes selected address ranges to callbacks.
package mem

import "encoding/binary"

// PageSize is the allocation granule of the demand-paged store.
const PageSize = 4096

// Access is the interface shared by the raw memory, the atomic wrapper,
// and the watcher. Load and Store never fail: the full 32-bit address
// space is valid and pages materialize on first touch.
type Access interface {
	Load(addr uint32, buf []byte)
	Store(addr uint32, buf []byte)
}

// WriteObserver is invoked after every store with the written range.
type WriteObserver func(addr uint32, size uint32)

// Memory is a sparse byte-addressable store. Reads of never-written pages
// return zero. Accesses need not be aligned; an access crossing a page
// boundary is split transparently.
type Memory struct {
	pages     map[uint32]*[PageSize]byte
	observers []WriteObserver
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*[PageSize]byte)}
}

// AddWriteObserver registers a callback invoked after every store. The
// decode cache hangs its invalidation off this.
func (m *Memory) AddWriteObserver(obs WriteObserver) {
	m.observers = append(m.observers, obs)
}

// Load fills buf with len(buf) consecutive bytes starting at addr.
func (m *Memory) Load(addr uint32, buf []byte) {
	for len(buf) > 0 {
		pageAddr := addr &^ (PageSize - 1)
		offset := addr & (PageSize - 1)
		n := copyLen(offset, len(buf))
		if page, ok := m.pages[pageAddr]; ok {
			copy(buf[:n], page[offset:])
		} else {
			for i := 0; i < n; i++ {
				buf[i] = 0
			}
		}
		buf = buf[n:]
		addr += uint32(n)
	}
}

// Store writes len(buf) bytes starting at addr.
func (m *Memory) Store(addr uint32, buf []byte) {
	start, size := addr, uint32(len(buf))
	for len(buf) > 0 {
		pageAddr := addr &^ (PageSize - 1)
		offset := addr & (PageSize - 1)
		n := copyLen(offset, len(buf))
		page, ok := m.pages[pageAddr]
		if !ok {
			page = &[PageSize]byte{}
			m.pages[pageAddr] = page
		}
		copy(page[offset:], buf[:n])
		buf = buf[n:]
		addr += uint32(n)
	}
	for _, obs := range m.observers {
		obs(start, size)
	}
}

func copyLen(offset uint32, remaining int) int {
	n := int(PageSize - offset)
	if n > remaining {
		n = remaining
	}
	return n
}

// Little-endian helper accessors.

// Read8 reads one byte at addr.
func (m *Memory) Read8(addr uint32) uint8 {
	var b [1]byte
	m.Load(addr, b[:])
	return b[0]
}

// Read16 reads a little-endian halfword at addr.
func (m *Memory) Read16(addr uint32) uint16 {
	var b [2]byte
	m.Load(addr, b[:])
	return binary.LittleEndian.Uint16(b[:])
}

// Read32 reads a little-endian word at addr.
func (m *Memory) Read32(addr uint32) uint32 {
	var b [4]byte
	m.Load(addr, b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// Read64 reads a little-endian doubleword at addr.
func (m *Memory) Read64(addr uint32) uint64 {
	var b [8]byte
	m.Load(addr, b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// Write8 writes one byte at addr.
func (m *Memory) Write8(addr uint32, v uint8) {
	m.Store(addr, []byte{v})
}

// Write16 writes a little-endian halfword at addr.
func (m *Memory) Write16(addr uint32, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	m.Store(addr, b[:])
}

// Write32 writes a little-endian word at addr.
func (m *Memory) Write32(addr uint32, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	m.Store(addr, b[:])
}

// Write64 writes a little-endian doubleword at addr.
func (m *Memory) Write64(addr uint32, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	m.Store(addr, b[:])
}
