// Package semihost provides the two semihosting backends: the HTIF
// shared-memory rendezvous and the ARM ebreak-sentinel convention.
package semihost

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/mem"
)

// SemiHostAddresses are the four magic addresses forming the HTIF
// rendezvous.
type SemiHostAddresses struct {
	ToHost        uint32
	FromHost      uint32
	ToHostReady   uint32
	FromHostReady uint32
}

// HtifAddressesFromProgram resolves the magic addresses from the loaded
// executable's symbols. ok is false when any of them is missing.
func HtifAddressesFromProgram(prog *loader.Program) (SemiHostAddresses, bool) {
	var addrs SemiHostAddresses
	names := []struct {
		name string
		dst  *uint32
	}{
		{"tohost", &addrs.ToHost},
		{"fromhost", &addrs.FromHost},
		{"tohost_ready", &addrs.ToHostReady},
		{"fromhost_ready", &addrs.FromHostReady},
	}
	for _, n := range names {
		sym, found := prog.GetSymbol(n.name)
		if !found {
			return SemiHostAddresses{}, false
		}
		*n.dst = sym.Address
	}
	return addrs, true
}

// HTIF device/command encoding of a tohost request.
const (
	htifDevSyscall = 0
	htifDevConsole = 1

	htifCmdConsolePutchar = 1
)

// Syscall numbers accepted in an HTIF syscall block.
const (
	htifSysWrite = 64
	htifSysExit  = 93
)

// HtifSemiHost implements the HTIF rendezvous. The target writes a request
// to tohost once tohost_ready reads non-zero; the store is intercepted
// through the memory watcher, the host performs the operation, signals
// completion through fromhost/fromhost_ready, and re-arms tohost_ready.
// An exit request invokes the exit callback, which halts the core.
type HtifSemiHost struct {
	memory *mem.Memory
	addrs  SemiHostAddresses
	stdout io.Writer
	exitFn func(code uint32)

	log *logrus.Entry
}

// NewHtifSemiHost wires the HTIF backend into the watcher. The tohost word
// is watched for stores; all other magic addresses pass through.
func NewHtifSemiHost(watcher *mem.Watcher, memory *mem.Memory,
	addrs SemiHostAddresses, stdout io.Writer, exitFn func(code uint32)) (*HtifSemiHost, error) {
	h := &HtifSemiHost{
		memory: memory,
		addrs:  addrs,
		stdout: stdout,
		exitFn: exitFn,
		log:    logrus.WithField("component", "htif"),
	}
	r := mem.AddressRange{Start: addrs.ToHost, End: addrs.ToHost + 7}
	if err := watcher.Watch(r, nil, h.onToHostStore); err != nil {
		return nil, err
	}
	// The host side starts ready to accept a request.
	memory.Write32(addrs.ToHostReady, 1)
	return h, nil
}

// onToHostStore services a target store into the tohost word.
func (h *HtifSemiHost) onToHostStore(addr uint32, buf []byte) {
	// Let the store land, then read the full request doubleword. The
	// target writes the low word last on RV32, so a store that covers
	// only the high word is a partial request and is ignored.
	h.memory.Store(addr, buf)
	if addr >= h.addrs.ToHost+4 {
		return
	}
	value := h.memory.Read64(h.addrs.ToHost)
	if value == 0 {
		return
	}

	device := uint8(value >> 56)
	command := uint8(value >> 48)
	payload := value & 0xFFFFFFFFFFFF

	switch {
	case device == htifDevConsole && command == htifCmdConsolePutchar:
		_, _ = h.stdout.Write([]byte{byte(payload)})
	case device == htifDevSyscall && payload&1 == 1:
		code := uint32(payload >> 1)
		h.log.WithField("code", code).Debug("htif exit request")
		h.complete()
		h.exitFn(code)
		return
	case device == htifDevSyscall:
		h.syscall(uint32(payload))
	default:
		h.log.WithFields(logrus.Fields{
			"device": device, "command": command,
		}).Warn("unhandled htif request")
	}
	h.complete()
}

// syscall services a magic-memory syscall block: eight 64-bit slots, the
// first holding the syscall number.
func (h *HtifSemiHost) syscall(block uint32) {
	nr := h.memory.Read64(block)
	switch nr {
	case htifSysWrite:
		addr := uint32(h.memory.Read64(block + 16))
		length := uint32(h.memory.Read64(block + 24))
		data := make([]byte, length)
		h.memory.Load(addr, data)
		_, _ = h.stdout.Write(data)
		h.memory.Write64(block, uint64(length)) // return value slot
	case htifSysExit:
		code := uint32(h.memory.Read64(block + 8))
		h.exitFn(code)
	default:
		h.log.WithField("syscall", nr).Warn("unhandled htif syscall")
		h.memory.Write64(block, ^uint64(0))
	}
}

// complete acknowledges the request and re-arms the rendezvous.
func (h *HtifSemiHost) complete() {
	h.memory.Write64(h.addrs.ToHost, 0)
	h.memory.Write64(h.addrs.FromHost, 1)
	h.memory.Write32(h.addrs.FromHostReady, 1)
	h.memory.Write32(h.addrs.ToHostReady, 1)
}
