package mem

import "fmt"

// AddressRange is a closed interval of watched addresses.
type AddressRange struct {
	Start uint32
	End   uint32 // inclusive
}

// LoadCallback services a watched load; it must fill buf.
type LoadCallback func(addr uint32, buf []byte)

// StoreCallback services a watched store.
type StoreCallback func(addr uint32, buf []byte)

type watch struct {
	rng     AddressRange
	onLoad  LoadCallback
	onStore StoreCallback
}

// Watcher interposes on a memory interface. Accesses intersecting a watched
// range are handed to the range's callback instead of the underlying store;
// everything else passes through unchanged. HTIF semihosting registers its
// magic addresses here.
type Watcher struct {
	mem     Access
	watches []watch
}

// NewWatcher creates a watcher over mem.
func NewWatcher(mem Access) *Watcher {
	return &Watcher{mem: mem}
}

// Watch binds a load/store callback pair to r. Either callback may be nil,
// in which case that direction passes through to the underlying memory.
// Overlap with an existing watched range is rejected.
func (w *Watcher) Watch(r AddressRange, onLoad LoadCallback, onStore StoreCallback) error {
	if err := w.checkOverlap(r); err != nil {
		return err
	}
	w.watches = append(w.watches, watch{rng: r, onLoad: onLoad, onStore: onStore})
	return nil
}

func (w *Watcher) checkOverlap(r AddressRange) error {
	if r.End < r.Start {
		return fmt.Errorf("invalid range [0x%x, 0x%x]", r.Start, r.End)
	}
	for _, existing := range w.watches {
		if r.Start <= existing.rng.End && r.End >= existing.rng.Start {
			return fmt.Errorf("range [0x%x, 0x%x] overlaps watched range [0x%x, 0x%x]",
				r.Start, r.End, existing.rng.Start, existing.rng.End)
		}
	}
	return nil
}

// Load services a load, diverting it to a watch callback when the target
// intersects a watched range.
func (w *Watcher) Load(addr uint32, buf []byte) {
	end := addr + uint32(len(buf)) - 1
	for _, watch := range w.watches {
		if addr <= watch.rng.End && end >= watch.rng.Start {
			if watch.onLoad != nil {
				watch.onLoad(addr, buf)
				return
			}
			break
		}
	}
	w.mem.Load(addr, buf)
}

// Store services a store, diverting it to a watch callback when the target
// intersects a watched range.
func (w *Watcher) Store(addr uint32, buf []byte) {
	end := addr + uint32(len(buf)) - 1
	for _, watch := range w.watches {
		if addr <= watch.rng.End && end >= watch.rng.Start {
			if watch.onStore != nil {
				watch.onStore(addr, buf)
				return
			}
			break
		}
	}
	w.mem.Store(addr, buf)
}
