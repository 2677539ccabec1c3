package heap

import (
	"math"
	"sync/atomic"

	"github.com/joshuapare/memkit/internal/logger"
)

// Hold adds one hold to the block. The count saturates at math.MaxUint32; a
// saturated block is never freed by Release.
//
// Hold only takes the shared lock, so it may run concurrently with Hold and
// Release on the same block from other goroutines.
func (h *Heap) Hold(ref Ref) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	off, _, err := h.resolve(ref)
	if err != nil {
		return err
	}
	p := h.holdsPtr(off)
	for {
		n := atomic.LoadUint32(p)
		if n == 0 {
			return ErrStaleRef
		}
		if n == math.MaxUint32 {
			return nil
		}
		if atomic.CompareAndSwapUint32(p, n, n+1) {
			h.touchHolds(off)
			return nil
		}
	}
}

// Release drops one hold and frees the block when the count reaches zero.
// Releasing a block that is already free, or whose Ref is stale, returns
// ErrDoubleRelease or ErrStaleRef instead of touching reused memory.
func (h *Heap) Release(ref Ref) error {
	freed, err := h.release(ref)
	if err != nil || !freed {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Hold and Release both refuse a zero count, so only Free can have
	// reclaimed the block since the decrement.
	off, hdr, err := h.resolve(ref)
	if err != nil || hdr.Holds != 0 {
		return nil //nolint:nilerr // the hold was dropped; Free got there first
	}
	h.freeLocked(off)
	h.afterMutation()
	return nil
}

// release decrements the hold count under the shared lock and reports whether
// it reached zero.
func (h *Heap) release(ref Ref) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	off, _, err := h.resolve(ref)
	if err != nil {
		return false, err
	}
	p := h.holdsPtr(off)
	for {
		n := atomic.LoadUint32(p)
		switch n {
		case 0:
			if h.debug {
				logger.Warn("heap: release of unheld block", "heap", h.name, "ref", ref)
			}
			return false, ErrDoubleRelease
		case math.MaxUint32:
			return false, nil
		}
		if atomic.CompareAndSwapUint32(p, n, n-1) {
			h.touchHolds(off)
			return n == 1, nil
		}
	}
}

// Holds returns the current hold count of the block.
func (h *Heap) Holds(ref Ref) (uint32, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, hdr, err := h.resolve(ref)
	if err != nil {
		return 0, err
	}
	return hdr.Holds, nil
}

func (h *Heap) touchHolds(off int) {
	if h.b.tracker() != nil {
		h.touch(off, 8)
	}
}
