package delay

import (
	"sync"
	"time"
)

// Handle is a pending one-shot callback.
type Handle struct {
	mu    sync.Mutex
	timer *time.Timer
	fired bool
}

// After runs fn once, d from now, on its own goroutine.
func After(d time.Duration, fn func()) *Handle {
	h := &Handle{}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		h.fired = true
		h.mu.Unlock()
		fn()
	})
	return h
}

// Cancel stops the callback if it has not started. It reports whether the
// call was prevented.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired {
		return false
	}
	return h.timer.Stop()
}
