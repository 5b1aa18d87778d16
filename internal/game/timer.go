package game

import (
	"sync"
	"time"
)

// TimerHandle is a cooperative cancellation handle for a background
// countdown task. The room lock guards which handle is current; the
// handle itself is safe to cancel from any goroutine, more than once.
type TimerHandle struct {
	done chan struct{}
	once sync.Once
}

// NewTimerHandle allocates a fresh, uncancelled handle.
func NewTimerHandle() *TimerHandle {
	return &TimerHandle{done: make(chan struct{})}
}

// Cancel aborts any in-flight Sleep on this handle.
func (h *TimerHandle) Cancel() {
	h.once.Do(func() { close(h.done) })
}

// Done is closed once the handle is cancelled.
func (h *TimerHandle) Done() <-chan struct{} {
	return h.done
}

// Cancelled reports whether Cancel has been called.
func (h *TimerHandle) Cancelled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Sleep blocks for d or until the handle is cancelled.
// It returns false when the sleep was cancelled.
func (h *TimerHandle) Sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-h.done:
		return false
	}
}
