package telemetry

import (
	"sync"
	"time"
)

// History keeps the frames received within a sliding time window.
// Frames are ordered oldest first and evicted by receive time, not by count.
type History struct {
	window time.Duration

	mu     sync.RWMutex
	frames []Frame

	callbacks []func(frames []Frame)
	cbMu      sync.RWMutex

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// NewHistory creates a History spanning window.
func NewHistory(window time.Duration) *History {
	return &History{
		window: window,
		frames: make([]Frame, 0),
	}
}

// Process consumes frames until input is closed.
func (h *History) Process(input <-chan Frame) {
	for f := range input {
		h.Add(f)
	}
	h.mu.Lock()
	h.shutdown = true
	h.mu.Unlock()
}

// Add appends f, evicts frames older than the window relative to f and notifies callbacks.
// A window that is not positive keeps only the newest frame.
func (h *History) Add(f Frame) {
	h.mu.Lock()
	if h.window <= 0 {
		h.frames = h.frames[:0]
	}
	h.frames = append(h.frames, f)

	cutoff := f.Time.Add(-h.window)
	cutoffIndex := 0
	for i, old := range h.frames {
		if old.Time.After(cutoff) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex > 0 {
		h.frames = h.frames[cutoffIndex:]
	}

	notify := !h.shutdown
	h.mu.Unlock()

	if notify {
		h.notifyCallbacks()
	}
}

// Frames returns a copy of the frames in the window.
func (h *History) Frames() []Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Frame, len(h.frames))
	copy(result, h.frames)
	return result
}

// Latest returns the newest frame, if any.
func (h *History) Latest() (Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.frames) == 0 {
		return Frame{}, false
	}
	return h.frames[len(h.frames)-1], true
}

// OnUpdate registers a callback called after every Add with a copy of the window.
// The callback should return quickly.
func (h *History) OnUpdate(callback func(frames []Frame)) {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	h.callbacks = append(h.callbacks, callback)
}

// ResetShutdown allows callbacks again after Process returned.
func (h *History) ResetShutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdown = false
}

func (h *History) notifyCallbacks() {
	frames := h.Frames()

	h.cbMu.RLock()
	callbacks := make([]func(frames []Frame), len(h.callbacks))
	copy(callbacks, h.callbacks)
	h.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(frames)
		}
	}
}
