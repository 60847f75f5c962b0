package tick

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic millisecond tick counter that wraps at its 32-bit ceiling.
type Clock interface {
	Millis() uint32
	Sleep(ms uint32)
}

// Elapsed returns the number of ticks between prev and now.
// Unsigned subtraction keeps the result correct across a counter wraparound.
func Elapsed(prev, now uint32) uint32 {
	return now - prev
}

// System is a Clock backed by the host monotonic clock.
type System struct {
	start time.Time
}

// NewSystem creates a System clock that starts counting at zero.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// Millis returns milliseconds since the clock was created, truncated to 32 bits.
func (s *System) Millis() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

// Sleep blocks for ms milliseconds.
func (s *System) Sleep(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Manual is a Clock that only moves when told to.
// Sleep advances the counter instead of blocking, so time-driven code can be exercised without waiting.
type Manual struct {
	now atomic.Uint32
}

// NewManual creates a Manual clock positioned at start.
func NewManual(start uint32) *Manual {
	m := &Manual{}
	m.now.Store(start)
	return m
}

func (m *Manual) Millis() uint32 {
	return m.now.Load()
}

func (m *Manual) Sleep(ms uint32) {
	m.Advance(ms)
}

// Advance moves the counter forward by ms, wrapping at the 32-bit ceiling.
func (m *Manual) Advance(ms uint32) {
	m.now.Add(ms)
}

// Set positions the counter at an absolute value.
func (m *Manual) Set(v uint32) {
	m.now.Store(v)
}
