package motor

import "sync/atomic"

// Channel is a single PWM output line. Set takes the compare value in duty units.
type Channel interface {
	Set(value uint32)
}

// ChannelFunc adapts a function to a Channel.
type ChannelFunc func(value uint32)

func (f ChannelFunc) Set(value uint32) { f(value) }

// HBridge drives one motor through two complementary lines.
// Exactly one line is active for a non-zero duty, at a magnitude limited to Max.
type HBridge struct {
	CW  Channel
	CCW Channel
	Max int32
}

// Set applies a signed duty. Positive duty drives the CCW line, negative duty the CW line.
func (h *HBridge) Set(duty int32) {
	switch {
	case duty == 0:
		h.CW.Set(0)
		h.CCW.Set(0)
	case duty > 0:
		h.CW.Set(0)
		h.CCW.Set(uint32(min(duty, h.Max)))
	default:
		h.CW.Set(uint32(min(-int64(duty), int64(h.Max))))
		h.CCW.Set(0)
	}
}

// Drive pairs the two H-bridges of a differential drive.
type Drive struct {
	left, right *HBridge

	lastLeft  atomic.Int32
	lastRight atomic.Int32
}

var _ Output = (*Drive)(nil)

// NewDrive creates a Drive and stops both motors.
func NewDrive(left, right *HBridge) *Drive {
	d := &Drive{left: left, right: right}
	d.SetDuty(Left, 0)
	d.SetDuty(Right, 0)
	return d
}

func (d *Drive) SetDuty(m Motor, duty int32) {
	switch m {
	case Left:
		d.lastLeft.Store(duty)
		d.left.Set(duty)
	case Right:
		d.lastRight.Store(duty)
		d.right.Set(duty)
	}
}

// Last returns the most recently commanded pair. Safe to call from another goroutine.
func (d *Drive) Last() (left, right int32) {
	return d.lastLeft.Load(), d.lastRight.Load()
}
