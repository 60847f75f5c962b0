package motor

import (
	"math"

	"github.com/chewxy/math32"
)

// Motor identifies one side of the differential drive.
type Motor int

const (
	Left Motor = iota
	Right
)

func (m Motor) String() string {
	switch m {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "motor(?)"
	}
}

// Output accepts signed duty commands. Implementations actuate immediately and never report errors
// to the caller; hardware failures are logged by the adapter.
type Output interface {
	SetDuty(m Motor, duty int32)
}

// Clip limits v to [lo, hi].
func Clip(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clip64(v int64, lo, hi int32) int32 {
	if v < int64(lo) {
		return lo
	}
	if v > int64(hi) {
		return hi
	}
	return int32(v)
}

// MapDuty splits a steering correction into left and right duties.
// Both sides are floored at neutral, so a correction only ever speeds one side up.
func MapDuty(correction, neutral, dutyMax int32) (left, right int32) {
	left = clip64(int64(neutral)+int64(correction), neutral, dutyMax)
	right = clip64(int64(neutral)-int64(correction), neutral, dutyMax)
	return left, right
}

// Saturate truncates a controller output to an integer duty.
// NaN maps to zero and values beyond the int32 range stick to its limits.
func Saturate(correction float32) int32 {
	switch {
	case math32.IsNaN(correction):
		return 0
	case correction >= math.MaxInt32:
		return math.MaxInt32
	case correction <= math.MinInt32:
		return math.MinInt32
	}
	return int32(correction)
}
