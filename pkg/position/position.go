// Package position turns raw reflectance readings into a signed track offset.
//
// Normalization is integer fixed-point arithmetic; only the weighting uses floats. A zero offset means
// the line is centered under the array, a positive offset means it is towards channel 7.
package position

import (
	"errors"
	"fmt"
	"math"

	"github.com/itohio/linetracer/pkg/calibration"
	"github.com/itohio/linetracer/pkg/sensor"
)

const (
	// Scale is the normalized value of a reading equal to the calibrated maximum.
	Scale = 10000
	// Neutral is reported for channels without usable calibration contrast.
	Neutral = Scale / 2
)

// ErrWeights is returned when weights do not describe a symmetric array.
var ErrWeights = errors.New("weights must be sign-symmetric and strictly increasing")

// Weights are the per-channel contributions, leftmost channel first.
type Weights [sensor.Channels]float32

// DefaultWeights returns the reference layout: outer channels weigh four times the inner ones.
func DefaultWeights() Weights {
	return Weights{-2.0, -1.5, -1.0, -0.5, 0.5, 1.0, 1.5, 2.0}
}

// WeightsFrom copies a slice into Weights and validates it.
func WeightsFrom(w []float32) (Weights, error) {
	var out Weights
	if len(w) != len(out) {
		return out, fmt.Errorf("%w: got %d weights", ErrWeights, len(w))
	}
	copy(out[:], w)
	return out, out.Validate()
}

// Validate checks sign symmetry and strict left-to-right ordering.
func (w Weights) Validate() error {
	for i := range w {
		if w[i] != -w[len(w)-1-i] {
			return ErrWeights
		}
		if i > 0 && w[i] <= w[i-1] {
			return ErrWeights
		}
	}
	return nil
}

// Normalize maps raw onto the fixed-point range [0, Scale] of a calibrated channel.
// Readings outside the calibrated span map outside that range. A channel with rng <= 0 yields
// Neutral without dividing.
func Normalize(raw, lo uint16, rng int32) int32 {
	if rng <= 0 {
		return Neutral
	}
	return (int32(raw) - int32(lo)) * Scale / rng
}

// Estimate returns the weighted sum of normalized values divided by the channel count,
// truncated toward zero.
func Estimate(normalized [sensor.Channels]int32, w Weights) int32 {
	var sum float64
	for i, n := range normalized {
		sum += float64(w[i]) * float64(n)
	}
	switch {
	case sum >= math.MaxInt32:
		sum = math.MaxInt32
	case sum <= math.MinInt32:
		sum = math.MinInt32
	}
	return int32(sum) / sensor.Channels
}

// Normalizer applies a fixed set of calibration bounds to raw scans.
type Normalizer struct {
	lo  [sensor.Channels]uint16
	rng [sensor.Channels]int32
	w   Weights
}

// NewNormalizer creates a Normalizer for bounds and weights.
func NewNormalizer(b calibration.Bounds, w Weights) *Normalizer {
	return &Normalizer{
		lo:  b.Min,
		rng: b.Ranges(),
		w:   w,
	}
}

// NormalizeAll normalizes every channel of a scan.
func (n *Normalizer) NormalizeAll(raw [sensor.Channels]uint16) [sensor.Channels]int32 {
	var out [sensor.Channels]int32
	for i := range out {
		out[i] = Normalize(raw[i], n.lo[i], n.rng[i])
	}
	return out
}

// Offset normalizes raw and estimates the track offset in one call.
func (n *Normalizer) Offset(raw [sensor.Channels]uint16) (int32, [sensor.Channels]int32) {
	normalized := n.NormalizeAll(raw)
	return Estimate(normalized, n.w), normalized
}

// Weights returns the weights used by Offset.
func (n *Normalizer) Weights() Weights {
	return n.w
}
