package position

import (
	"testing"

	"github.com/itohio/linetracer/pkg/calibration"
	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		lo   uint16
		rng  int32
		want int32
	}{
		{name: "at min", raw: 400, lo: 400, rng: 3200, want: 0},
		{name: "at max", raw: 3600, lo: 400, rng: 3200, want: Scale},
		{name: "midpoint", raw: 2000, lo: 400, rng: 3200, want: 5000},
		{name: "truncates", raw: 401, lo: 400, rng: 3200, want: 3},
		{name: "below span is negative", raw: 0, lo: 400, rng: 3200, want: -1250},
		{name: "above span exceeds scale", raw: 4095, lo: 400, rng: 3200, want: 11546},
		{name: "zero range", raw: 1234, lo: 1234, rng: 0, want: Neutral},
		{name: "negative range", raw: 100, lo: 3000, rng: -2500, want: Neutral},
		{name: "extreme operands", raw: 0xFFFF, lo: 0, rng: 1, want: 0xFFFF * Scale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.lo, tt.rng))
		})
	}
}

func TestNormalize_WithinSpan(t *testing.T) {
	const lo, hi = 300, 3900
	for raw := uint16(lo); raw <= hi; raw++ {
		v := Normalize(raw, lo, hi-lo)
		require.GreaterOrEqual(t, v, int32(0))
		require.LessOrEqual(t, v, int32(Scale))
	}
}

func TestEstimate_Balanced(t *testing.T) {
	w := DefaultWeights()
	for _, v := range []int32{0, 1, Neutral, Scale, -777, 123456} {
		var n [sensor.Channels]int32
		for i := range n {
			n[i] = v
		}
		for range 3 {
			assert.Equal(t, int32(0), Estimate(n, w), "equal inputs must cancel for %d", v)
		}
	}
}

func TestEstimate(t *testing.T) {
	w := DefaultWeights()

	right := [sensor.Channels]int32{0, 0, 0, 0, 0, 0, 0, Scale}
	assert.Equal(t, int32(2*Scale/8), Estimate(right, w))

	left := [sensor.Channels]int32{Scale, 0, 0, 0, 0, 0, 0, 0}
	assert.Equal(t, int32(-2*Scale/8), Estimate(left, w))

	// 0.5*3 = 1.5 -> 1 -> 1/8 = 0, truncated toward zero on both sides.
	assert.Equal(t, int32(0), Estimate([sensor.Channels]int32{0, 0, 0, 0, 3, 0, 0, 0}, w))
	assert.Equal(t, int32(0), Estimate([sensor.Channels]int32{0, 0, 0, 3, 0, 0, 0, 0}, w))

	// 0.5*100 = 50 -> 50/8 = 6; -50/8 = -6.
	assert.Equal(t, int32(6), Estimate([sensor.Channels]int32{0, 0, 0, 0, 100, 0, 0, 0}, w))
	assert.Equal(t, int32(-6), Estimate([sensor.Channels]int32{0, 0, 0, 100, 0, 0, 0, 0}, w))
}

func TestEstimate_Saturates(t *testing.T) {
	w := DefaultWeights()
	huge := [sensor.Channels]int32{0, 0, 0, 0, 0, 0, 2_000_000_000, 2_000_000_000}
	assert.Equal(t, int32(2147483647/8), Estimate(huge, w))
}

func TestWeights(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	w, err := WeightsFrom([]float32{-4, -3, -2, -1, 1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, Weights{-4, -3, -2, -1, 1, 2, 3, 4}, w)

	_, err = WeightsFrom([]float32{-1, 1})
	assert.ErrorIs(t, err, ErrWeights)

	_, err = WeightsFrom([]float32{-2, -1.5, -1, -0.5, 0.5, 1, 1.5, 3})
	assert.ErrorIs(t, err, ErrWeights)

	_, err = WeightsFrom([]float32{2, 1.5, 1, 0.5, -0.5, -1, -1.5, -2})
	assert.ErrorIs(t, err, ErrWeights)
}

func TestNormalizer(t *testing.T) {
	b := calibration.Bounds{
		Min: [sensor.Channels]uint16{400, 400, 400, 400, 400, 400, 400, 2048},
		Max: [sensor.Channels]uint16{3600, 3600, 3600, 3600, 3600, 3600, 3600, 2048},
	}
	n := NewNormalizer(b, DefaultWeights())

	raw := [sensor.Channels]uint16{400, 400, 400, 400, 400, 400, 3600, 9}
	normalized := n.NormalizeAll(raw)
	assert.Equal(t, [sensor.Channels]int32{0, 0, 0, 0, 0, 0, Scale, Neutral}, normalized)

	offset, got := n.Offset(raw)
	assert.Equal(t, normalized, got)
	// (1.5*10000 + 2*5000) / 8
	assert.Equal(t, int32(3125), offset)
	assert.Equal(t, DefaultWeights(), n.Weights())
}

func TestNormalizer_DegenerateEverywhere(t *testing.T) {
	var b calibration.Bounds
	for i := range b.Min {
		b.Min[i] = 2048
		b.Max[i] = 2048
	}
	n := NewNormalizer(b, DefaultWeights())

	for _, v := range []uint16{0, 2048, 4095} {
		offset, normalized := n.Offset([sensor.Channels]uint16{v, v, v, v, v, v, v, v})
		assert.Equal(t, int32(0), offset)
		for _, x := range normalized {
			assert.Equal(t, int32(Neutral), x)
		}
	}
}
