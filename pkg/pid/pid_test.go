package pid

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestMaxIntegral(t *testing.T) {
	assert.InEpsilon(t, 1.8446743e19, float64(MaxIntegral), 1e-6)
}

func TestStep_Proportional(t *testing.T) {
	c := New(Gains{Kp: -2})
	assert.Equal(t, float32(-200), c.Step(100, 1))
	assert.Equal(t, float32(50), c.Step(-25, 1))
}

func TestStep_ZeroError(t *testing.T) {
	c := New(DefaultGains())
	for range 1000 {
		assert.Equal(t, float32(0), c.Step(0, 1))
	}
	assert.Equal(t, float32(0), c.Integral())
	assert.Equal(t, float32(0), c.PreviousError())
}

func TestStep_ConvergesAfterError(t *testing.T) {
	c := New(Gains{Kp: 1, Kd: 1})
	c.Step(500, 1)

	// Once the error returns to zero the derivative kick decays on the next step.
	assert.Equal(t, float32(-500), c.Step(0, 1))
	for range 10 {
		assert.Equal(t, float32(0), c.Step(0, 1))
	}
}

func TestStep_Integral(t *testing.T) {
	c := New(Gains{Ki: 1})

	prev := c.Integral()
	for range 1000 {
		c.Step(1e6, 1)
		assert.GreaterOrEqual(t, c.Integral(), prev, "integral must not decrease under positive error")
		assert.LessOrEqual(t, c.Integral(), MaxIntegral)
		prev = c.Integral()
	}
	assert.InEpsilon(t, 1e9, float64(c.Integral()), 1e-3)
}

func TestStep_IntegralCeiling(t *testing.T) {
	c := New(Gains{Ki: 1})

	for range 10 {
		out := c.Step(1e18, 100)
		assert.LessOrEqual(t, c.Integral(), MaxIntegral)
		assert.Equal(t, MaxIntegral, out)
	}
	assert.Equal(t, MaxIntegral, c.Integral())

	// Overflowing the sum to +Inf still lands on the ceiling.
	c.Step(math.MaxFloat32, 10)
	assert.Equal(t, MaxIntegral, c.Integral())
}

func TestStep_IntegralOneSided(t *testing.T) {
	c := New(Gains{Ki: 1})
	for range 10 {
		c.Step(-1e18, 100)
	}
	assert.Less(t, c.Integral(), -MaxIntegral, "no floor is applied by default")

	s := New(Gains{Ki: 1, SymmetricClamp: true})
	for range 10 {
		s.Step(-1e18, 100)
	}
	assert.Equal(t, -MaxIntegral, s.Integral())
}

func TestStep_DTFloor(t *testing.T) {
	tests := []struct {
		name string
		dt   float32
	}{
		{name: "zero", dt: 0},
		{name: "negative", dt: -5},
		{name: "tiny", dt: 1e-9},
		{name: "nan", dt: math32.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Gains{Kd: 1})
			out := c.Step(1, tt.dt)
			assert.False(t, math32.IsInf(out, 0))
			assert.False(t, math32.IsNaN(out))
			assert.InEpsilon(t, 1e6, float64(out), 1e-3)
		})
	}
}

func TestStep_Derivative(t *testing.T) {
	c := New(Gains{Kd: 2})
	assert.Equal(t, float32(20), c.Step(10, 1))
	assert.Equal(t, float32(5), c.Step(15, 2))
	assert.Equal(t, float32(15), c.PreviousError())
}

func TestGains(t *testing.T) {
	g := DefaultGains()
	assert.Equal(t, float32(-2), g.Kp)
	assert.Equal(t, float32(0), g.Ki)
	assert.Equal(t, float32(-0.00001), g.Kd)
	assert.False(t, g.SymmetricClamp)
	assert.Equal(t, g, New(g).Gains())
}
