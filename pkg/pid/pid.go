package pid

import (
	"math"

	"github.com/chewxy/math32"
)

// MinDT is the smallest time step the controller will divide by.
const MinDT float32 = 1e-6

// MaxIntegral caps the integral accumulator: the square root of the largest float32.
var MaxIntegral = math32.Sqrt(math.MaxFloat32)

// Gains are fixed for the lifetime of a Controller.
type Gains struct {
	Kp, Ki, Kd float32

	// SymmetricClamp also floors the integral at -MaxIntegral.
	// Without it only the ceiling applies and a sustained negative error winds the
	// integral down without bound. Enabling it changes closed-loop behaviour.
	SymmetricClamp bool
}

// DefaultGains returns the tuned steering gains for dt in milliseconds.
func DefaultGains() Gains {
	return Gains{Kp: -2.0, Ki: 0.0, Kd: -0.00001}
}

// Controller is a PID filter over the track offset.
// It is not safe for concurrent use; the control loop is its only caller.
type Controller struct {
	gains     Gains
	integral  float32
	prevError float32
}

// New creates a Controller with zeroed state.
func New(g Gains) *Controller {
	return &Controller{gains: g}
}

// Step advances the controller by dt and returns the steering correction for error.
func (c *Controller) Step(err, dt float32) float32 {
	if !(dt >= MinDT) {
		dt = MinDT
	}

	c.integral = min(c.integral+err*dt, MaxIntegral)
	if c.gains.SymmetricClamp {
		c.integral = max(c.integral, -MaxIntegral)
	}

	derivative := (err - c.prevError) / dt
	c.prevError = err

	return c.gains.Kp*err + c.gains.Ki*c.integral + c.gains.Kd*derivative
}

// Integral returns the accumulated integral.
func (c *Controller) Integral() float32 {
	return c.integral
}

// PreviousError returns the error passed to the last Step.
func (c *Controller) PreviousError() float32 {
	return c.prevError
}

// Gains returns the controller gains.
func (c *Controller) Gains() Gains {
	return c.gains
}
