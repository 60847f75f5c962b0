package button

import (
	"context"

	"github.com/itohio/linetracer/pkg/tick"
)

// State is the level observed on the operator button.
type State int

const (
	Released State = iota
	Pressed
)

func (s State) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

// Button is a polled digital input.
type Button interface {
	State() State
}

// Debouncer decides when a button has held a wanted state for long enough.
// It keeps only the time the current stable run started, so it can be driven by any clock.
type Debouncer struct {
	Want State
	Hold uint32 // milliseconds; the state must be held strictly longer than this

	start   uint32
	started bool
}

// NewDebouncer creates a Debouncer waiting for want to be held longer than hold milliseconds.
func NewDebouncer(want State, hold uint32) *Debouncer {
	return &Debouncer{Want: want, Hold: hold}
}

// Observe records the state seen at tick now and reports whether it has been stable long enough.
// Any observation other than Want restarts the run.
func (d *Debouncer) Observe(s State, now uint32) bool {
	if !d.started || s != d.Want {
		d.start = now
		d.started = true
		return false
	}
	return tick.Elapsed(d.start, now) > d.Hold
}

// Reset forgets the current run.
func (d *Debouncer) Reset() {
	d.started = false
}

// WaitStable polls btn once per millisecond until it has held want for longer than hold.
// It returns early with the context error if ctx is done.
func WaitStable(ctx context.Context, btn Button, clock tick.Clock, want State, hold uint32) error {
	d := NewDebouncer(want, hold)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Observe(btn.State(), clock.Millis()) {
			return nil
		}
		clock.Sleep(1)
	}
}
