package button

import (
	"sync"

	"github.com/itohio/linetracer/pkg/tick"
)

// Step is one segment of a scripted operator: hold State for Duration milliseconds.
type Step struct {
	State    State
	Duration uint32
}

// Script is a Button that replays a fixed sequence of states against a clock.
// After the last step it keeps reporting the final state.
type Script struct {
	clock tick.Clock
	steps []Step

	mu    sync.Mutex
	start uint32
	armed bool
}

// NewScript creates a scripted button. Time starts at the first State call.
func NewScript(clock tick.Clock, steps ...Step) *Script {
	return &Script{clock: clock, steps: steps}
}

// CalibrationScript returns an operator that walks through the calibration protocol:
// press to sample the background, release, and press again to accept once the mark was sampled.
// Each segment is long enough for the debounce, settle and averaging delays (milliseconds) to complete.
func CalibrationScript(clock tick.Clock, debounce, settle, window uint32) *Script {
	return OperatorScript(clock, debounce, settle, window, 100)
}

// OperatorScript is CalibrationScript with an explicit extra hold time per segment.
func OperatorScript(clock tick.Clock, debounce, settle, window, margin uint32) *Script {
	return NewScript(clock,
		Step{State: Released, Duration: margin},
		Step{State: Pressed, Duration: debounce + window + margin},
		Step{State: Released, Duration: debounce + settle + window + margin},
		Step{State: Pressed, Duration: debounce + margin},
		Step{State: Released},
	)
}

// State returns the scripted state for the current clock tick.
func (s *Script) State() State {
	now := s.clock.Millis()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.armed {
		s.start = now
		s.armed = true
	}

	if len(s.steps) == 0 {
		return Released
	}

	elapsed := tick.Elapsed(s.start, now)
	for _, step := range s.steps {
		if elapsed < step.Duration {
			return step.State
		}
		elapsed -= step.Duration
	}
	return s.steps[len(s.steps)-1].State
}
