package calibration

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/itohio/linetracer/pkg/button"
	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/itohio/linetracer/pkg/tick"
)

// Bounds are the per-channel reflectance extremes captured during calibration.
// Min is the background exposure and Max the mark exposure. Inverted pairs are kept as captured.
type Bounds struct {
	Min [sensor.Channels]uint16
	Max [sensor.Channels]uint16
}

// Range returns Max - Min for channel. It is zero for a channel that saw no contrast
// and negative when the exposures were inverted.
func (b Bounds) Range(channel int) int32 {
	return int32(b.Max[channel]) - int32(b.Min[channel])
}

// Ranges returns Range for every channel.
func (b Bounds) Ranges() [sensor.Channels]int32 {
	var out [sensor.Channels]int32
	for i := range out {
		out[i] = b.Range(i)
	}
	return out
}

// Degenerate returns the channels whose range is zero or negative.
func (b Bounds) Degenerate() []int {
	var out []int
	for i := range sensor.Channels {
		if b.Range(i) <= 0 {
			out = append(out, i)
		}
	}
	return out
}

// Timing holds the protocol delays.
type Timing struct {
	Window   time.Duration
	Interval time.Duration
	Debounce time.Duration
	Settle   time.Duration
}

// DefaultTiming returns 200 samples at 1ms, a 500ms debounce and a one second settle.
func DefaultTiming() Timing {
	return Timing{
		Window:   200 * time.Millisecond,
		Interval: time.Millisecond,
		Debounce: 500 * time.Millisecond,
		Settle:   time.Second,
	}
}

func millis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}

// SampleAverage polls src every interval milliseconds for window milliseconds and returns the
// truncated per-channel mean. At least one scan is always taken.
func SampleAverage(src sensor.Source, clock tick.Clock, window, interval uint32) [sensor.Channels]uint16 {
	count := uint32(1)
	if interval > 0 && window/interval > 1 {
		count = window / interval
	}

	var sum [sensor.Channels]uint64
	for range count {
		for ch := range sum {
			sum[ch] += uint64(src.Read(ch))
		}
		clock.Sleep(interval)
	}

	var out [sensor.Channels]uint16
	for ch := range out {
		out[ch] = uint16(sum[ch] / uint64(count))
	}
	return out
}

// Phase is a step of the calibration protocol.
type Phase int

const (
	PhaseArm        Phase = iota // Waiting for the operator to press on the background
	PhaseBackground              // Averaging the background exposure
	PhaseRelease                 // Waiting for the button to be released
	PhaseMark                    // Averaging the mark exposure
	PhaseAccept                  // Waiting for the operator to accept
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseArm:
		return "arm"
	case PhaseBackground:
		return "background"
	case PhaseRelease:
		return "release"
	case PhaseMark:
		return "mark"
	case PhaseAccept:
		return "accept"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Engine runs the button-gated two-exposure calibration.
type Engine struct {
	src    sensor.Source
	btn    button.Button
	clock  tick.Clock
	timing Timing

	hooks []func(Phase)
}

// New creates a calibration Engine.
func New(src sensor.Source, btn button.Button, clock tick.Clock, timing Timing) *Engine {
	return &Engine{
		src:    src,
		btn:    btn,
		clock:  clock,
		timing: timing,
	}
}

// OnPhase registers fn to be called when the protocol enters a phase.
func (e *Engine) OnPhase(fn func(Phase)) {
	e.hooks = append(e.hooks, fn)
}

func (e *Engine) enter(p Phase) {
	log.Printf("calibration: %s", p)
	for _, fn := range e.hooks {
		fn(p)
	}
}

// Run walks the protocol once and returns the captured bounds.
// The only error is the context error when ctx is done while waiting on the button.
func (e *Engine) Run(ctx context.Context) (Bounds, error) {
	var b Bounds
	debounce := millis(e.timing.Debounce)
	window := millis(e.timing.Window)
	interval := millis(e.timing.Interval)
	settle := millis(e.timing.Settle)

	e.enter(PhaseArm)
	if err := button.WaitStable(ctx, e.btn, e.clock, button.Pressed, debounce); err != nil {
		return b, err
	}

	e.enter(PhaseBackground)
	b.Min = SampleAverage(e.src, e.clock, window, interval)

	e.enter(PhaseRelease)
	if err := button.WaitStable(ctx, e.btn, e.clock, button.Released, debounce); err != nil {
		return b, err
	}
	e.clock.Sleep(settle)

	e.enter(PhaseMark)
	b.Max = SampleAverage(e.src, e.clock, window, interval)

	e.enter(PhaseAccept)
	if err := button.WaitStable(ctx, e.btn, e.clock, button.Pressed, debounce); err != nil {
		return b, err
	}
	e.clock.Sleep(settle)

	e.enter(PhaseDone)
	if bad := b.Degenerate(); len(bad) > 0 {
		log.Printf("calibration: channels %v have no usable contrast", bad)
	}

	return b, nil
}
