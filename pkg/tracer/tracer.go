// Package tracer runs the acquisition-to-actuation loop of the robot.
//
// A Tracer is owned by a single goroutine. The sample producer is the only other party touching
// shared state, through the lock-free sensor.Buffer.
package tracer

import (
	"context"
	"log"

	"github.com/itohio/linetracer/pkg/button"
	"github.com/itohio/linetracer/pkg/calibration"
	"github.com/itohio/linetracer/pkg/motor"
	"github.com/itohio/linetracer/pkg/pid"
	"github.com/itohio/linetracer/pkg/position"
	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/itohio/linetracer/pkg/tick"
)

// Settings are fixed for the lifetime of a Tracer.
type Settings struct {
	Weights      position.Weights
	Gains        pid.Gains
	NeutralSpeed int32
	DutyMax      int32
	Timing       calibration.Timing

	Period      uint32 // Milliseconds slept between iterations, 0 = free running
	UpdateEvery uint32 // Call OnUpdate callbacks every N iterations, 0 = never
}

// DefaultSettings returns the reference tuning.
func DefaultSettings() Settings {
	return Settings{
		Weights:      position.DefaultWeights(),
		Gains:        pid.DefaultGains(),
		NeutralSpeed: 6000,
		DutyMax:      24000,
		Timing:       calibration.DefaultTiming(),
		UpdateEvery:  100,
	}
}

// Snapshot is everything one iteration computed.
type Snapshot struct {
	Iteration  uint32
	Tick       uint32
	Elapsed    uint32
	Raw        [sensor.Channels]uint16
	Normalized [sensor.Channels]int32
	Offset     int32
	Correction float32
	Integral   float32
	Left       int32
	Right      int32
}

// Tracer steers the robot along the line.
type Tracer struct {
	src      sensor.Source
	btn      button.Button
	clock    tick.Clock
	out      motor.Output
	settings Settings

	bounds calibration.Bounds
	norm   *position.Normalizer
	pid    *pid.Controller

	last      uint32
	started   bool
	iteration uint32
	snap      Snapshot

	phaseHooks []func(calibration.Phase)
	callbacks  []func(Snapshot)
}

// New creates a Tracer. Until bounds are installed every channel reads as neutral and the
// motors are held at neutral speed.
func New(src sensor.Source, btn button.Button, clock tick.Clock, out motor.Output, settings Settings) *Tracer {
	tr := &Tracer{
		src:      src,
		btn:      btn,
		clock:    clock,
		out:      out,
		settings: settings,
		pid:      pid.New(settings.Gains),
	}
	tr.norm = position.NewNormalizer(tr.bounds, settings.Weights)
	return tr
}

// OnPhase registers fn to observe calibration phases.
func (tr *Tracer) OnPhase(fn func(calibration.Phase)) {
	tr.phaseHooks = append(tr.phaseHooks, fn)
}

// OnUpdate registers fn to receive every UpdateEvery-th snapshot.
// Callbacks run on the control goroutine and must not block.
func (tr *Tracer) OnUpdate(fn func(Snapshot)) {
	tr.callbacks = append(tr.callbacks, fn)
}

// Calibrate runs the button-gated calibration protocol and installs the resulting bounds.
func (tr *Tracer) Calibrate(ctx context.Context) (calibration.Bounds, error) {
	engine := calibration.New(tr.src, tr.btn, tr.clock, tr.settings.Timing)
	for _, fn := range tr.phaseHooks {
		engine.OnPhase(fn)
	}

	b, err := engine.Run(ctx)
	if err != nil {
		return b, err
	}
	tr.SetBounds(b)
	return b, nil
}

// SetBounds installs calibration bounds. The next Step restarts elapsed-time accounting.
func (tr *Tracer) SetBounds(b calibration.Bounds) {
	tr.bounds = b
	tr.norm = position.NewNormalizer(b, tr.settings.Weights)
	tr.started = false
}

// Bounds returns the installed calibration bounds.
func (tr *Tracer) Bounds() calibration.Bounds {
	return tr.bounds
}

// Step runs one iteration: read, normalize, estimate, steer and actuate.
func (tr *Tracer) Step() Snapshot {
	now := tr.clock.Millis()
	if !tr.started {
		tr.last = now
		tr.started = true
	}
	dt := tick.Elapsed(tr.last, now)
	tr.last = now

	var raw [sensor.Channels]uint16
	for ch := range raw {
		raw[ch] = tr.src.Read(ch)
	}

	offset, normalized := tr.norm.Offset(raw)

	// The setpoint is a centered line.
	correction := tr.pid.Step(float32(offset), float32(dt))
	left, right := motor.MapDuty(motor.Saturate(correction), tr.settings.NeutralSpeed, tr.settings.DutyMax)

	tr.out.SetDuty(motor.Left, left)
	tr.out.SetDuty(motor.Right, right)

	tr.iteration++
	tr.snap = Snapshot{
		Iteration:  tr.iteration,
		Tick:       now,
		Elapsed:    dt,
		Raw:        raw,
		Normalized: normalized,
		Offset:     offset,
		Correction: correction,
		Integral:   tr.pid.Integral(),
		Left:       left,
		Right:      right,
	}

	if every := tr.settings.UpdateEvery; every > 0 && tr.iteration%every == 0 {
		for _, fn := range tr.callbacks {
			fn(tr.snap)
		}
	}

	return tr.snap
}

// Last returns the snapshot of the latest Step. Not safe to call from another goroutine.
func (tr *Tracer) Last() Snapshot {
	return tr.snap
}

// Run steps until ctx is done and returns the context error.
func (tr *Tracer) Run(ctx context.Context) error {
	log.Printf("tracer: running (neutral %d, max %d)", tr.settings.NeutralSpeed, tr.settings.DutyMax)
	tr.started = false

	for {
		select {
		case <-ctx.Done():
			tr.out.SetDuty(motor.Left, 0)
			tr.out.SetDuty(motor.Right, 0)
			log.Printf("tracer: stopped after %d iterations", tr.iteration)
			return ctx.Err()
		default:
		}

		tr.Step()
		if tr.settings.Period > 0 {
			tr.clock.Sleep(tr.settings.Period)
		}
	}
}
