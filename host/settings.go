package main

import (
	"fmt"
	"time"

	"github.com/itohio/linetracer/pkg/calibration"
	"github.com/itohio/linetracer/pkg/config"
	"github.com/itohio/linetracer/pkg/pid"
	"github.com/itohio/linetracer/pkg/position"
	"github.com/itohio/linetracer/pkg/tracer"
)

// settingsFrom converts the configuration into tracer settings.
func settingsFrom(cfg *config.Config) (tracer.Settings, error) {
	w, err := position.WeightsFrom(cfg.Sensor.Weights)
	if err != nil {
		return tracer.Settings{}, fmt.Errorf("sensor weights: %w", err)
	}

	every := cfg.Telemetry.Every
	if every < 0 {
		every = 0
	}

	return tracer.Settings{
		Weights: w,
		Gains: pid.Gains{
			Kp:             cfg.Control.Kp,
			Ki:             cfg.Control.Ki,
			Kd:             cfg.Control.Kd,
			SymmetricClamp: cfg.Control.SymmetricClamp,
		},
		NeutralSpeed: cfg.Control.NeutralSpeed,
		DutyMax:      cfg.Control.DutyMax,
		Timing: calibration.Timing{
			Window:   cfg.Calibration.Window,
			Interval: cfg.Calibration.Interval,
			Debounce: cfg.Calibration.Debounce,
			Settle:   cfg.Calibration.Settle,
		},
		Period:      uint32(cfg.Control.Period / time.Millisecond),
		UpdateEvery: uint32(every),
	}, nil
}
