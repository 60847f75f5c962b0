package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/linetracer/pkg/calibration"
	"github.com/itohio/linetracer/pkg/config"
	"github.com/itohio/linetracer/pkg/sim"
	"github.com/itohio/linetracer/pkg/tick"
	"github.com/itohio/linetracer/pkg/tracer"
)

func TestSettingsFrom(t *testing.T) {
	cfg := config.Default()
	s, err := settingsFrom(cfg)
	require.NoError(t, err)

	def := tracer.DefaultSettings()
	assert.Equal(t, def.Weights, s.Weights)
	assert.Equal(t, def.Gains, s.Gains)
	assert.Equal(t, def.NeutralSpeed, s.NeutralSpeed)
	assert.Equal(t, def.DutyMax, s.DutyMax)
	assert.Equal(t, def.Timing, s.Timing)
	assert.Zero(t, s.Period, "host loop is free running by default")
	assert.Equal(t, uint32(100), s.UpdateEvery)

	cfg.Telemetry.Every = -5
	cfg.Control.SymmetricClamp = true
	s, err = settingsFrom(cfg)
	require.NoError(t, err)
	assert.Zero(t, s.UpdateEvery)
	assert.True(t, s.Gains.SymmetricClamp)

	cfg.Sensor.Weights = []float32{1, 2}
	_, err = settingsFrom(cfg)
	assert.Error(t, err)
}

func TestOpenSinks_Disabled(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Every = 0
	cfg.MQTTBroker = "tcp://unreachable:1883"

	sinks, closeAll, err := openSinks(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Empty(t, sinks)
	closeAll()
}

func TestOpenSinks_Websocket(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.WebsocketAddr = "127.0.0.1:0"

	sinks, closeAll, err := openSinks(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Len(t, sinks, 1)
	closeAll()
}

func TestMockRig_Surfaces(t *testing.T) {
	cfg := config.Default()
	r := mockRig(cfg, tick.NewManual(0))
	track := r.producer.(*sim.Track)

	require.NoError(t, track.Connect())
	defer track.Close()

	wait := func(cond func(v uint16) bool) {
		t.Helper()
		assert.Eventually(t, func() bool {
			return cond(track.Buffer().Read(0)) && cond(track.Buffer().Read(7))
		}, time.Second, time.Millisecond)
	}

	r.onPhase(calibration.PhaseBackground)
	wait(func(v uint16) bool { return v < 1000 })

	r.onPhase(calibration.PhaseMark)
	wait(func(v uint16) bool { return v > 3000 })
}
