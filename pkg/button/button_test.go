package button

import (
	"context"
	"testing"

	"github.com/itohio/linetracer/pkg/tick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixed State

func (f fixed) State() State { return State(f) }

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(Pressed, 500)

	assert.False(t, d.Observe(Pressed, 1000), "first observation starts the run")
	assert.False(t, d.Observe(Pressed, 1500), "exactly the hold time is not enough")
	assert.True(t, d.Observe(Pressed, 1501))

	// A bounce restarts the run.
	assert.False(t, d.Observe(Released, 1600))
	assert.False(t, d.Observe(Pressed, 1700))
	assert.False(t, d.Observe(Pressed, 2100))
	assert.True(t, d.Observe(Pressed, 2101))

	d.Reset()
	assert.False(t, d.Observe(Pressed, 3000))
}

func TestDebouncer_Wraparound(t *testing.T) {
	d := NewDebouncer(Released, 10)

	assert.False(t, d.Observe(Released, 0xFFFFFFF0))
	assert.False(t, d.Observe(Released, 0xFFFFFFFA))
	assert.True(t, d.Observe(Released, 0x00000001), "run crosses the counter wrap")
}

func TestWaitStable(t *testing.T) {
	clock := tick.NewManual(0)

	err := WaitStable(context.Background(), fixed(Pressed), clock, Pressed, 500)
	require.NoError(t, err)
	assert.Equal(t, uint32(501), clock.Millis())
}

func TestWaitStable_Cancelled(t *testing.T) {
	clock := tick.NewManual(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitStable(ctx, fixed(Released), clock, Pressed, 500)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitStable_Script(t *testing.T) {
	clock := tick.NewManual(100)
	btn := NewScript(clock,
		Step{State: Released, Duration: 50},
		Step{State: Pressed, Duration: 20}, // bounce
		Step{State: Released, Duration: 30},
		Step{State: Pressed, Duration: 1000},
	)

	require.NoError(t, WaitStable(context.Background(), btn, clock, Pressed, 500))
	// The run is measured from the last released poll at 199 and needs more than 500ms.
	assert.Equal(t, uint32(700), clock.Millis())
}

func TestScript(t *testing.T) {
	clock := tick.NewManual(0)
	btn := NewScript(clock,
		Step{State: Pressed, Duration: 10},
		Step{State: Released, Duration: 10},
	)

	assert.Equal(t, Pressed, btn.State())
	clock.Advance(9)
	assert.Equal(t, Pressed, btn.State())
	clock.Advance(1)
	assert.Equal(t, Released, btn.State())
	clock.Advance(100)
	assert.Equal(t, Released, btn.State(), "last state persists")

	assert.Equal(t, Released, NewScript(clock).State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pressed", Pressed.String())
	assert.Equal(t, "released", Released.String())
}

func TestOperatorScript(t *testing.T) {
	clock := tick.NewManual(0)
	btn := OperatorScript(clock, 500, 1000, 200, 700)

	want := []struct {
		at    uint32
		state State
	}{
		{at: 0, state: Released},
		{at: 700, state: Pressed},
		{at: 700 + 1399, state: Pressed},
		{at: 700 + 1400, state: Released},
		{at: 2100 + 2399, state: Released},
		{at: 2100 + 2400, state: Pressed},
		{at: 4500 + 1200, state: Released},
	}
	for _, w := range want {
		clock.Set(w.at)
		assert.Equal(t, w.state, btn.State(), "at %d", w.at)
	}
}
