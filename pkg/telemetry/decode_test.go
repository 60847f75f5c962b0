package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	stream := strings.Join([]string{
		"calibration: arm",
		FormatLine(Frame{Tick: 1, Left: 6000, Right: 6000}),
		"",
		"T,garbage",
		FormatLine(testFrame()),
	}, "\n") + "\n"

	var frames []Frame
	for f := range Decode(context.Background(), strings.NewReader(stream), 0) {
		frames = append(frames, f)
	}

	require.Len(t, frames, 2)
	assert.Equal(t, uint32(1), frames[0].Tick)
	assert.False(t, frames[0].Time.IsZero(), "frames are stamped on receipt")

	want := testFrame()
	want.Time = frames[1].Time
	assert.Equal(t, want, frames[1])
}

func TestDecode_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var lines []string
	for range 10 {
		lines = append(lines, FormatLine(testFrame()))
	}

	// A cancelled decoder stops early and still closes its channel.
	out := Decode(ctx, strings.NewReader(strings.Join(lines, "\n")), 1)
	n := 0
	for range out {
		n++
	}
	assert.LessOrEqual(t, n, 10)
}
