package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/itohio/linetracer/pkg/tracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() Frame {
	return Frame{
		Tick:       4294967295,
		Elapsed:    1,
		Offset:     -2500,
		Correction: 5000.5,
		Integral:   -1.25,
		Left:       11000,
		Right:      6000,
		Raw:        [sensor.Channels]uint16{3600, 400, 400, 400, 400, 400, 400, 4095},
		Normalized: [sensor.Channels]int32{10000, 0, 0, 0, 0, 0, 0, -1250},
	}
}

func TestFormatLine(t *testing.T) {
	line := FormatLine(testFrame())
	assert.Equal(t, "T,4294967295,1,-2500,5000.5,-1.25,11000,6000,3600,400,400,400,400,400,400,4095,10000,0,0,0,0,0,0,-1250", line)
	assert.True(t, IsFrame(line))
}

func TestAppendLine_Reuses(t *testing.T) {
	buf := make([]byte, 0, 256)
	out := AppendLine(buf, testFrame())
	assert.Equal(t, &buf[:1][0], &out[:1][0], "appends in place when capacity allows")
}

func TestParseLine(t *testing.T) {
	want := testFrame()

	got, err := ParseLine(FormatLine(want) + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseLine_NonFinite(t *testing.T) {
	f := testFrame()
	f.Integral = math32.Inf(-1)
	f.Correction = math32.NaN()

	got, err := ParseLine(FormatLine(f))
	require.NoError(t, err)
	assert.True(t, math32.IsInf(got.Integral, -1))
	assert.True(t, math32.IsNaN(got.Correction))
}

func TestParseLine_Malformed(t *testing.T) {
	valid := FormatLine(testFrame())
	fields := strings.Split(valid, ",")

	replace := func(i int, v string) string {
		cp := append([]string(nil), fields...)
		cp[i] = v
		return strings.Join(cp, ",")
	}

	tests := []struct {
		name string
		line string
	}{
		{name: "empty", line: ""},
		{name: "log line", line: "calibration: arm"},
		{name: "too few fields", line: strings.Join(fields[:10], ",")},
		{name: "too many fields", line: valid + ",1"},
		{name: "wrong prefix", line: replace(0, "X")},
		{name: "negative tick", line: replace(1, "-1")},
		{name: "raw above 16 bits", line: replace(8, "70000")},
		{name: "offset not a number", line: replace(3, "abc")},
		{name: "correction not a number", line: replace(4, "1.2.3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFromSnapshot(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := tracer.Snapshot{
		Iteration:  7,
		Tick:       100,
		Elapsed:    2,
		Raw:        [sensor.Channels]uint16{1, 2, 3, 4, 5, 6, 7, 8},
		Normalized: [sensor.Channels]int32{8, 7, 6, 5, 4, 3, 2, 1},
		Offset:     -3,
		Correction: 6,
		Integral:   0.5,
		Left:       6006,
		Right:      6000,
	}

	f := FromSnapshot(s, now)
	assert.Equal(t, Frame{
		Time:       now,
		Tick:       100,
		Elapsed:    2,
		Offset:     -3,
		Correction: 6,
		Integral:   0.5,
		Left:       6006,
		Right:      6000,
		Raw:        s.Raw,
		Normalized: s.Normalized,
	}, f)
}
