package motor

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level struct {
	value uint32
	sets  int
}

func (l *level) Set(v uint32) {
	l.value = v
	l.sets++
}

func newBridge() (*HBridge, *level, *level) {
	cw, ccw := &level{value: 99}, &level{value: 99}
	return &HBridge{CW: cw, CCW: ccw, Max: 24000}, cw, ccw
}

func TestHBridge_Set(t *testing.T) {
	tests := []struct {
		name    string
		duty    int32
		wantCW  uint32
		wantCCW uint32
	}{
		{name: "stop", duty: 0, wantCW: 0, wantCCW: 0},
		{name: "forward", duty: 6000, wantCW: 0, wantCCW: 6000},
		{name: "forward clamped", duty: 30000, wantCW: 0, wantCCW: 24000},
		{name: "reverse", duty: -6000, wantCW: 6000, wantCCW: 0},
		{name: "reverse clamped", duty: -30000, wantCW: 24000, wantCCW: 0},
		{name: "reverse minimum int", duty: math.MinInt32, wantCW: 24000, wantCCW: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, cw, ccw := newBridge()
			h.Set(tt.duty)
			assert.Equal(t, tt.wantCW, cw.value)
			assert.Equal(t, tt.wantCCW, ccw.value)
			assert.Equal(t, 1, cw.sets)
			assert.Equal(t, 1, ccw.sets)
		})
	}
}

func TestChannelFunc(t *testing.T) {
	var got uint32
	var ch Channel = ChannelFunc(func(v uint32) { got = v })
	ch.Set(42)
	assert.Equal(t, uint32(42), got)
}

func TestDrive(t *testing.T) {
	left, lcw, lccw := newBridge()
	right, rcw, rccw := newBridge()

	d := NewDrive(left, right)
	require.Equal(t, uint32(0), lcw.value, "drive starts stopped")
	require.Equal(t, uint32(0), rccw.value)

	d.SetDuty(Left, 7000)
	d.SetDuty(Right, -8000)

	assert.Equal(t, uint32(7000), lccw.value)
	assert.Equal(t, uint32(0), lcw.value)
	assert.Equal(t, uint32(8000), rcw.value)
	assert.Equal(t, uint32(0), rccw.value)

	l, r := d.Last()
	assert.Equal(t, int32(7000), l)
	assert.Equal(t, int32(-8000), r)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(0)
	r.SetDuty(Left, 1)
	r.SetDuty(Right, 2)
	r.SetDuty(Left, 3)

	l, rr := r.Last()
	assert.Equal(t, int32(3), l)
	assert.Equal(t, int32(2), rr)
	assert.Equal(t, []Command{{Left, 1}, {Right, 2}, {Left, 3}}, r.Commands())

	r.Reset()
	assert.Empty(t, r.Commands())
	l, rr = r.Last()
	assert.Zero(t, l)
	assert.Zero(t, rr)
}

func TestRecorder_Limit(t *testing.T) {
	r := NewRecorder(2)
	for i := range int32(5) {
		r.SetDuty(Left, i)
	}
	assert.Equal(t, []Command{{Left, 3}, {Left, 4}}, r.Commands())
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder(100)
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 250 {
				r.SetDuty(Motor(i%2), int32(j))
				r.Last()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, r.Commands(), 100)
}
