package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameAt(base time.Time, ms int) Frame {
	return Frame{Time: base.Add(time.Duration(ms) * time.Millisecond), Tick: uint32(ms)}
}

func TestHistory_Window(t *testing.T) {
	base := time.Now()
	h := NewHistory(time.Second)

	for ms := 0; ms <= 2500; ms += 100 {
		h.Add(frameAt(base, ms))
	}

	frames := h.Frames()
	require.NotEmpty(t, frames)
	assert.Equal(t, uint32(1600), frames[0].Tick, "frames at or before the cutoff are evicted")
	assert.Equal(t, uint32(2500), frames[len(frames)-1].Tick)
	assert.Len(t, frames, 10)

	latest, ok := h.Latest()
	assert.True(t, ok)
	assert.Equal(t, uint32(2500), latest.Tick)
}

func TestHistory_NonPositiveWindow(t *testing.T) {
	base := time.Now()
	for _, window := range []time.Duration{0, -time.Second} {
		h := NewHistory(window)
		for ms := range 1000 {
			h.Add(frameAt(base, ms))
		}

		frames := h.Frames()
		require.Len(t, frames, 1, "window %v", window)
		assert.Equal(t, uint32(999), frames[0].Tick)
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(time.Second)
	_, ok := h.Latest()
	assert.False(t, ok)
	assert.Empty(t, h.Frames())
}

func TestHistory_Process(t *testing.T) {
	base := time.Now()
	h := NewHistory(time.Minute)

	var mu sync.Mutex
	var sizes []int
	h.OnUpdate(func(frames []Frame) {
		mu.Lock()
		sizes = append(sizes, len(frames))
		mu.Unlock()
	})

	in := make(chan Frame, 3)
	in <- frameAt(base, 0)
	in <- frameAt(base, 1)
	in <- frameAt(base, 2)
	close(in)

	h.Process(in)

	assert.Equal(t, []int{1, 2, 3}, sizes)

	// After shutdown frames are still stored but callbacks stay quiet.
	h.Add(frameAt(base, 3))
	assert.Len(t, sizes, 3)
	assert.Len(t, h.Frames(), 4)

	h.ResetShutdown()
	h.Add(frameAt(base, 4))
	assert.Equal(t, []int{1, 2, 3, 5}, sizes)
}

func TestHistory_CallbackGetsCopy(t *testing.T) {
	base := time.Now()
	h := NewHistory(time.Minute)
	h.OnUpdate(func(frames []Frame) {
		frames[0].Tick = 999
	})
	h.Add(frameAt(base, 1))
	assert.Equal(t, uint32(1), h.Frames()[0].Tick)
}

func TestDownsample(t *testing.T) {
	base := time.Now()
	frames := make([]Frame, 1000)
	for i := range frames {
		frames[i] = frameAt(base, i)
	}

	out := Downsample(nil, frames, 100)
	require.Len(t, out, 100)
	assert.Equal(t, uint32(0), out[0].Tick)
	assert.Equal(t, uint32(990), out[99].Tick)

	dst := make([]Frame, 0, 200)
	reused := Downsample(dst, frames, 100)
	assert.Equal(t, cap(dst), cap(reused))

	small := Downsample(nil, frames[:10], 100)
	assert.Equal(t, frames[:10], small)
}
