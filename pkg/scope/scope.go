package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/linetracer/pkg/position"
	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/itohio/linetracer/pkg/telemetry"
)

// Trace is one plotted series.
type Trace int

const (
	TraceOffset Trace = iota
	TraceLeft
	TraceRight
	traceCount
)

var traceColors = [traceCount]color.RGBA{
	TraceOffset: {R: 255, G: 165, B: 0, A: 255},   // Orange
	TraceLeft:   {R: 100, G: 200, B: 255, A: 255}, // Light blue
	TraceRight:  {R: 120, G: 220, B: 120, A: 255}, // Green
}

// Widget shows the track offset and both motor duties over time, with a bar per sensor
// channel for the latest normalized reading.
type Widget struct {
	widget.BaseWidget

	window time.Duration

	mu         sync.RWMutex
	display    []telemetry.Frame
	normalized [sensor.Channels]int32
	yMin, yMax float64
	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a Widget showing at least window of history.
func New(window time.Duration) *Widget {
	s := &Widget{
		window:           window,
		display:          make([]telemetry.Frame, 0, 1000),
		maxDisplayPoints: 1000,
	}
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData replaces the plotted frames. Call it on the fyne main thread.
func (s *Widget) UpdateData(frames []telemetry.Frame) {
	s.mu.Lock()
	s.display = telemetry.Downsample(s.display, frames, s.maxDisplayPoints)
	if len(frames) > 0 {
		s.normalized = frames[len(frames)-1].Normalized
	}
	s.yMin, s.yMax = autoScale(s.display)
	s.xMin, s.xMax = timeSpan(s.display, s.window)
	s.mu.Unlock()

	s.Refresh()
}

// value returns the plotted value of tr for f.
func value(f telemetry.Frame, tr Trace) float64 {
	switch tr {
	case TraceOffset:
		return float64(f.Offset)
	case TraceLeft:
		return float64(f.Left)
	case TraceRight:
		return float64(f.Right)
	}
	return 0
}

// autoScale returns a vertical range covering every trace with a 10% margin.
func autoScale(frames []telemetry.Frame) (yMin, yMax float64) {
	if len(frames) == 0 {
		return -position.Scale, position.Scale
	}

	yMin, yMax = value(frames[0], TraceOffset), value(frames[0], TraceOffset)
	for _, f := range frames {
		for tr := range traceCount {
			v := value(f, tr)
			yMin = min(yMin, v)
			yMax = max(yMax, v)
		}
	}

	span := yMax - yMin
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	return yMin - margin, yMax + margin
}

// timeSpan returns the horizontal range, at least window wide.
func timeSpan(frames []telemetry.Frame, window time.Duration) (xMin, xMax time.Time) {
	if len(frames) == 0 {
		now := time.Now()
		return now, now.Add(window)
	}
	xMin = frames[0].Time
	xMax = frames[len(frames)-1].Time
	if xMax.Sub(xMin) < window {
		xMax = xMin.Add(window)
	}
	return xMin, xMax
}

// barLevel maps a normalized reading to [0, 1] for the channel bars.
func barLevel(n int32) float32 {
	switch {
	case n <= 0:
		return 0
	case n >= position.Scale:
		return 1
	}
	return float32(n) / position.Scale
}

func (s *Widget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &renderer{
		scope:      s,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}
