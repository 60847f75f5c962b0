package scope

import (
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/itohio/linetracer/pkg/telemetry"
)

const (
	marginLeft   = float32(60)
	marginRight  = float32(20)
	marginTop    = float32(20)
	marginBottom = float32(40)
	barsHeight   = float32(40)
)

type renderer struct {
	scope      *Widget
	background *canvas.Rectangle
	objects    []fyne.CanvasObject
	lastSize   fyne.Size
}

func (r *renderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

func (r *renderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// plot is the drawing area and the data ranges mapped onto it.
type plot struct {
	x, y, w, h float32
	yMin, yMax float64
	xMin, xMax time.Time
}

func (p plot) point(t time.Time, v float64) fyne.Position {
	span := p.xMax.Sub(p.xMin).Seconds()
	x := p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.w
	y := p.y + p.h - float32((v-p.yMin)/(p.yMax-p.yMin))*p.h
	return fyne.NewPos(x, y)
}

func (r *renderer) Refresh() {
	r.scope.mu.RLock()
	frames := r.scope.display
	normalized := r.scope.normalized
	p := plot{
		yMin: r.scope.yMin, yMax: r.scope.yMax,
		xMin: r.scope.xMin, xMax: r.scope.xMax,
	}
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.background}

	p.x = marginLeft
	p.y = marginTop
	p.w = size.Width - marginLeft - marginRight
	p.h = size.Height - marginTop - marginBottom - barsHeight
	if p.w <= 0 || p.h <= 0 || p.yMax == p.yMin || !p.xMax.After(p.xMin) {
		return
	}

	r.drawGrid(p)
	if len(frames) > 1 {
		for tr := range traceCount {
			r.drawTrace(p, frames, tr)
		}
	}
	r.drawBars(p, normalized)
}

func (r *renderer) drawGrid(p plot) {
	gridColor := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	textColor := color.RGBA{R: 150, G: 150, B: 150, A: 255}

	const rows = 8
	for i := range rows + 1 {
		y := p.y + float32(i)*p.h/rows
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(p.x, y)
		line.Position2 = fyne.NewPos(p.x+p.w, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		v := p.yMax - float64(i)*(p.yMax-p.yMin)/rows
		text := canvas.NewText(strconv.FormatFloat(v, 'f', 0, 64), textColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	const cols = 10
	span := p.xMax.Sub(p.xMin)
	for i := range cols + 1 {
		x := p.x + float32(i)*p.w/cols
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, p.y)
		line.Position2 = fyne.NewPos(x, p.y+p.h)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		offset := span * time.Duration(i) / cols
		text := canvas.NewText(strconv.FormatFloat(offset.Seconds(), 'f', 1, 64)+"s", textColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.h+5))
		r.objects = append(r.objects, text)
	}
}

func (r *renderer) drawTrace(p plot, frames []telemetry.Frame, tr Trace) {
	prev := p.point(frames[0].Time, value(frames[0], tr))
	for _, f := range frames[1:] {
		next := p.point(f.Time, value(f, tr))
		line := canvas.NewLine(traceColors[tr])
		line.Position1 = prev
		line.Position2 = next
		line.StrokeWidth = 1.5
		r.objects = append(r.objects, line)
		prev = next
	}
}

// drawBars draws one bar per channel under the plot, leftmost channel first.
func (r *renderer) drawBars(p plot, normalized [sensor.Channels]int32) {
	top := p.y + p.h + marginBottom
	width := p.w / sensor.Channels
	for ch, n := range normalized {
		level := barLevel(n)
		shade := uint8(40 + 215*level)
		bar := canvas.NewRectangle(color.RGBA{R: shade, G: shade, B: shade, A: 255})
		bar.Move(fyne.NewPos(p.x+float32(ch)*width+2, top))
		bar.Resize(fyne.NewSize(width-4, barsHeight-4))
		r.objects = append(r.objects, bar)
	}
}

func (r *renderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *renderer) Destroy() {}
