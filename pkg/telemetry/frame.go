package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/itohio/linetracer/pkg/tracer"
)

// Prefix starts every telemetry line. Other lines on the same stream are device log output.
const Prefix = "T"

const fieldCount = 8 + 2*sensor.Channels

// ErrMalformed is returned by ParseLine for lines that are not telemetry frames.
var ErrMalformed = errors.New("malformed telemetry line")

// Frame is one diagnostic record of the control loop.
type Frame struct {
	Time       time.Time               `json:"time"` // Host receive time, zero on the robot
	Tick       uint32                  `json:"tick"`
	Elapsed    uint32                  `json:"elapsed"`
	Offset     int32                   `json:"offset"`
	Correction float32                 `json:"correction"`
	Integral   float32                 `json:"integral"`
	Left       int32                   `json:"left"`
	Right      int32                   `json:"right"`
	Raw        [sensor.Channels]uint16 `json:"raw"`
	Normalized [sensor.Channels]int32  `json:"normalized"`
}

// FromSnapshot converts a control loop snapshot into a Frame stamped with now.
func FromSnapshot(s tracer.Snapshot, now time.Time) Frame {
	return Frame{
		Time:       now,
		Tick:       s.Tick,
		Elapsed:    s.Elapsed,
		Offset:     s.Offset,
		Correction: s.Correction,
		Integral:   s.Integral,
		Left:       s.Left,
		Right:      s.Right,
		Raw:        s.Raw,
		Normalized: s.Normalized,
	}
}

// AppendLine appends the text form of f, without a line terminator, to dst.
//
// Format: T,tick,elapsed,offset,correction,integral,left,right,raw0..raw7,norm0..norm7
func AppendLine(dst []byte, f Frame) []byte {
	dst = append(dst, Prefix...)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(f.Tick), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(f.Elapsed), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(f.Offset), 10)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, float64(f.Correction), 'g', -1, 32)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, float64(f.Integral), 'g', -1, 32)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(f.Left), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(f.Right), 10)
	for _, v := range f.Raw {
		dst = append(dst, ',')
		dst = strconv.AppendUint(dst, uint64(v), 10)
	}
	for _, v := range f.Normalized {
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	return dst
}

// FormatLine returns the text form of f.
func FormatLine(f Frame) string {
	return string(AppendLine(make([]byte, 0, 128), f))
}

// IsFrame reports whether line looks like a telemetry frame.
func IsFrame(line string) bool {
	return strings.HasPrefix(line, Prefix+",")
}

// ParseLine parses the text form of a frame. The returned Frame has a zero Time.
func ParseLine(line string) (Frame, error) {
	var f Frame

	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != fieldCount {
		return f, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformed, fieldCount, len(fields))
	}
	if fields[0] != Prefix {
		return f, fmt.Errorf("%w: unexpected prefix %q", ErrMalformed, fields[0])
	}

	p := parser{fields: fields, pos: 1}
	f.Tick = uint32(p.unsigned(32))
	f.Elapsed = uint32(p.unsigned(32))
	f.Offset = int32(p.signed(32))
	f.Correction = p.decimal()
	f.Integral = p.decimal()
	f.Left = int32(p.signed(32))
	f.Right = int32(p.signed(32))
	for i := range f.Raw {
		f.Raw[i] = uint16(p.unsigned(16))
	}
	for i := range f.Normalized {
		f.Normalized[i] = int32(p.signed(32))
	}

	if p.err != nil {
		return Frame{}, p.err
	}
	return f, nil
}

// parser walks the fields of a line and keeps the first error.
type parser struct {
	fields []string
	pos    int
	err    error
}

func (p *parser) next() string {
	s := p.fields[p.pos]
	p.pos++
	return s
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: field %d: %w", ErrMalformed, p.pos-1, err)
	}
}

func (p *parser) unsigned(bits int) uint64 {
	v, err := strconv.ParseUint(p.next(), 10, bits)
	if err != nil {
		p.fail(err)
	}
	return v
}

func (p *parser) signed(bits int) int64 {
	v, err := strconv.ParseInt(p.next(), 10, bits)
	if err != nil {
		p.fail(err)
	}
	return v
}

func (p *parser) decimal() float32 {
	v, err := strconv.ParseFloat(p.next(), 32)
	if err != nil {
		p.fail(err)
	}
	return float32(v)
}
