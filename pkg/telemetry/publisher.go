package telemetry

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
)

// Sink receives frames from a Publisher.
type Sink interface {
	Publish(f Frame) error
}

// Publisher decouples the control loop from slow sinks.
// Offer never blocks; frames that do not fit in the queue are dropped.
type Publisher struct {
	frames  chan Frame
	sinks   []Sink
	dropped atomic.Uint64
}

// NewPublisher creates a Publisher with a queue of size frames.
func NewPublisher(size int, sinks ...Sink) *Publisher {
	if size <= 0 {
		size = 16
	}
	return &Publisher{
		frames: make(chan Frame, size),
		sinks:  sinks,
	}
}

// Offer queues f for delivery and reports whether it was accepted.
func (p *Publisher) Offer(f Frame) bool {
	select {
	case p.frames <- f:
		return true
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Printf("telemetry: queue full, %d frames dropped", n)
		}
		return false
	}
}

// Dropped returns the number of frames Offer rejected.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Run delivers queued frames to every sink until ctx is done. Sink errors are logged.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-p.frames:
			for _, s := range p.sinks {
				if err := s.Publish(f); err != nil {
					log.Printf("telemetry: publish failed: %v", err)
				}
			}
		}
	}
}

// LineWriter is a Sink writing text lines to w.
type LineWriter struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

var _ Sink = (*LineWriter)(nil)

// NewLineWriter creates a LineWriter.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w, buf: make([]byte, 0, 160)}
}

func (l *LineWriter) Publish(f Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = AppendLine(l.buf[:0], f)
	l.buf = append(l.buf, '\n')
	_, err := l.w.Write(l.buf)
	return err
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(f Frame) error

func (fn SinkFunc) Publish(f Frame) error { return fn(f) }
