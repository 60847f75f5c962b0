package sensor

import "errors"

// Channels is the number of reflectance sensors sampled per scan.
const Channels = 8

// MaxRaw is the largest value a 12-bit conversion can produce.
const MaxRaw = 4095

var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// Source is the read side of the sample buffer.
// Read never blocks and returns the most recently completed acquisition for channel.
type Source interface {
	Read(channel int) uint16
}

// Producer continuously refreshes a Buffer from hardware or a simulation.
type Producer interface {
	Connect() error
	Close() error
	IsConnected() bool
	Buffer() *Buffer
}

var _ Source = (*Buffer)(nil)
