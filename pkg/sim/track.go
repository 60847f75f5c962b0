package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/itohio/linetracer/pkg/config"
	"github.com/itohio/linetracer/pkg/sensor"
)

// Surface is what the simulated array is looking at.
type Surface int

const (
	SurfaceTrack      Surface = iota // A line wandering across the array
	SurfaceBackground                // Bare floor under every sensor
	SurfaceMark                      // Line material under every sensor
)

func (s Surface) String() string {
	switch s {
	case SurfaceBackground:
		return "background"
	case SurfaceMark:
		return "mark"
	default:
		return "track"
	}
}

var _ sensor.Producer = (*Track)(nil)

// Track simulates the free-running ADC scan over a track.
// A goroutine overwrites the Buffer at the configured sample rate with no handshake,
// the same way the transfer engine does on the robot.
type Track struct {
	cfg *config.MockConfig

	buf       sensor.Buffer
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}

	surface   Surface
	startTime time.Time
	scan      uint64
}

// NewTrack creates a simulated producer. A nil cfg uses config defaults.
func NewTrack(cfg *config.MockConfig) *Track {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	return &Track{cfg: cfg}
}

// Connect starts the simulated scan.
func (tr *Track) Connect() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.connected {
		return sensor.ErrAlreadyConnected
	}

	var ctx context.Context
	ctx, tr.cancel = context.WithCancel(context.Background())
	tr.connected = true
	tr.startTime = time.Now()
	tr.done = make(chan struct{})

	go tr.generate(ctx, tr.done)

	return nil
}

// Close stops the simulated scan and waits for the producer goroutine.
func (tr *Track) Close() error {
	tr.mu.Lock()
	if !tr.connected {
		tr.mu.Unlock()
		return nil
	}

	tr.cancel()
	tr.connected = false
	done := tr.done
	tr.mu.Unlock()

	<-done
	return nil
}

// IsConnected returns whether the simulation is running.
func (tr *Track) IsConnected() bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.connected
}

// Buffer returns the buffer refreshed by the simulation.
func (tr *Track) Buffer() *sensor.Buffer {
	return &tr.buf
}

// SetSurface switches what the array sees on the next scan.
func (tr *Track) SetSurface(s Surface) {
	tr.mu.Lock()
	tr.surface = s
	tr.mu.Unlock()
}

// generate refreshes the buffer until ctx is cancelled.
func (tr *Track) generate(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	rate := tr.cfg.SampleRate
	if rate <= 0 {
		rate = config.Default().Mock.SampleRate
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tr.buf.StoreScan(tr.generateScan(time.Now()))
		}
	}
}

// generateScan produces one simulated scan at time now.
func (tr *Track) generateScan(now time.Time) [sensor.Channels]uint16 {
	tr.mu.Lock()
	surface := tr.surface
	elapsed := now.Sub(tr.startTime)
	tr.scan++
	n := tr.scan
	tr.mu.Unlock()

	center := LineCenter(tr.cfg, elapsed)

	var out [sensor.Channels]uint16
	for ch := range out {
		noise := (math.Sin(float64(n)*0.7+float64(ch)) + math.Cos(float64(n)*1.3-float64(ch))) * tr.cfg.Noise * 0.5
		out[ch] = toRaw(Reflectance(tr.cfg, surface, center, ch) + noise)
	}
	return out
}

// LineCenter returns the simulated line position at elapsed, in sensor pitches from the
// array center. Positive is towards channel 7.
func LineCenter(cfg *config.MockConfig, elapsed time.Duration) float64 {
	if cfg.Period <= 0 {
		return 0
	}
	phase := 2 * math.Pi * elapsed.Seconds() / cfg.Period.Seconds()
	return cfg.Amplitude * math.Sin(phase)
}

// Reflectance returns the noiseless reading of channel ch for a line centered at center.
func Reflectance(cfg *config.MockConfig, surface Surface, center float64, ch int) float64 {
	switch surface {
	case SurfaceBackground:
		return cfg.Background
	case SurfaceMark:
		return cfg.Mark
	}

	pos := float64(ch) - float64(sensor.Channels-1)/2
	width := cfg.LineWidth
	if width <= 0 {
		width = 1
	}
	d := (pos - center) / width
	return cfg.Background + (cfg.Mark-cfg.Background)*math.Exp(-d*d)
}

func toRaw(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > sensor.MaxRaw {
		return sensor.MaxRaw
	}
	return uint16(v)
}
