package adcbridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/itohio/linetracer/pkg/sensor"
	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate the ADC bridge firmware uses.
const DefaultBaudRate = 115200

var _ sensor.Producer = (*Serial)(nil)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial receives complete scans from an ADC bridge MCU and stores them into its Buffer.
// Each line carries one scan: eight comma-separated 12-bit readings in channel order.
type Serial struct {
	port     string
	baudRate int

	buf       sensor.Buffer
	conn      serial.Port
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}
}

// NewSerial creates a Serial producer for the given port.
func NewSerial(port string, baudRate int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}

	return result, nil
}

// Connect opens the serial port and starts the reader goroutine.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return sensor.ErrAlreadyConnected
	}

	port, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.conn = port
	s.connected = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})

	go s.readScans(s.ctx, port, s.done)

	return nil
}

// Close stops the reader and closes the port. The Buffer keeps its last values.
func (s *Serial) Close() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}

	s.cancel()
	if err := s.conn.Close(); err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	s.conn = nil
	s.connected = false
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

// IsConnected returns whether the port is open.
func (s *Serial) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Buffer returns the buffer refreshed by this producer.
func (s *Serial) Buffer() *sensor.Buffer {
	return &s.buf
}

// readScans reads lines until the context is cancelled or the port fails.
func (s *Serial) readScans(ctx context.Context, rd io.Reader, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readScans: %v", r)
		}
	}()

	consumeScans(ctx, rd, &s.buf)
}

// consumeScans parses scan lines from r into buf until ctx is done or r is exhausted.
func consumeScans(ctx context.Context, r io.Reader, buf *sensor.Buffer) {
	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				log.Printf("Error reading from serial port: %v", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		scan, err := sensor.ParseScan(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}
		buf.StoreScan(scan)
	}
}
