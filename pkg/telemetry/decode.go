package telemetry

import (
	"bufio"
	"context"
	"io"
	"log"
	"time"
)

// Decode reads telemetry lines from r until it fails or ctx is done, stamping every frame with the
// receive time. Lines that are not frames are logged as device output. The channel is closed when
// reading stops.
func Decode(ctx context.Context, r io.Reader, bufSize int) <-chan Frame {
	if bufSize <= 0 {
		bufSize = 100
	}
	out := make(chan Frame, bufSize)

	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if !IsFrame(line) {
				log.Printf("device: %s", line)
				continue
			}

			f, err := ParseLine(line)
			if err != nil {
				log.Printf("Failed to parse telemetry line %q: %v", line, err)
				continue
			}
			f.Time = time.Now()

			select {
			case out <- f:
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
				log.Printf("Telemetry channel full, dropping frame")
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			log.Printf("Telemetry stream error: %v", err)
		}
	}()

	return out
}
