package main

import (
	"context"
	"fmt"

	"go.bug.st/serial"

	"github.com/itohio/linetracer/pkg/adcbridge"
	"github.com/itohio/linetracer/pkg/config"
	"github.com/itohio/linetracer/pkg/telemetry"
	"github.com/itohio/linetracer/pkg/telemetry/mqttsink"
)

// source is a running telemetry feed. frames is closed once the feed stops after Close.
type source struct {
	name   string
	frames <-chan telemetry.Frame
	close  func()
}

func (s *source) Close() {
	s.close()
}

// openSerial reads telemetry lines printed by the robot firmware.
func openSerial(port string) (*source, error) {
	if port == "" {
		return nil, fmt.Errorf("no telemetry serial port configured")
	}

	conn, err := serial.Open(port, &serial.Mode{BaudRate: adcbridge.DefaultBaudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &source{
		name:   port,
		frames: telemetry.Decode(ctx, conn, 500),
		close: func() {
			cancel()
			// Unblocks the decoder's pending read.
			conn.Close()
		},
	}, nil
}

// openMQTT subscribes to frames published by the host runner.
func openMQTT(cfg *config.TelemetryConfig) (*source, error) {
	if cfg.MQTTBroker == "" {
		return nil, fmt.Errorf("no MQTT broker configured")
	}

	client, err := mqttsink.Dial(cfg.MQTTBroker, cfg.MQTTClientID+"-monitor")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	in, err := mqttsink.Subscribe(ctx, client, cfg.MQTTTopic, 500)
	if err != nil {
		cancel()
		client.Disconnect(250)
		return nil, err
	}

	// The subscription channel is never closed by paho; forward it so Close can end the feed.
	out := make(chan telemetry.Frame, 500)
	go forward(ctx, in, out)

	return &source{
		name:   cfg.MQTTBroker + "/" + cfg.MQTTTopic,
		frames: out,
		close: func() {
			cancel()
			client.Disconnect(250)
		},
	}, nil
}

func forward(ctx context.Context, in <-chan telemetry.Frame, out chan<- telemetry.Frame) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-in:
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}
}
