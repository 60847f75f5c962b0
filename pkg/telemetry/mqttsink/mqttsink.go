// Package mqttsink publishes telemetry frames to an MQTT broker as JSON and reads them back.
package mqttsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/itohio/linetracer/pkg/telemetry"
)

// DefaultQoS is at-most-once: a lost frame is superseded by the next one.
const DefaultQoS byte = 0

// Sink publishes frames on a single topic.
type Sink struct {
	client mqtt.Client
	topic  string
}

var _ telemetry.Sink = (*Sink)(nil)

// Connect dials broker and returns a Sink publishing to topic.
func Connect(broker, clientID, topic string) (*Sink, error) {
	client, err := Dial(broker, clientID)
	if err != nil {
		return nil, err
	}
	return New(client, topic), nil
}

// Dial connects an MQTT client to broker.
func Dial(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("mqtt: connected to %s as %s", broker, clientID)
	return client, nil
}

// New creates a Sink on an already connected client.
func New(client mqtt.Client, topic string) *Sink {
	return &Sink{client: client, topic: topic}
}

// Publish sends f as JSON. Frames with non-finite values cannot be encoded and are rejected.
func (s *Sink) Publish(f telemetry.Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("mqtt encode frame: %w", err)
	}

	token := s.client.Publish(s.topic, DefaultQoS, false, payload)
	if !token.WaitTimeout(time.Second) {
		return fmt.Errorf("mqtt publish %s: timed out", s.topic)
	}
	return token.Error()
}

// Close disconnects the client.
func (s *Sink) Close() {
	s.client.Disconnect(250)
}

// Subscribe delivers frames published on topic until ctx is done.
// Payloads that do not decode are logged and skipped; frames are dropped when the channel is full.
func Subscribe(ctx context.Context, client mqtt.Client, topic string, bufSize int) (<-chan telemetry.Frame, error) {
	if bufSize <= 0 {
		bufSize = 100
	}
	out := make(chan telemetry.Frame, bufSize)

	token := client.Subscribe(topic, DefaultQoS, func(_ mqtt.Client, msg mqtt.Message) {
		var f telemetry.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("mqtt: frame unmarshal error: %v", err)
			return
		}
		if f.Time.IsZero() {
			f.Time = time.Now()
		}
		select {
		case out <- f:
		default:
			log.Printf("mqtt: frame channel full, dropping frame")
		}
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("mqtt subscribe %s: %w", topic, token.Error())
	}
	log.Printf("mqtt: subscribed to %s", topic)

	go func() {
		<-ctx.Done()
		client.Unsubscribe(topic).WaitTimeout(time.Second)
	}()

	return out, nil
}
