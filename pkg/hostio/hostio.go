// Package hostio drives the robot from a Linux board through periph.io GPIO.
package hostio

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/itohio/linetracer/pkg/button"
	"github.com/itohio/linetracer/pkg/config"
	"github.com/itohio/linetracer/pkg/motor"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the periph host drivers once.
func Init() error {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			initErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return initErr
}

func lookup(name string) (gpio.PinIO, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %q not found", name)
	}
	return p, nil
}

// Button is an active-high push button with a pull-down.
type Button struct {
	pin gpio.PinIn
}

var _ button.Button = (*Button)(nil)

// NewButton configures pin as a pulled-down input.
func NewButton(pin gpio.PinIn) (*Button, error) {
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button %s: %w", pin, err)
	}
	return &Button{pin: pin}, nil
}

// OpenButton looks up a pin by name and configures it as the operator button.
func OpenButton(name string) (*Button, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, fmt.Errorf("button: %w", err)
	}
	return NewButton(p)
}

func (b *Button) State() button.State {
	if b.pin.Read() == gpio.High {
		return button.Pressed
	}
	return button.Released
}

// PWMLine is one H-bridge input driven by hardware PWM. Values are in duty units up to max.
type PWMLine struct {
	pin  gpio.PinOut
	freq physic.Frequency
	max  uint32
	last uint32
	set  bool
}

var _ motor.Channel = (*PWMLine)(nil)

// NewPWMLine wraps pin. The line starts low.
func NewPWMLine(pin gpio.PinOut, freq physic.Frequency, max uint32) (*PWMLine, error) {
	if max == 0 {
		return nil, fmt.Errorf("pwm %s: zero duty range", pin)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("pwm %s: %w", pin, err)
	}
	return &PWMLine{pin: pin, freq: freq, max: max}, nil
}

// OpenPWMLine looks up a pin by name and wraps it.
func OpenPWMLine(name string, freq physic.Frequency, max uint32) (*PWMLine, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, fmt.Errorf("pwm: %w", err)
	}
	return NewPWMLine(p, freq, max)
}

// Duty scales v in [0, max] to a periph duty cycle.
func Duty(v, max uint32) gpio.Duty {
	if v >= max {
		return gpio.DutyMax
	}
	return gpio.Duty(uint64(v) * uint64(gpio.DutyMax) / uint64(max))
}

// Set applies v. Repeated values are not written again. Failures are logged, never returned,
// so the control loop keeps running.
func (l *PWMLine) Set(v uint32) {
	if l.set && v == l.last {
		return
	}
	l.last, l.set = v, true

	var err error
	if v == 0 {
		err = l.pin.Out(gpio.Low)
	} else {
		err = l.pin.PWM(Duty(v, l.max), l.freq)
	}
	if err != nil {
		log.Printf("hostio: pwm %s: %v", l.pin, err)
	}
}

// OpenDrive opens the four H-bridge lines named in cfg.
func OpenDrive(cfg config.HostIOConfig, dutyMax int32) (*motor.Drive, error) {
	freq := physic.Frequency(cfg.PWMFrequency) * physic.Hertz

	names := []string{cfg.LeftCWPin, cfg.LeftCCWPin, cfg.RightCWPin, cfg.RightCCWPin}
	lines := make([]*PWMLine, len(names))
	for i, name := range names {
		l, err := OpenPWMLine(name, freq, uint32(dutyMax))
		if err != nil {
			return nil, err
		}
		lines[i] = l
	}

	return motor.NewDrive(
		&motor.HBridge{CW: lines[0], CCW: lines[1], Max: dutyMax},
		&motor.HBridge{CW: lines[2], CCW: lines[3], Max: dutyMax},
	), nil
}
