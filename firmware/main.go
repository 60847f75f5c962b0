//go:build tinygo

//go:generate tinygo flash -target=grandcentral-m4

package main

import (
	"context"
	"machine"
	"time"

	"github.com/itohio/linetracer/pkg/button"
	"github.com/itohio/linetracer/pkg/motor"
	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/itohio/linetracer/pkg/telemetry"
	"github.com/itohio/linetracer/pkg/tick"
	"github.com/itohio/linetracer/pkg/tracer"
)

var (
	uart = machine.Serial

	adcs    [sensor.Channels]machine.ADC
	samples sensor.Buffer

	lineBuf [160]byte
)

// pinButton reads the operator button straight from its GPIO.
type pinButton machine.Pin

func (p pinButton) State() button.State {
	if machine.Pin(p).Get() {
		return button.Pressed
	}
	return button.Released
}

// pwm is the part of a TinyGo timer the H-bridge needs.
type pwm interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Set(channel uint8, value uint32)
	Top() uint32
}

// pwmLine scales a duty in [0, DUTY_MAX] to the timer's counter range.
func pwmLine(p pwm, pin machine.Pin) motor.Channel {
	ch, err := p.Channel(pin)
	if err != nil {
		println("pwm channel:", err.Error())
	}
	return motor.ChannelFunc(func(v uint32) {
		p.Set(ch, uint32(uint64(v)*uint64(p.Top())/DUTY_MAX))
	})
}

func bridge(p pwm, cw, ccw machine.Pin) *motor.HBridge {
	if err := p.Configure(machine.PWMConfig{Period: PWM_PERIOD_NS}); err != nil {
		println("pwm configure:", err.Error())
	}
	return &motor.HBridge{CW: pwmLine(p, cw), CCW: pwmLine(p, ccw), Max: DUTY_MAX}
}

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	// Configure ADC pins
	machine.InitADC()
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i, pin := range PIN_SENSORS {
		pin.Configure(machine.PinConfig{Mode: machine.PinAnalog})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	PIN_BUTTON.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})

	drive := motor.NewDrive(
		bridge(PWM_LEFT, PIN_LEFT_CW, PIN_LEFT_CCW),
		bridge(PWM_RIGHT, PIN_RIGHT_CW, PIN_RIGHT_CCW),
	)

	go sample()

	settings := tracer.DefaultSettings()
	settings.NeutralSpeed = NEUTRAL_SPEED
	settings.DutyMax = DUTY_MAX
	settings.Period = LOOP_PERIOD_MS
	settings.UpdateEvery = TELEMETRY_EVERY

	tr := tracer.New(&samples, pinButton(PIN_BUTTON), tick.NewSystem(), drive, settings)
	tr.OnUpdate(emit)

	ctx := context.Background()
	bounds, err := tr.Calibrate(ctx)
	if err != nil {
		println("calibration:", err.Error())
		return
	}
	for ch := range sensor.Channels {
		println("bounds", ch, bounds.Min[ch], bounds.Max[ch])
	}

	tr.Run(ctx)
}

// sample converts every channel in order and publishes each completed scan.
func sample() {
	var scan [sensor.Channels]uint16
	for {
		for i := range adcs {
			scan[i] = adcs[i].Get() >> ADC_SHIFT
		}
		samples.StoreScan(scan)
		time.Sleep(SAMPLE_INTERVAL_US * time.Microsecond)
	}
}

// emit writes a telemetry line. The robot has no wall clock, so frames carry a zero time.
func emit(s tracer.Snapshot) {
	line := telemetry.AppendLine(lineBuf[:0], telemetry.FromSnapshot(s, time.Time{}))
	line = append(line, '\n')
	uart.Write(line)
}
