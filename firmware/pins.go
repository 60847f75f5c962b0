//go:build tinygo

package main

import "machine"

const (
	// Pause between completed scans, the conversions themselves take ~8*40us
	SAMPLE_INTERVAL_US = 250

	// ADC configuration. Stored values are 0-4095 regardless of what the driver scales to.
	ADC_REFERENCE_MV = 3300
	ADC_RESOLUTION   = 12
	ADC_SHIFT        = 16 - ADC_RESOLUTION

	// Control configuration, the loop period yields to the sampler goroutine every iteration
	LOOP_PERIOD_MS  = 1
	NEUTRAL_SPEED   = 6000
	DUTY_MAX        = 24000
	TELEMETRY_EVERY = 100

	// Motor PWM, 20kHz keeps the bridges out of the audible range
	PWM_PERIOD_NS = 1e9 / 20000

	// Serial configuration
	// Telemetry line: "T,tick,elapsed,offset,correction,integral,left,right,8 raw,8 normalized\n"
	// is ~140 bytes max. 10 lines/sec at the default rate is 1,400 bytes/sec, well under 115200 8N1.
	UART_BAUD_RATE = 115200

	// Operator button, active high with the internal pull-down
	PIN_BUTTON = machine.D2
)

// Sensor array in channel order. Channel 0 sits on the robot's right so the negative default gains steer onto the line.
var PIN_SENSORS = [8]machine.Pin{
	machine.A0, machine.A1, machine.A2, machine.A3,
	machine.A4, machine.A5, machine.A6, machine.A7,
}

// H-bridge lines. Each pair must sit on a single timer.
var (
	PIN_LEFT_CW   = machine.D4
	PIN_LEFT_CCW  = machine.D5
	PIN_RIGHT_CW  = machine.D6
	PIN_RIGHT_CCW = machine.D7

	PWM_LEFT  = machine.TCC0
	PWM_RIGHT = machine.TCC1
)
