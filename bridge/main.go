//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/linetracer/pkg/sensor"
)

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 1 // One completed scan per interval
	ADC_REFERENCE_MV   = 3300
	ADC_RESOLUTION     = 12
	ADC_SHIFT          = 16 - ADC_RESOLUTION

	// "4095,4095,4095,4095,4095,4095,4095,4095\n" is 40 bytes, 1000 scans/sec is 40,000 bytes/sec.
	// That only fits the USB CDC port, a hardware UART would need to drop the rate.
	UART_BAUD_RATE = 115200
)

// Sensor array in channel order.
var PIN_SENSORS = [sensor.Channels]machine.Pin{
	machine.A0, machine.A1, machine.A2, machine.A3,
	machine.A4, machine.A5, machine.A6, machine.A7,
}

var (
	uart = machine.Serial
	adcs [sensor.Channels]machine.ADC
)

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

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

	var (
		scan     [sensor.Channels]uint16
		line     = make([]byte, 0, 48)
		lastScan = time.Now()
	)
	for {
		now := time.Now()
		if now.Sub(lastScan) >= SAMPLE_INTERVAL_MS*time.Millisecond {
			for i := range adcs {
				scan[i] = adcs[i].Get() >> ADC_SHIFT
			}
			line = append(sensor.AppendScan(line[:0], scan), '\n')
			uart.Write(line)
			lastScan = now
		}

		time.Sleep(100 * time.Microsecond)
	}
}
