//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcs [NUM_CHANNELS]machine.ADC
	uart = machine.UART0

	// ADC averaging - running sums per channel
	sums  [NUM_CHANNELS]uint32
	count int

	// Timing
	lastADCRead time.Time
	lastOutput  time.Time
)

func main() {
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}

	for i, pin := range sensorPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastADCRead = time.Now()
	lastOutput = lastADCRead

	for {
		now := time.Now()

		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond && count < NUM_SAMPLES {
			readChannels()
			lastADCRead = now
		}

		if now.Sub(lastOutput) >= time.Duration(OUTPUT_INTERVAL_MS)*time.Millisecond {
			outputAveragedValues(now)
			for i := range sums {
				sums[i] = 0
			}
			count = 0
			lastOutput = now
		}

		time.Sleep(time.Millisecond)
	}
}

// readChannels samples every sensor once. Get returns a 16-bit scaled value,
// so it is shifted down to the configured resolution.
func readChannels() {
	for i := range adcs {
		sums[i] += uint32(adcs[i].Get() >> (16 - ADC_RESOLUTION))
	}
	count++
}

func outputAveragedValues(now time.Time) {
	n := uint32(count)
	if n == 0 {
		// Nothing read in this interval
		return
	}

	// Output format: "unix_micros,c0,c1,c2,c3,c4\n"
	// Example: "1234567890123,139,110,240,215,416\n"
	print(now.UnixMicro())
	for i := range sums {
		print(",")
		print((sums[i] + n/2) / n)
	}
	print("\n")
}
