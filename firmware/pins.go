//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 50   // ADC read interval in milliseconds (all channels per read)
	NUM_SAMPLES        = 20   // Number of reads averaged into one output line
	OUTPUT_INTERVAL_MS = 1000 // One line per second, the cadence of the recorded tables

	// ADC configuration
	NUM_CHANNELS     = 5    // Sensor channels read per sample
	ADC_REFERENCE_MV = 5000 // Divider supply in millivolts
	ADC_RESOLUTION   = 10   // ADC resolution in bits (10-bit = 0-1023)

	// Serial configuration
	// Format "unix_micros,c0,c1,c2,c3,c4\n" is at most ~42 bytes per line.
	// One line per second needs ~420 baud; 115200 leaves ample headroom.
	UART_BAUD_RATE = 115200
)

// Sensor channels in configuration order: MQ2, MQ3, MQ9, MQ135, TGS2602.
var sensorPins = [NUM_CHANNELS]machine.Pin{
	machine.A0,
	machine.A1,
	machine.A2,
	machine.A3,
	machine.A4,
}
