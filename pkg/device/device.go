// Package device acquires raw gas-sensor samples from the MCU over a serial
// line, or from a simulated sensor array.
package device

import (
	"io"
	"log/slog"

	"github.com/itohio/enose/pkg/sample"
)

const (
	// DefaultBaudRate is the standard baud rate of the ADC poller.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
)

// Device defines the interface for sample sources (real or mocked).
// The samples channel is closed once the device is closed or the source ends.
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan sample.RawSample
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)
)

type options struct {
	log *slog.Logger
}

// Option configures a device.
type Option func(*options)

// WithLogger sets the logger used for read and parse failures.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func newOptions(opts []Option) options {
	o := options{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
