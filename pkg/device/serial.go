package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/sample"
)

// Serial reads samples streamed by the MCU ADC poller.
//
// Each line is `unix_micros,<count per sensor...>[,<env field...>]` with
// sensors and environment fields in configuration order.
type Serial struct {
	port     string
	baudRate int
	sensors  []string
	env      []string
	log      *slog.Logger

	conn      serial.Port
	samples   chan sample.RawSample
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// NewSerial creates a serial source using the port, sensors and environment
// fields of cfg.
func NewSerial(cfg *config.Config, opts ...Option) *Serial {
	o := newOptions(opts)

	baudRate := cfg.Serial.BaudRate
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	bufSize := cfg.Acquisition.BufferSize
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     cfg.Serial.Port,
		baudRate: baudRate,
		sensors:  cfg.SensorNames(),
		env:      append([]string(nil), cfg.Environment...),
		log:      o.log.With("port", cfg.Serial.Port),
		samples:  make(chan sample.RawSample, bufSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns the names of available serial ports.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return errors.New("already connected")
	}
	if d.ctx.Err() != nil {
		return errors.New("device closed")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.read(port)

	return nil
}

// Close closes the port and waits for the reader to stop.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	var err error
	if d.conn != nil {
		err = d.conn.Close()
		d.conn = nil
	}
	d.connected = false
	d.mu.Unlock()

	<-d.done

	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Samples returns the channel for reading samples.
func (d *Serial) Samples() <-chan sample.RawSample {
	return d.samples
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// read parses lines from r until it ends or the device is closed.
// Malformed lines are logged and skipped.
func (d *Serial) read(r io.Reader) {
	defer close(d.done)
	defer close(d.samples)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		s, err := parseLine(line, d.sensors, d.env)
		if err != nil {
			d.log.Warn("skipping malformed line", "line", line, "error", err)
			continue
		}

		select {
		case d.samples <- s:
		case <-d.ctx.Done():
			return
		default:
			d.log.Warn("samples channel full, dropping sample")
		}
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		d.log.Error("serial read failed", "error", err)
	}
}

// parseLine parses one poller line into a RawSample.
// Counts outside the ADC range are kept; conversion clamps them.
func parseLine(line string, sensors, env []string) (sample.RawSample, error) {
	parts := strings.Split(line, ",")
	withEnv := len(env) > 0 && len(parts) == 1+len(sensors)+len(env)
	if len(parts) != 1+len(sensors) && !withEnv {
		return sample.RawSample{}, fmt.Errorf("invalid line format: expected %d or %d comma-separated values, got %d",
			1+len(sensors), 1+len(sensors)+len(env), len(parts))
	}

	micros, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return sample.RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	s := sample.RawSample{
		Timestamp: time.UnixMicro(micros),
		Counts:    make(map[string]float64, len(sensors)),
		Env:       make(map[string]sample.Value, len(env)),
	}

	for i, name := range sensors {
		count, err := strconv.ParseInt(strings.TrimSpace(parts[1+i]), 10, 32)
		if err != nil {
			return sample.RawSample{}, fmt.Errorf("invalid %s count: %w", name, err)
		}
		s.Counts[name] = float64(count)
	}

	for i, field := range env {
		if !withEnv {
			s.Env[field] = sample.Undefined
			continue
		}
		cell := strings.TrimSpace(parts[1+len(sensors)+i])
		if cell == "" || strings.EqualFold(cell, "nan") {
			s.Env[field] = sample.Undefined
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return sample.RawSample{}, fmt.Errorf("invalid %s: %w", field, err)
		}
		s.Env[field] = sample.Some(v)
	}

	return s, nil
}
