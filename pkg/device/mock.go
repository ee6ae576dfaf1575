package device

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/sample"
)

// Mock simulates a sensor array sitting in clean air and then exposed to a
// volatile. Counts start at the manual baseline table and rise by the
// configured gain over the exposure ramp. Environment fields drift with a
// first-order lag.
type Mock struct {
	cfg     config.MockConfig
	adcMax  float64
	sensors []string
	base    map[string]float64
	env     []string
	log     *slog.Logger

	samples   chan sample.RawSample
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Simulation state
	startTime   time.Time
	n           int
	temperature float64
	humidity    float64
}

// NewMock creates a simulated device for the sensors and environment fields of cfg.
func NewMock(cfg *config.Config, opts ...Option) *Mock {
	o := newOptions(opts)

	bufSize := cfg.Acquisition.BufferSize
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	base := make(map[string]float64, len(cfg.Sensors))
	for _, name := range cfg.SensorNames() {
		base[name] = math.Round(cfg.ADC.Max / 4)
		if v, ok := cfg.Baseline.Manual.Count(name); ok {
			base[name] = v
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:         cfg.Mock,
		adcMax:      cfg.ADC.Max,
		sensors:     cfg.SensorNames(),
		base:        base,
		env:         append([]string(nil), cfg.Environment...),
		log:         o.log.With("device", "mock"),
		samples:     make(chan sample.RawSample, bufSize),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		temperature: cfg.Mock.Temperature,
		humidity:    cfg.Mock.Humidity,
	}
}

// Connect starts generating samples.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return errors.New("already connected")
	}
	if m.ctx.Err() != nil {
		return errors.New("device closed")
	}

	m.connected = true
	m.startTime = time.Now()

	go m.generateSamples()

	m.log.Info("mock device connected", "sensors", len(m.sensors), "sample_rate", m.cfg.SampleRate)
	return nil
}

// Close stops the generator and waits for the samples channel to close.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	m.mu.Unlock()

	<-m.done
	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan sample.RawSample {
	return m.samples
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generateSamples() {
	defer close(m.done)
	defer close(m.samples)

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			s := m.generateSample()
			select {
			case m.samples <- s:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample advances the simulation by one sample period.
// Time is derived from the sample index so the series is reproducible.
func (m *Mock) generateSample() sample.RawSample {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := time.Duration(m.n) * m.cfg.SampleRate
	m.n++

	e := m.exposure(elapsed)

	s := sample.RawSample{
		Timestamp: m.startTime.Add(elapsed),
		Counts:    make(map[string]float64, len(m.sensors)),
		Env:       make(map[string]sample.Value, len(m.env)),
	}

	t := elapsed.Seconds()
	for i, name := range m.sensors {
		phase := float64(i + 1)
		noise := (math.Sin(t*1.7*phase) + math.Cos(t*0.61+phase)) * m.cfg.NoiseLevel * 0.5
		count := math.Round(m.base[name] + m.cfg.ExposureGain*e + noise)
		s.Counts[name] = math.Max(0, math.Min(count, m.adcMax))
	}

	// Environment follows the exposure with thermal lag
	alpha := 1.0
	if m.cfg.EnvironmentLag > 0 {
		alpha = math.Min(1, m.cfg.SampleRate.Seconds()/m.cfg.EnvironmentLag.Seconds())
	}
	m.temperature += alpha * (m.cfg.Temperature + 1.5*e - m.temperature)
	m.humidity += alpha * (m.cfg.Humidity + 5*e - m.humidity)

	for _, field := range m.env {
		switch f := strings.ToLower(field); {
		case strings.Contains(f, "temp"):
			s.Env[field] = sample.Some(m.temperature)
		case strings.Contains(f, "hum"):
			s.Env[field] = sample.Some(m.humidity)
		case strings.Contains(f, "press"):
			s.Env[field] = sample.Some(m.cfg.Pressure)
		default:
			s.Env[field] = sample.Undefined
		}
	}

	return s
}

// exposure returns the volatile level in [0, 1] at the given time.
func (m *Mock) exposure(elapsed time.Duration) float64 {
	if elapsed < m.cfg.ExposureAfter {
		return 0
	}
	if m.cfg.ExposureRamp <= 0 {
		return 1
	}
	return math.Min(1, float64(elapsed-m.cfg.ExposureAfter)/float64(m.cfg.ExposureRamp))
}
