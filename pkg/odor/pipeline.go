// Package odor turns converted gas-sensor readings into sign-consistent ratios,
// the fused odor distance, its smoothed series and a concentration estimate.
package odor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/itohio/enose/pkg/baseline"
	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/sample"
)

// ErrNoSamples is returned when the pipeline is given an empty dataset.
var ErrNoSamples = errors.New("no samples")

// Derived holds everything computed for one delivered sample.
type Derived struct {
	Index         int    // Position in the delivered sequence
	Row           int    // Position in the input sequence
	Phase         Phase
	Raw           sample.RawSample
	Converted     map[string]float64
	Ratios        map[string]sample.Value
	Distance      sample.Value
	Smoothed      sample.Value
	Concentration sample.Value // ppm of the configured log-curve sensor
	Corrections   map[string]sample.Value
}

// Result is the output of a pipeline run.
type Result struct {
	Baseline   baseline.Baseline
	Background map[string]sample.Value // Environment reference means
	Samples    []Derived
}

// Distances returns the distance series of the delivered samples.
func (r *Result) Distances() []sample.Value {
	out := make([]sample.Value, len(r.Samples))
	for i, d := range r.Samples {
		out[i] = d.Distance
	}
	return out
}

// SmoothedDistances returns the smoothed distance series of the delivered samples.
func (r *Result) SmoothedDistances() []sample.Value {
	out := make([]sample.Value, len(r.Samples))
	for i, d := range r.Samples {
		out[i] = d.Smoothed
	}
	return out
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used to report baseline acquisition.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// Pipeline is a configured batch transform. It keeps no state between runs.
type Pipeline struct {
	cfg       *config.Config
	conv      *sample.Converter
	estimator Estimator
	fused     []string
	log       *slog.Logger
}

// New validates cfg and creates a pipeline.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		conv:      sample.NewConverter(cfg),
		estimator: NewEstimator(cfg.Concentration),
		fused:     cfg.FusedSensors(),
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run transforms raw samples into derived samples.
// Pass one converts every row and estimates the baseline and environment
// reference; pass two derives per-row values against those fixed statistics;
// the delivered distance series is then smoothed as a whole.
func (p *Pipeline) Run(raw []sample.RawSample) (*Result, error) {
	if len(raw) == 0 {
		return nil, ErrNoSamples
	}

	converted, err := p.conv.ConvertAll(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert samples: %w", err)
	}

	k := p.cfg.Baseline.Window
	phases := Label(len(raw), k)

	base, err := p.baseline(converted, k)
	if err != nil {
		return nil, err
	}
	p.logBaseline(base)

	env := EnvironmentReference(raw, phases, p.cfg.Environment)

	var concSensor string
	if p.cfg.Concentration.Sensor != "" {
		s, _ := p.cfg.Sensor(p.cfg.Concentration.Sensor)
		concSensor = s.Name
	}

	result := &Result{
		Baseline:   base,
		Background: env,
		Samples:    make([]Derived, 0, len(raw)),
	}

	for i, s := range converted {
		if p.cfg.Phase.ExcludeBackground && phases[i] == Background {
			continue
		}

		d := Derived{
			Index:       len(result.Samples),
			Row:         i,
			Phase:       phases[i],
			Raw:         raw[i],
			Converted:   s.Values,
			Ratios:      make(map[string]sample.Value, len(p.cfg.Sensors)),
			Corrections: Correct(raw[i], env),
		}

		for _, sensor := range p.cfg.Sensors {
			ref, _ := base.Reference(sensor.Name)
			d.Ratios[sensor.Name] = Normalize(sensor.Ratio, s.Values[sensor.Name], ref)
		}

		vec := make([]sample.Value, len(p.fused))
		for j, name := range p.fused {
			vec[j] = d.Ratios[name]
		}
		d.Distance = Distance(vec)

		if concSensor != "" {
			r0, _ := base.Reference(concSensor)
			d.Concentration = p.estimator.Estimate(s.Values[concSensor], r0.Mean)
		}

		result.Samples = append(result.Samples, d)
	}

	if len(result.Samples) == 0 {
		p.log.Warn("no measurement samples after the background window",
			"rows", len(raw), "background", k)
	}

	smoothed := Smooth(result.Distances(), p.cfg.Smoothing.Window)
	for i := range result.Samples {
		result.Samples[i].Smoothed = smoothed[i]
	}

	return result, nil
}

func (p *Pipeline) baseline(converted []sample.Sample, k int) (baseline.Baseline, error) {
	if p.cfg.Baseline.Mode == config.BaselineManual {
		b, err := baseline.Manual(p.conv, p.cfg.Sensors, p.cfg.Baseline.Manual)
		if err != nil {
			return baseline.Baseline{}, fmt.Errorf("failed to build baseline: %w", err)
		}
		return b, nil
	}

	b := baseline.Compute(converted, p.cfg.SensorNames(), k)
	if b.Mode() == baseline.All {
		p.log.Warn("background window unavailable, using the whole dataset as baseline",
			"window", k, "rows", len(converted))
	}
	return b, nil
}

func (p *Pipeline) logBaseline(b baseline.Baseline) {
	attrs := []any{"mode", string(b.Mode()), "samples", b.Samples()}
	for _, name := range b.Sensors() {
		ref, _ := b.Reference(name)
		attrs = append(attrs, name, ref.Mean)
	}
	p.log.Info("baseline ready", attrs...)
}
