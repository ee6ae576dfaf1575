// Package baseline derives per-sensor reference values that ratios are measured against.
package baseline

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/sample"
)

// Mode records how a Baseline was acquired.
type Mode string

const (
	FixedManual   Mode = "fixed-manual"
	LeadingWindow Mode = "computed-from-leading-window"
	// All is the fallback when the leading window is empty or longer than the data.
	All Mode = "computed-from-all"
)

// Reference is the zero point of one sensor.
type Reference struct {
	Mean   float64
	StdDev sample.Value // Population std; undefined for manual references
}

// Baseline holds references for every sensor. It is immutable once built.
type Baseline struct {
	mode    Mode
	samples int
	names   []string
	refs    map[string]Reference
}

// Mode returns the acquisition mode.
func (b Baseline) Mode() Mode { return b.mode }

// Samples returns how many samples the references were computed from (0 for manual).
func (b Baseline) Samples() int { return b.samples }

// Sensors returns sensor names in the order they were estimated.
func (b Baseline) Sensors() []string {
	return append([]string(nil), b.names...)
}

// Reference returns the reference for a sensor.
func (b Baseline) Reference(name string) (Reference, bool) {
	r, ok := b.refs[name]
	return r, ok
}

// Manual builds a fixed-manual baseline from raw counts, converted the same way
// as live samples.
func Manual(conv *sample.Converter, sensors []config.SensorConfig, counts config.ManualTable) (Baseline, error) {
	b := Baseline{
		mode: FixedManual,
		refs: make(map[string]Reference, len(sensors)),
	}
	for _, s := range sensors {
		raw, ok := counts.Count(s.Name)
		if !ok {
			return Baseline{}, fmt.Errorf("manual baseline: %w: %s", sample.ErrMissingSensor, s.Name)
		}
		b.names = append(b.names, s.Name)
		b.refs[s.Name] = Reference{Mean: conv.Count(s, raw)}
	}
	return b, nil
}

// Compute derives references from the first k samples of series.
// If the window would be empty (k <= 0) or the series is shorter than k, every
// sample is used instead. Spreads are population standard deviations.
// series must not be empty.
func Compute(series []sample.Sample, names []string, k int) Baseline {
	window := series
	mode := LeadingWindow
	if k <= 0 || len(series) < k {
		mode = All
	} else {
		window = series[:k]
	}

	b := Baseline{
		mode:    mode,
		samples: len(window),
		names:   append([]string(nil), names...),
		refs:    make(map[string]Reference, len(names)),
	}

	column := make([]float64, len(window))
	for _, name := range names {
		for i, s := range window {
			column[i] = s.Values[name]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		b.refs[name] = Reference{Mean: mean, StdDev: sample.Some(std)}
	}

	return b
}
