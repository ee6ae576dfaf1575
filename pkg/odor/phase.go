package odor

import (
	"gonum.org/v1/gonum/stat"

	"github.com/itohio/enose/pkg/sample"
)

// Phase tags a sample as part of the background or the measurement.
type Phase string

const (
	Background  Phase = "background"
	Measurement Phase = "measurement"
)

// Label tags the first k of n samples as background and the rest as measurement.
func Label(n, k int) []Phase {
	phases := make([]Phase, n)
	for i := range phases {
		if i < k {
			phases[i] = Background
		} else {
			phases[i] = Measurement
		}
	}
	return phases
}

// EnvironmentReference computes the background mean of each environment field.
// Rows tagged Background are used; if there are none, every row is used.
// Undefined readings are skipped, and a field with no readings stays undefined.
func EnvironmentReference(raw []sample.RawSample, phases []Phase, fields []string) map[string]sample.Value {
	rows := make([]int, 0, len(raw))
	for i, p := range phases {
		if p == Background {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		for i := range raw {
			rows = append(rows, i)
		}
	}

	ref := make(map[string]sample.Value, len(fields))
	values := make([]float64, 0, len(rows))
	for _, field := range fields {
		values = values[:0]
		for _, i := range rows {
			if v, ok := raw[i].Env[field].Get(); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			ref[field] = sample.Undefined
			continue
		}
		ref[field] = sample.Some(stat.Mean(values, nil))
	}
	return ref
}

// Correct returns value minus the background mean for every field in ref.
func Correct(raw sample.RawSample, ref map[string]sample.Value) map[string]sample.Value {
	out := make(map[string]sample.Value, len(ref))
	for field, mean := range ref {
		v, ok := raw.Env[field].Get()
		m, mok := mean.Get()
		if !ok || !mok {
			out[field] = sample.Undefined
			continue
		}
		out[field] = sample.Some(v - m)
	}
	return out
}
