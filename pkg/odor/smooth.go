package odor

import (
	"gonum.org/v1/gonum/floats"

	"github.com/itohio/enose/pkg/sample"
)

// Smooth applies a centered moving average of the given width to a whole series.
//
// The window for row i spans [i-w/2, i-w/2+w-1], the same alignment as a
// centered pandas rolling mean. Rows closer than w/2 to either end have no
// full support and are undefined, as is any row whose window holds an
// undefined value. A width of 1 or less returns a copy of the series.
func Smooth(series []sample.Value, window int) []sample.Value {
	out := make([]sample.Value, len(series))
	if window <= 1 {
		copy(out, series)
		return out
	}

	half := window / 2
	buf := make([]float64, window)
	for i := range series {
		if i < half || i > len(series)-1-half {
			continue
		}
		start := i - half
		defined := true
		for j := 0; j < window; j++ {
			v, ok := series[start+j].Get()
			if !ok {
				defined = false
				break
			}
			buf[j] = v
		}
		if defined {
			out[i] = sample.Some(floats.Sum(buf) / float64(window))
		}
	}

	return out
}
