package odor

import (
	"gonum.org/v1/gonum/floats"

	"github.com/itohio/enose/pkg/sample"
)

// Distance fuses per-sensor ratios into the Euclidean norm of the ratio vector.
// Any undefined component makes the distance undefined.
func Distance(ratios []sample.Value) sample.Value {
	vec := make([]float64, len(ratios))
	for i, r := range ratios {
		v, ok := r.Get()
		if !ok {
			return sample.Undefined
		}
		vec[i] = v
	}
	return sample.Some(floats.Norm(vec, 2))
}
