package odor

import (
	"math"

	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/sample"
)

// Estimator converts a resistance ratio Rs/R0 into a concentration (ppm)
// through the inverse of the datasheet log-log curve log10(r) = M*log10(ppm) + B.
type Estimator struct {
	Slope     float64 // M
	Intercept float64 // B
	RatioMin  float64 // Validity floor; ratios at or below it are undefined
	RatioMax  float64 // Declared ceiling, not enforced
}

// NewEstimator creates an estimator from configuration.
func NewEstimator(cfg config.ConcentrationConfig) Estimator {
	return Estimator{
		Slope:     cfg.Slope,
		Intercept: cfg.Intercept,
		RatioMin:  cfg.RatioMin,
		RatioMax:  cfg.RatioMax,
	}
}

// Ratio returns Rs / (R0 + ε).
func (e Estimator) Ratio(rs, r0 float64) float64 {
	return rs / (r0 + Epsilon)
}

// PPM returns the concentration for ratio r, or Undefined when r is not above the floor.
func (e Estimator) PPM(r float64) sample.Value {
	if !(r > e.RatioMin) {
		return sample.Undefined
	}
	return sample.Some(math.Pow(10, (math.Log10(r)-e.Intercept)/e.Slope))
}

// Estimate combines Ratio and PPM.
func (e Estimator) Estimate(rs, r0 float64) sample.Value {
	return e.PPM(e.Ratio(rs, r0))
}
