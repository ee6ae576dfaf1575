package odor

import (
	"github.com/itohio/enose/pkg/baseline"
	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/sample"
)

// Epsilon pads every ratio denominator so a zero baseline never divides by zero.
const Epsilon = 1e-9

// SignedLinear is the relative deviation of v from mean. A rising signal is positive.
func SignedLinear(v, mean float64) float64 {
	return (v - mean) / (mean + Epsilon)
}

// Inverted is the relative drop of v below mean. Resistive sensors lose
// resistance as concentration rises, so a falling Rs is positive.
func Inverted(v, mean float64) float64 {
	return (mean - v) / (mean + Epsilon)
}

// ZScore measures the deviation of v in units of the background spread.
func ZScore(v, mean, std float64) float64 {
	return (v - mean) / (std + Epsilon)
}

// PercentChange is SignedLinear scaled to percent.
func PercentChange(v, mean float64) float64 {
	return (v - mean) / (mean + Epsilon) * 100
}

// Normalize maps a converted reading onto the ratio family of kind.
// ZScore against a reference without a spread is undefined.
func Normalize(kind config.RatioKind, v float64, ref baseline.Reference) sample.Value {
	switch kind {
	case config.SignedLinear:
		return sample.Some(SignedLinear(v, ref.Mean))
	case config.Inverted:
		return sample.Some(Inverted(v, ref.Mean))
	case config.PercentChange:
		return sample.Some(PercentChange(v, ref.Mean))
	case config.ZScore:
		std, ok := ref.StdDev.Get()
		if !ok {
			return sample.Undefined
		}
		return sample.Some(ZScore(v, ref.Mean, std))
	default:
		return sample.Undefined
	}
}
