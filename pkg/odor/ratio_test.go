package odor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/enose/pkg/baseline"
	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/sample"
)

func TestRatios_AtBaselineAreZero(t *testing.T) {
	for _, mean := range []float64{0, 0.679, 14.59, 1660} {
		assert.Equal(t, 0.0, SignedLinear(mean, mean))
		assert.Equal(t, 0.0, Inverted(mean, mean))
		assert.Equal(t, 0.0, PercentChange(mean, mean))
		assert.Equal(t, 0.0, ZScore(mean, mean, 0.1))
	}
}

func TestRatios_Sign(t *testing.T) {
	// A voltage-linear sensor rising above baseline is positive.
	assert.Greater(t, SignedLinear(1.2, 1.0), 0.0)
	assert.Less(t, SignedLinear(0.8, 1.0), 0.0)

	// A resistive sensor whose resistance drops below baseline is positive.
	assert.Greater(t, Inverted(12, 14.6), 0.0)
	assert.Less(t, Inverted(16, 14.6), 0.0)

	assert.Greater(t, ZScore(1.1, 1.0, 0.05), 0.0)
	assert.Greater(t, PercentChange(1.1, 1.0), 0.0)
}

func TestRatios_Values(t *testing.T) {
	assert.InDelta(t, 0.5, SignedLinear(1.5, 1.0), 1e-9)
	assert.InDelta(t, 0.25, Inverted(7.5, 10), 1e-9)
	assert.InDelta(t, 2.0, ZScore(1.2, 1.0, 0.1), 1e-6)
	assert.InDelta(t, 50.0, PercentChange(1.5, 1.0), 1e-6)
}

func TestRatios_ZeroDenominatorIsFinite(t *testing.T) {
	for _, v := range []float64{
		SignedLinear(1, 0),
		Inverted(1, 0),
		ZScore(1, 0, 0),
		PercentChange(1, 0),
	} {
		assert.False(t, math.IsInf(v, 0))
		assert.False(t, math.IsNaN(v))
	}
	assert.InDelta(t, 1e9, SignedLinear(1, 0), 1)
}

func TestNormalize(t *testing.T) {
	withSpread := baseline.Reference{Mean: 1.0, StdDev: sample.Some(0.5)}
	noSpread := baseline.Reference{Mean: 1.0}

	tests := []struct {
		name    string
		kind    config.RatioKind
		ref     baseline.Reference
		v       float64
		want    float64
		defined bool
	}{
		{name: "signed linear", kind: config.SignedLinear, ref: noSpread, v: 2, want: 1, defined: true},
		{name: "inverted", kind: config.Inverted, ref: noSpread, v: 0.5, want: 0.5, defined: true},
		{name: "percent", kind: config.PercentChange, ref: noSpread, v: 1.1, want: 10, defined: true},
		{name: "z-score", kind: config.ZScore, ref: withSpread, v: 2, want: 2, defined: true},
		{name: "z-score without spread", kind: config.ZScore, ref: noSpread, v: 2, defined: false},
		{name: "unknown kind", kind: "cubic", ref: withSpread, v: 2, defined: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.kind, tt.v, tt.ref)
			v, ok := got.Get()
			require.Equal(t, tt.defined, ok)
			if ok {
				assert.InDelta(t, tt.want, v, 1e-6)
			}
		})
	}
}
