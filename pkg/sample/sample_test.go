package sample

import (
	"math"
	"testing"
	"time"

	"github.com/itohio/enose/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		want float64
	}{
		{name: "zero", raw: 0, want: 1},
		{name: "negative", raw: -5, want: 1},
		{name: "lower bound", raw: 1, want: 1},
		{name: "in range", raw: 512, want: 512},
		{name: "upper bound", raw: 1022, want: 1022},
		{name: "full scale", raw: 1023, want: 1022},
		{name: "overflow", raw: 4095, want: 1022},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.raw, 1023))
		})
	}
}

func TestToVoltage(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		vref float64
		want float64
	}{
		{
			name: "baseline MQ2 code",
			raw:  139,
			vref: 5.0,
			want: 0.6794, // 139 * 5 / 1023
		},
		{
			name: "half scale",
			raw:  511.5,
			vref: 5.0,
			want: 2.5,
		},
		{
			name: "zero is clamped",
			raw:  0,
			vref: 5.0,
			want: 5.0 / 1023,
		},
		{
			name: "different VRef",
			raw:  511.5,
			vref: 3.3,
			want: 1.65,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToVoltage(tt.raw, tt.vref, 1023)
			assert.InDelta(t, tt.want, got, 1e-4, "ToVoltage(%f, %f) = %f, want %f", tt.raw, tt.vref, got, tt.want)
		})
	}
}

func TestToResistance(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		rl   float64
		want float64
	}{
		{
			name: "MQ3 baseline",
			raw:  110,
			rl:   200,
			want: 200 * (1023.0 - 110) / 110, // RL * (ADCmax - raw) / raw
		},
		{
			name: "TGS2602 baseline",
			raw:  416,
			rl:   10,
			want: 10 * (1023.0 - 416) / 416,
		},
		{
			name: "mid scale equals load",
			raw:  511.5,
			rl:   10,
			want: 10,
		},
		{
			name: "zero clamps to one",
			raw:  0,
			rl:   10,
			want: 10 * 1022.0,
		},
		{
			name: "full scale clamps to 1022",
			raw:  1023,
			rl:   10,
			want: 10 * 1.0 / 1022,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToResistance(tt.raw, tt.rl, 5.0, 1023)
			assert.InDelta(t, tt.want, got, 1e-6*math.Max(1, tt.want))
			assert.Greater(t, got, 0.0)
			assert.False(t, math.IsInf(got, 0))
		})
	}
}

func TestToResistance_MonotonicDecrease(t *testing.T) {
	prev := ToResistance(1, 200, 5.0, 1023)
	for raw := 2.0; raw <= 1022; raw++ {
		got := ToResistance(raw, 200, 5.0, 1023)
		require.Less(t, got, prev, "Rs(%v) should be below Rs(%v)", raw, raw-1)
		prev = got
	}
}

func TestConversion_Deterministic(t *testing.T) {
	for _, raw := range []float64{1, 110, 139, 240, 416, 1022} {
		v1 := ToVoltage(raw, 5.0, 1023)
		v2 := ToVoltage(raw, 5.0, 1023)
		assert.Equal(t, math.Float64bits(v1), math.Float64bits(v2))

		r1 := ToResistance(raw, 10, 5.0, 1023)
		r2 := ToResistance(raw, 10, 5.0, 1023)
		assert.Equal(t, math.Float64bits(r1), math.Float64bits(r2))
	}
}

func TestConverter_Convert(t *testing.T) {
	cfg := config.Default()
	conv := NewConverter(cfg)

	now := time.Now()
	raw := RawSample{
		Timestamp: now,
		Counts: map[string]float64{
			"MQ2":     139,
			"MQ3":     110,
			"MQ9":     240,
			"MQ135":   215,
			"TGS2602": 416,
		},
	}

	s, err := conv.Convert(raw)
	require.NoError(t, err)
	assert.Equal(t, now, s.Timestamp)
	require.Len(t, s.Values, 5)

	assert.Equal(t, ToVoltage(139, 5, 1023), s.Values["MQ2"])
	assert.Equal(t, ToVoltage(240, 5, 1023), s.Values["MQ9"])
	assert.Equal(t, ToResistance(110, 200, 5, 1023), s.Values["MQ3"])
	assert.Equal(t, ToResistance(215, 10, 5, 1023), s.Values["MQ135"])
	assert.Equal(t, ToResistance(416, 10, 5, 1023), s.Values["TGS2602"])
}

func TestConverter_MissingSensor(t *testing.T) {
	conv := NewConverter(config.Default())

	_, err := conv.Convert(RawSample{Counts: map[string]float64{"MQ2": 100}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSensor)

	_, err = conv.ConvertAll([]RawSample{{Counts: map[string]float64{}}})
	assert.ErrorIs(t, err, ErrMissingSensor)
}

func TestConverter_Count(t *testing.T) {
	cfg := config.Default()
	conv := NewConverter(cfg)

	mq3, _ := cfg.Sensor("MQ3")
	mq2, _ := cfg.Sensor("MQ2")
	assert.Equal(t, ToResistance(110, 200, 5, 1023), conv.Count(mq3, 110))
	assert.Equal(t, ToVoltage(139, 5, 1023), conv.Count(mq2, 139))
}

func TestValue(t *testing.T) {
	v := Some(1.5)
	f, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)
	assert.True(t, v.Defined())
	assert.Equal(t, "1.5", v.String())
	assert.Equal(t, 1.5, v.Or(7))

	assert.False(t, Undefined.Defined())
	assert.Equal(t, "", Undefined.String())
	assert.Equal(t, 7.0, Undefined.Or(7))

	assert.False(t, Some(math.NaN()).Defined())
	assert.False(t, Some(math.Inf(1)).Defined())
	assert.False(t, Some(math.Inf(-1)).Defined())
	assert.True(t, Some(0).Defined())
}
