package odor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/enose/pkg/sample"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		n, k int
		want []Phase
	}{
		{
			name: "leading window",
			n:    4, k: 2,
			want: []Phase{Background, Background, Measurement, Measurement},
		},
		{
			name: "window longer than data",
			n:    2, k: 60,
			want: []Phase{Background, Background},
		},
		{
			name: "no window",
			n:    2, k: 0,
			want: []Phase{Measurement, Measurement},
		},
		{
			name: "empty",
			n:    0, k: 60,
			want: []Phase{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Label(tt.n, tt.k)); diff != "" {
				t.Errorf("Label(%d, %d) mismatch (-want +got):\n%s", tt.n, tt.k, diff)
			}
		})
	}
}

func envSample(temp, hum float64) sample.RawSample {
	return sample.RawSample{Env: map[string]sample.Value{
		"Temp_C":       sample.Some(temp),
		"Humidity_pct": sample.Some(hum),
	}}
}

func TestEnvironmentReference(t *testing.T) {
	raw := []sample.RawSample{
		envSample(20, 50),
		envSample(22, 52),
		envSample(30, 70),
	}
	phases := Label(len(raw), 2)

	ref := EnvironmentReference(raw, phases, []string{"Temp_C", "Humidity_pct", "Pressure_hPa"})

	temp, ok := ref["Temp_C"].Get()
	require.True(t, ok)
	assert.InDelta(t, 21.0, temp, 1e-12)

	hum, ok := ref["Humidity_pct"].Get()
	require.True(t, ok)
	assert.InDelta(t, 51.0, hum, 1e-12)

	assert.False(t, ref["Pressure_hPa"].Defined(), "field never recorded")
}

func TestEnvironmentReference_NoBackgroundUsesAll(t *testing.T) {
	raw := []sample.RawSample{envSample(20, 50), envSample(30, 60)}

	ref := EnvironmentReference(raw, Label(len(raw), 0), []string{"Temp_C"})
	temp, ok := ref["Temp_C"].Get()
	require.True(t, ok)
	assert.InDelta(t, 25.0, temp, 1e-12)
}

func TestEnvironmentReference_SkipsUndefined(t *testing.T) {
	raw := []sample.RawSample{
		envSample(20, 50),
		{Env: map[string]sample.Value{"Temp_C": sample.Undefined}},
		envSample(24, 50),
	}

	ref := EnvironmentReference(raw, Label(len(raw), 3), []string{"Temp_C"})
	temp, ok := ref["Temp_C"].Get()
	require.True(t, ok)
	assert.InDelta(t, 22.0, temp, 1e-12)
}

func TestCorrect(t *testing.T) {
	ref := map[string]sample.Value{
		"Temp_C":       sample.Some(21),
		"Humidity_pct": sample.Some(51),
		"Pressure_hPa": sample.Undefined,
	}

	out := Correct(envSample(25, 49), ref)

	temp, ok := out["Temp_C"].Get()
	require.True(t, ok)
	assert.InDelta(t, 4.0, temp, 1e-12)

	hum, ok := out["Humidity_pct"].Get()
	require.True(t, ok)
	assert.InDelta(t, -2.0, hum, 1e-12)

	assert.False(t, out["Pressure_hPa"].Defined())

	missing := Correct(sample.RawSample{}, ref)
	assert.False(t, missing["Temp_C"].Defined())
}
