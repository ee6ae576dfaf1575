package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(out <-chan RawSample) []RawSample {
	var samples []RawSample
	for s := range out {
		samples = append(samples, s)
	}
	return samples
}

func TestNewAveragingStage_BasicAveraging(t *testing.T) {
	stage := NewAveragingStage(3, 10)

	in := make(chan RawSample, 10)
	out := stage(in)

	now := time.Now()

	// Send 6 samples with increasing values
	for i := 0; i < 6; i++ {
		in <- RawSample{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Counts:    map[string]float64{"MQ2": float64(100 + i*10)},
			Env:       map[string]Value{"Temp_C": Some(20 + float64(i))},
		}
	}
	close(in)

	samples := collect(out)
	require.Len(t, samples, 2)

	assert.Equal(t, 110.0, samples[0].Counts["MQ2"]) // (100+110+120)/3
	assert.Equal(t, 140.0, samples[1].Counts["MQ2"]) // (130+140+150)/3
	assert.Equal(t, now.Add(2*time.Second), samples[0].Timestamp)
	assert.Equal(t, now.Add(5*time.Second), samples[1].Timestamp)

	temp, ok := samples[0].Env["Temp_C"].Get()
	require.True(t, ok)
	assert.InDelta(t, 21.0, temp, 1e-9)
}

func TestNewAveragingStage_PartialBlockFlushed(t *testing.T) {
	stage := NewAveragingStage(4, 10)

	in := make(chan RawSample, 10)
	out := stage(in)

	for i := 0; i < 5; i++ {
		in <- RawSample{Counts: map[string]float64{"MQ3": 200}}
	}
	close(in)

	samples := collect(out)
	require.Len(t, samples, 2)
	assert.Equal(t, 200.0, samples[1].Counts["MQ3"])
}

func TestNewAveragingStage_EmptyChannel(t *testing.T) {
	stage := NewAveragingStage(3, 10)

	in := make(chan RawSample)
	out := stage(in)

	close(in)

	// Should close immediately (no samples to average)
	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed")
}

func TestNewAveragingStage_InvalidWindowSize(t *testing.T) {
	stage := NewAveragingStage(0, 0) // Invalid window size and buffer

	in := make(chan RawSample, 5)
	out := stage(in)

	in <- RawSample{Counts: map[string]float64{"MQ2": 1}}
	in <- RawSample{Counts: map[string]float64{"MQ2": 2}}
	close(in)

	samples := collect(out)
	require.Len(t, samples, 2, "window of one passes samples through")
	assert.Equal(t, 1.0, samples[0].Counts["MQ2"])
	assert.Equal(t, 2.0, samples[1].Counts["MQ2"])
}

func TestAverage_Rounding(t *testing.T) {
	avg := Average([]RawSample{
		{Counts: map[string]float64{"MQ9": 240}},
		{Counts: map[string]float64{"MQ9": 241}},
	})
	assert.Equal(t, 241.0, avg.Counts["MQ9"]) // 240.5 rounds half away from zero
}

func TestAverage_UndefinedEnvironment(t *testing.T) {
	avg := Average([]RawSample{
		{Env: map[string]Value{"Pressure_hPa": Undefined, "Humidity_pct": Some(40)}},
		{Env: map[string]Value{"Pressure_hPa": Undefined, "Humidity_pct": Undefined}},
	})

	assert.False(t, avg.Env["Pressure_hPa"].Defined())
	h, ok := avg.Env["Humidity_pct"].Get()
	require.True(t, ok)
	assert.Equal(t, 40.0, h)
}

func TestAverage_Empty(t *testing.T) {
	avg := Average(nil)
	assert.Empty(t, avg.Counts)
	assert.True(t, avg.Timestamp.IsZero())
}
