package sample

import "math"

// Stage transforms a stream of raw samples.
type Stage func(in <-chan RawSample) <-chan RawSample

// NewAveragingStage creates a stage that averages N consecutive RawSamples
// into one. This reduces noise in recorded data the same way the firmware
// averages ADC reads. A partial block is emitted when the input closes.
func NewAveragingStage(windowSize int, bufSize int) Stage {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan RawSample) <-chan RawSample {
		out := make(chan RawSample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]RawSample, 0, windowSize)
			for raw := range in {
				buffer = append(buffer, raw)
				if len(buffer) < windowSize {
					continue
				}
				out <- Average(buffer)
				buffer = buffer[:0]
			}

			// Input closed, output any remaining samples
			if len(buffer) > 0 {
				out <- Average(buffer)
			}
		}()

		return out
	}
}

// Average averages a slice of RawSamples.
// Counts are rounded to the nearest code; environment fields average only
// defined values. Uses the most recent sample's timestamp.
func Average(samples []RawSample) RawSample {
	if len(samples) == 0 {
		return RawSample{}
	}

	lastSample := samples[len(samples)-1]
	sums := make(map[string]float64, len(lastSample.Counts))
	counts := make(map[string]int, len(lastSample.Counts))
	envSums := make(map[string]float64, len(lastSample.Env))
	envCounts := make(map[string]int, len(lastSample.Env))

	for _, s := range samples {
		for name, c := range s.Counts {
			sums[name] += c
			counts[name]++
		}
		for name, v := range s.Env {
			if _, seen := envCounts[name]; !seen {
				envCounts[name] = 0
			}
			if f, ok := v.Get(); ok {
				envSums[name] += f
				envCounts[name]++
			}
		}
	}

	avg := RawSample{
		Timestamp: lastSample.Timestamp,
		Counts:    make(map[string]float64, len(sums)),
		Env:       make(map[string]Value, len(envCounts)),
	}
	for name, sum := range sums {
		avg.Counts[name] = math.Round(sum / float64(counts[name])) // Round to nearest
	}
	for name, n := range envCounts {
		if n == 0 {
			avg.Env[name] = Undefined
			continue
		}
		avg.Env[name] = Some(envSums[name] / float64(n))
	}

	return avg
}
