// Package chart renders the odor distance series of a pipeline run as a PNG
// plot or an interactive HTML page.
package chart

import (
	"time"

	"github.com/itohio/enose/pkg/odor"
	"github.com/itohio/enose/pkg/sample"
)

// DefaultMaxPoints limits the points drawn per series.
const DefaultMaxPoints = 1000

// Options controls chart rendering.
type Options struct {
	Title     string
	MaxPoints int      // Downsampling limit; 0 uses DefaultMaxPoints
	Sensors   []string // Sensors whose ratios are drawn alongside the distance (HTML only)
}

// point is one delivered sample reduced to what the charts draw.
type point struct {
	X        float64
	Distance sample.Value
	Smoothed sample.Value
	Ratios   map[string]sample.Value
}

// points extracts chart points from a result. X is seconds since the first
// delivered sample when every sample is timestamped, otherwise the delivery index.
func points(res *odor.Result, maxPoints int) []point {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}

	timed := len(res.Samples) > 0
	for _, d := range res.Samples {
		if d.Raw.Timestamp.IsZero() {
			timed = false
			break
		}
	}

	var start time.Time
	if timed {
		start = res.Samples[0].Raw.Timestamp
	}

	all := make([]point, len(res.Samples))
	for i, d := range res.Samples {
		x := float64(d.Index)
		if timed {
			x = d.Raw.Timestamp.Sub(start).Seconds()
		}
		all[i] = point{
			X:        x,
			Distance: d.Distance,
			Smoothed: d.Smoothed,
			Ratios:   d.Ratios,
		}
	}

	return sample.Downsample(nil, all, maxPoints)
}

// xLabel names the horizontal axis for the given points.
func xLabel(res *odor.Result) string {
	for _, d := range res.Samples {
		if d.Raw.Timestamp.IsZero() {
			return "Sample"
		}
	}
	return "Time (s)"
}
