package chart

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/itohio/enose/pkg/odor"
	"github.com/itohio/enose/pkg/sample"
)

var (
	distanceColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	smoothedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

const (
	pngWidth  = 14 * vg.Inch
	pngHeight = 6 * vg.Inch
)

// NewPlot builds the distance plot: the raw series as a thin line and the
// smoothed series on top. Undefined values break the lines.
func NewPlot(res *odor.Result, o Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = o.Title
	if p.Title.Text == "" {
		p.Title.Text = "Odor distance"
	}
	p.X.Label.Text = xLabel(res)
	p.Y.Label.Text = "Distance"
	p.Add(plotter.NewGrid())

	pts := points(res, o.MaxPoints)

	series := []struct {
		name  string
		value func(point) sample.Value
		color color.Color
		width vg.Length
	}{
		{"distance", func(p point) sample.Value { return p.Distance }, distanceColor, vg.Points(1)},
		{"smoothed", func(p point) sample.Value { return p.Smoothed }, smoothedColor, vg.Points(2)},
	}

	for _, s := range series {
		for i, seg := range segments(pts, s.value) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, fmt.Errorf("failed to build %s line: %w", s.name, err)
			}
			line.Color = s.color
			line.Width = s.width
			p.Add(line)
			if i == 0 {
				p.Legend.Add(s.name, line)
			}
		}
	}
	p.Legend.Top = true

	return p, nil
}

// PNG renders the distance plot as a PNG image.
func PNG(w io.Writer, res *odor.Result, o Options) error {
	p, err := NewPlot(res, o)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// SavePNG renders the distance plot into a file. The format follows the
// file extension (png, svg, pdf, ...).
func SavePNG(path string, res *odor.Result, o Options) error {
	p, err := NewPlot(res, o)
	if err != nil {
		return err
	}
	if err := p.Save(pngWidth, pngHeight, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// segments splits a series into runs of consecutive defined values.
func segments(pts []point, value func(point) sample.Value) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for _, p := range pts {
		y, ok := value(p).Get()
		if !ok {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: p.X, Y: y})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
