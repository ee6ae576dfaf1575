package chart

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/itohio/enose/pkg/odor"
	"github.com/itohio/enose/pkg/sample"
)

// HTML renders an interactive page with the distance chart and, when
// o.Sensors is set, a chart of the per-sensor ratios.
func HTML(w io.Writer, res *odor.Result, o Options) error {
	title := o.Title
	if title == "" {
		title = "Odor distance"
	}

	pts := points(res, o.MaxPoints)
	x := make([]string, len(pts))
	for i, p := range pts {
		x[i] = strconv.FormatFloat(p.X, 'f', -1, 64)
	}

	page := components.NewPage()
	page.SetPageTitle(title)

	dist := newLine(title, fmt.Sprintf("baseline=%s samples=%d", res.Baseline.Mode(), len(res.Samples)), xLabel(res), "Distance")
	dist.SetXAxis(x).
		AddSeries("distance", lineData(pts, func(p point) sample.Value { return p.Distance })).
		AddSeries("smoothed", lineData(pts, func(p point) sample.Value { return p.Smoothed }),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 3}),
		)
	page.AddCharts(dist)

	if len(o.Sensors) > 0 {
		ratios := newLine("Sensor ratios", "", xLabel(res), "Ratio")
		ratios.SetXAxis(x)
		for _, name := range o.Sensors {
			ratios.AddSeries(name, lineData(pts, func(p point) sample.Value { return p.Ratios[name] }))
		}
		page.AddCharts(ratios)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// SaveHTML renders the interactive page into a file.
func SaveHTML(path string, res *odor.Result, o Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := HTML(f, res, o); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newLine(title, subtitle, xName, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	return line
}

// lineData converts a series to chart values; undefined values become gaps.
func lineData(pts []point, value func(point) sample.Value) []opts.LineData {
	out := make([]opts.LineData, len(pts))
	for i, p := range pts {
		if v, ok := value(p).Get(); ok {
			out[i] = opts.LineData{Value: v}
		} else {
			out[i] = opts.LineData{Value: "-"}
		}
	}
	return out
}
