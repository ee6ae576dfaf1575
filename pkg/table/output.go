package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/odor"
	"github.com/itohio/enose/pkg/sample"
)

const (
	DistanceColumn = "odor_distance"
	SmoothedColumn = "odor_distance_smooth"
	PhaseColumn    = "phase"
)

// ConvertedColumn names the physical value column of a sensor.
func ConvertedColumn(s config.SensorConfig) string {
	if s.Kind == config.ResistiveDivider {
		return s.Name + "_Rs"
	}
	return s.Name + "_v"
}

// RatioColumn names the normalized value column of a sensor.
func RatioColumn(s config.SensorConfig) string {
	switch s.Ratio {
	case config.ZScore:
		return s.Name + "_norm"
	case config.PercentChange:
		return s.Name + "_ch_pct"
	default:
		return s.Name + "_ratio"
	}
}

// ConcentrationColumn names the ppm column of the log-curve sensor.
func ConcentrationColumn(sensor string) string {
	return sensor + "_ppm"
}

// CorrectionColumn names an environment correction column.
func CorrectionColumn(field string) string {
	return field + "_corr"
}

// DerivedHeader lists the columns appended after the input columns.
func DerivedHeader(cfg *config.Config) []string {
	var h []string
	for _, s := range cfg.Sensors {
		h = append(h, ConvertedColumn(s))
	}
	for _, s := range cfg.Sensors {
		h = append(h, RatioColumn(s))
	}
	h = append(h, DistanceColumn, SmoothedColumn)
	if cfg.Concentration.Sensor != "" {
		h = append(h, ConcentrationColumn(cfg.Concentration.Sensor))
	}
	for _, field := range cfg.Environment {
		h = append(h, CorrectionColumn(field))
	}
	return append(h, PhaseColumn)
}

// Encode writes every delivered sample as the input row followed by its derived columns.
// in must be the table the result was computed from.
func Encode(w io.Writer, in *Table, cfg *config.Config, res *odor.Result) error {
	cw := csv.NewWriter(w)

	header := append(append([]string(nil), in.Header...), DerivedHeader(cfg)...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, d := range res.Samples {
		if d.Row < 0 || d.Row >= len(in.Rows) {
			return fmt.Errorf("sample %d refers to missing input row %d", d.Index, d.Row)
		}
		row := append([]string(nil), in.Rows[d.Row]...)
		for _, s := range cfg.Sensors {
			row = append(row, formatFloat(d.Converted[s.Name]))
		}
		for _, s := range cfg.Sensors {
			row = append(row, d.Ratios[s.Name].String())
		}
		row = append(row, d.Distance.String(), d.Smoothed.String())
		if cfg.Concentration.Sensor != "" {
			row = append(row, d.Concentration.String())
		}
		for _, field := range cfg.Environment {
			row = append(row, d.Corrections[field].String())
		}
		row = append(row, string(d.Phase))

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", d.Index, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Write encodes a result into a CSV file.
func Write(path string, in *Table, cfg *config.Config, res *odor.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(f, in, cfg, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RawWriter records raw samples in the input schema understood by Samples.
type RawWriter struct {
	cfg  *config.Config
	csv  *csv.Writer
	rows int
}

// NewRawWriter writes the header and returns a writer for raw samples.
func NewRawWriter(w io.Writer, cfg *config.Config) (*RawWriter, error) {
	header := []string{TimestampColumn}
	for _, s := range cfg.Sensors {
		header = append(header, cfg.RawColumn(s.Name))
	}
	header = append(header, cfg.Environment...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("csv write header: %w", err)
	}
	return &RawWriter{cfg: cfg, csv: cw}, nil
}

// Write appends a single raw sample.
func (w *RawWriter) Write(s sample.RawSample) error {
	row := make([]string, 0, 1+len(w.cfg.Sensors)+len(w.cfg.Environment))
	if s.Timestamp.IsZero() {
		row = append(row, "")
	} else {
		row = append(row, s.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	for _, sensor := range w.cfg.Sensors {
		row = append(row, formatFloat(s.Counts[sensor.Name]))
	}
	for _, field := range w.cfg.Environment {
		row = append(row, s.Env[field].String())
	}
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Flush pushes buffered rows to the underlying writer.
func (w *RawWriter) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// Rows returns the number of data rows written (excludes header).
func (w *RawWriter) Rows() int {
	return w.rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
