// Package table reads raw sample tables and writes derived tables as CSV.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/sample"
)

var (
	// ErrMissingSource is returned when the input table does not exist.
	ErrMissingSource = errors.New("input table not found")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")
)

// TimestampColumn is the optional column holding sample time.
const TimestampColumn = "timestamp"

// Table is a parsed CSV file: a trimmed header and its data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read loads a table from a CSV file.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a CSV stream. Header cells are stripped of surrounding
// whitespace and a leading byte order mark.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty table: no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	return &Table{
		Header: header,
		Rows:   records[1:],
	}, nil
}

// Column returns the index of a column, matched case-insensitively.
func (t *Table) Column(name string) (int, error) {
	want := strings.TrimSpace(name)
	for i, h := range t.Header {
		if strings.EqualFold(h, want) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
}

// Samples maps table rows onto raw samples using the configured schema:
// one `<sensor><raw_suffix>` column per sensor, one column per environment
// field and an optional timestamp column.
func Samples(t *Table, cfg *config.Config) ([]sample.RawSample, error) {
	sensorCols := make([]int, len(cfg.Sensors))
	for i, s := range cfg.Sensors {
		idx, err := t.Column(cfg.RawColumn(s.Name))
		if err != nil {
			return nil, err
		}
		sensorCols[i] = idx
	}

	envCols := make([]int, len(cfg.Environment))
	for i, field := range cfg.Environment {
		idx, err := t.Column(field)
		if err != nil {
			return nil, err
		}
		envCols[i] = idx
	}

	tsCol, err := t.Column(TimestampColumn)
	if err != nil {
		tsCol = -1
	}

	out := make([]sample.RawSample, len(t.Rows))
	for r, row := range t.Rows {
		line := r + 2 // 1-based, after the header

		s := sample.RawSample{
			Counts: make(map[string]float64, len(cfg.Sensors)),
			Env:    make(map[string]sample.Value, len(cfg.Environment)),
		}

		for i, sensor := range cfg.Sensors {
			cell := strings.TrimSpace(row[sensorCols[i]])
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, t.Header[sensorCols[i]], cell, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d: %s is not a finite count", line, t.Header[sensorCols[i]])
			}
			s.Counts[sensor.Name] = v
		}

		for i, field := range cfg.Environment {
			cell := strings.TrimSpace(row[envCols[i]])
			if cell == "" || strings.EqualFold(cell, "nan") {
				s.Env[field] = sample.Undefined
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, field, cell, err)
			}
			s.Env[field] = sample.Some(v)
		}

		if tsCol >= 0 {
			ts, err := parseTimestamp(row[tsCol])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			s.Timestamp = ts
		}

		out[r] = s
	}

	return out, nil
}

// parseTimestamp accepts RFC 3339 or unix seconds (optionally fractional).
func parseTimestamp(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, cell); err == nil {
		return ts, nil
	}
	secs, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", cell)
	}
	whole, frac := int64(secs), secs-float64(int64(secs))
	return time.Unix(whole, int64(frac*1e9)), nil
}
