// Package store persists pipeline runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/odor"
	"github.com/itohio/enose/pkg/sample"
)

// ErrRunNotFound is returned when a run ID is not in the database.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	created_at       INTEGER NOT NULL,
	baseline_mode    TEXT NOT NULL,
	baseline_samples INTEGER NOT NULL,
	sample_count     INTEGER NOT NULL,
	config_yaml      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS baselines (
	run_id  TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	sensor  TEXT NOT NULL,
	mean    REAL NOT NULL,
	std_dev REAL,
	PRIMARY KEY (run_id, sensor)
);
CREATE TABLE IF NOT EXISTS samples (
	run_id        TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	idx           INTEGER NOT NULL,
	input_row     INTEGER NOT NULL,
	timestamp     INTEGER,
	phase         TEXT NOT NULL,
	distance      REAL,
	smoothed      REAL,
	concentration REAL,
	PRIMARY KEY (run_id, idx)
);
CREATE TABLE IF NOT EXISTS sample_values (
	run_id    TEXT NOT NULL,
	idx       INTEGER NOT NULL,
	sensor    TEXT NOT NULL,
	converted REAL NOT NULL,
	ratio     REAL,
	PRIMARY KEY (run_id, idx, sensor),
	FOREIGN KEY (run_id, idx) REFERENCES samples(run_id, idx) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS corrections (
	run_id TEXT NOT NULL,
	idx    INTEGER NOT NULL,
	field  TEXT NOT NULL,
	value  REAL,
	PRIMARY KEY (run_id, idx, field),
	FOREIGN KEY (run_id, idx) REFERENCES samples(run_id, idx) ON DELETE CASCADE
);
`

// Run summarizes a stored pipeline run.
type Run struct {
	ID              uuid.UUID
	Source          string
	CreatedAt       time.Time
	BaselineMode    string
	BaselineSamples int
	Samples         int
}

// Point is one stored sample of a run's distance series.
type Point struct {
	Index         int
	Timestamp     time.Time
	Phase         odor.Phase
	Distance      sample.Value
	Smoothed      sample.Value
	Concentration sample.Value
}

// Store wraps the run database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps PRAGMA foreign_keys in effect for every statement.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a pipeline result under a new run ID.
func (s *Store) SaveRun(ctx context.Context, source string, cfg *config.Config, res *odor.Result) (uuid.UUID, error) {
	id := uuid.New()

	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, source, created_at, baseline_mode, baseline_samples, sample_count, config_yaml)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), source, s.now().UnixNano(), string(res.Baseline.Mode()), res.Baseline.Samples(),
		len(res.Samples), string(cfgYAML),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	for _, name := range res.Baseline.Sensors() {
		ref, _ := res.Baseline.Reference(name)
		_, err := tx.ExecContext(ctx,
			"INSERT INTO baselines (run_id, sensor, mean, std_dev) VALUES (?, ?, ?, ?)",
			id.String(), name, ref.Mean, nullable(ref.StdDev),
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert baseline %s: %w", name, err)
		}
	}

	insSample, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, idx, input_row, timestamp, phase, distance, smoothed, concentration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("prepare samples: %w", err)
	}
	defer insSample.Close()

	insValue, err := tx.PrepareContext(ctx,
		"INSERT INTO sample_values (run_id, idx, sensor, converted, ratio) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return uuid.Nil, fmt.Errorf("prepare sample values: %w", err)
	}
	defer insValue.Close()

	insCorr, err := tx.PrepareContext(ctx,
		"INSERT INTO corrections (run_id, idx, field, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return uuid.Nil, fmt.Errorf("prepare corrections: %w", err)
	}
	defer insCorr.Close()

	for _, d := range res.Samples {
		var ts sql.NullInt64
		if !d.Raw.Timestamp.IsZero() {
			ts = sql.NullInt64{Int64: d.Raw.Timestamp.UnixNano(), Valid: true}
		}

		_, err := insSample.ExecContext(ctx,
			id.String(), d.Index, d.Row, ts, string(d.Phase),
			nullable(d.Distance), nullable(d.Smoothed), nullable(d.Concentration),
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert sample %d: %w", d.Index, err)
		}

		for _, sensor := range cfg.Sensors {
			_, err := insValue.ExecContext(ctx,
				id.String(), d.Index, sensor.Name, d.Converted[sensor.Name], nullable(d.Ratios[sensor.Name]),
			)
			if err != nil {
				return uuid.Nil, fmt.Errorf("insert sample %d value %s: %w", d.Index, sensor.Name, err)
			}
		}

		for _, field := range cfg.Environment {
			if _, err := insCorr.ExecContext(ctx, id.String(), d.Index, field, nullable(d.Corrections[field])); err != nil {
				return uuid.Nil, fmt.Errorf("insert sample %d correction %s: %w", d.Index, field, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, created_at, baseline_mode, baseline_samples, sample_count
		FROM runs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			id      string
			created int64
		)
		if err := rows.Scan(&id, &r.Source, &created, &r.BaselineMode, &r.BaselineSamples, &r.Samples); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run %q: %w", id, err)
		}
		r.CreatedAt = time.Unix(0, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Series returns the stored distance series of a run in delivery order.
func (s *Store) Series(ctx context.Context, id uuid.UUID) ([]Point, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE run_id = ?", id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, timestamp, phase, distance, smoothed, concentration
		FROM samples
		WHERE run_id = ?
		ORDER BY idx`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			p                  Point
			ts                 sql.NullInt64
			phase              string
			dist, smooth, conc sql.NullFloat64
		)
		if err := rows.Scan(&p.Index, &ts, &phase, &dist, &smooth, &conc); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if ts.Valid {
			p.Timestamp = time.Unix(0, ts.Int64)
		}
		p.Phase = odor.Phase(phase)
		p.Distance = fromNullable(dist)
		p.Smoothed = fromNullable(smooth)
		p.Concentration = fromNullable(conc)
		points = append(points, p)
	}
	return points, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func nullable(v sample.Value) sql.NullFloat64 {
	f, ok := v.Get()
	return sql.NullFloat64{Float64: f, Valid: ok}
}

func fromNullable(v sql.NullFloat64) sample.Value {
	if !v.Valid {
		return sample.Undefined
	}
	return sample.Some(v.Float64)
}
