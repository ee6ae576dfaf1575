package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/device"
	"github.com/itohio/enose/pkg/store"
	"github.com/itohio/enose/pkg/table"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--no-color"))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeRawTable(t *testing.T, dir string, rows int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("timestamp,MQ2_raw,MQ3_raw,MQ9_raw,MQ135_raw,TGS2602_raw\n")
	for i := 0; i < rows; i++ {
		offset := i % 3
		if i >= 60 {
			offset = 40 + i - 60
		}
		fmt.Fprintf(&b, "%d,%d,%d,%d,%d,%d\n", 1700000000+i,
			139+offset, 110+offset, 240+offset, 215+offset, 416+offset)
	}

	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	input := writeRawTable(t, dir, 80)
	output := filepath.Join(dir, "out.csv")
	db := filepath.Join(dir, "runs.db")
	cfgPath := filepath.Join(dir, "missing.yaml")

	_, err := execute(t, "process", "--config", cfgPath,
		"-i", input, "-o", output, "--db", db,
		"--png", filepath.Join(dir, "distance.png"),
		"--html", filepath.Join(dir, "distance.html"),
	)
	require.NoError(t, err)

	out, err := table.Read(output)
	require.NoError(t, err)
	assert.Len(t, out.Rows, 20, "background rows are excluded")
	_, err = out.Column("odor_distance_smooth")
	assert.NoError(t, err)

	for _, name := range []string{"distance.png", "distance.html"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotZero(t, info.Size(), name)
	}

	listing, err := execute(t, "runs", "--config", cfgPath, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, listing, input)
	assert.Contains(t, listing, "computed-from-leading-window (60)")

	rows := strings.Split(strings.TrimSpace(listing), "\n")
	require.Len(t, rows, 2, "header plus one run")
	id := strings.Fields(rows[1])[0]

	series, err := execute(t, "runs", "show", id, "--config", cfgPath, "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(series), "\n")
	assert.Len(t, lines, 21, "header plus every stored sample")
	assert.Contains(t, lines[0], "SMOOTHED")
	assert.Contains(t, lines[len(lines)-1], "measurement")

	_, err = execute(t, "runs", "rm", id, "--config", cfgPath, "--db", db)
	require.NoError(t, err)
	_, err = execute(t, "runs", "show", id, "--config", cfgPath, "--db", db)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestProcess_FusionNamesIgnoreCase(t *testing.T) {
	dir := t.TempDir()
	input := writeRawTable(t, dir, 70)

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := config.Default()
	cfg.Fusion.Sensors = []string{"mq2", "Mq3"}
	require.NoError(t, cfg.Save(cfgPath))

	htmlPath := filepath.Join(dir, "distance.html")
	_, err := execute(t, "process", "--config", cfgPath, "-i", input, "-o", filepath.Join(dir, "out.csv"), "--html", htmlPath)
	require.NoError(t, err)

	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, `"name":"MQ2"`)
	assert.Contains(t, html, `"name":"MQ3"`)
	assert.NotContains(t, html, `"name":"mq2"`)
}

func TestProcess_Stdout(t *testing.T) {
	dir := t.TempDir()
	input := writeRawTable(t, dir, 62)

	stdout, err := execute(t, "process", "--config", filepath.Join(dir, "missing.yaml"),
		"-i", input, "--keep-background", "--smooth", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 63, "header plus every row")
	assert.Contains(t, lines[1], "background")
	assert.Contains(t, lines[62], "measurement")
}

func TestProcess_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "process", "--config", filepath.Join(dir, "missing.yaml"),
		"-i", filepath.Join(dir, "nope.csv"))
	assert.ErrorIs(t, err, table.ErrMissingSource)
}

func TestProcess_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(input, []byte("MQ2_raw,MQ3_raw\n1,2\n"), 0644))

	_, err := execute(t, "process", "--config", filepath.Join(dir, "missing.yaml"), "-i", input)
	assert.ErrorIs(t, err, table.ErrMissingColumn)
}

func TestAcquireMock(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := config.Default()
	cfg.Mock.SampleRate = 2 * time.Millisecond
	cfg.Mock.NoiseLevel = 0
	require.NoError(t, cfg.Save(cfgPath))

	output := filepath.Join(dir, "raw.csv")
	_, err := execute(t, "acquire", "--config", cfgPath, "--mock", "-n", "5", "-o", output)
	require.NoError(t, err)

	tbl, err := table.Read(output)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 5)

	raw, err := table.Samples(tbl, cfg)
	require.NoError(t, err)
	assert.Equal(t, 139.0, raw[0].Counts["MQ2"], "mock starts at the baseline table")
}

func TestPorts(t *testing.T) {
	if _, err := device.Ports(); err != nil {
		t.Skipf("serial ports cannot be enumerated here: %v", err)
	}
	_, err := execute(t, "ports", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "config", "init", "--config", cfgPath)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", "--config", cfgPath)
	assert.Error(t, err, "refuses to overwrite")

	_, err = execute(t, "config", "init", "--config", cfgPath, "--force")
	assert.NoError(t, err)

	shown, err := execute(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, shown, "raw_suffix: _raw")
	assert.Contains(t, shown, "TGS2602")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "config", "show", "--log-level", "loud",
		"--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
