package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/itohio/enose/pkg/device"
	"github.com/itohio/enose/pkg/sample"
	"github.com/itohio/enose/pkg/table"
)

func acquireCmd(a *app) *cobra.Command {
	var (
		output   string
		useMock  bool
		port     string
		count    int
		duration time.Duration
		average  int
	)

	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Record raw sensor counts into a table",
		Example: `  enose acquire -o raw.csv -p /dev/ttyACM0 --duration 10m
  enose acquire -o raw.csv --mock -n 120`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if port != "" {
				cfg.Serial.Port = port
			}
			if average >= 0 {
				cfg.Acquisition.AverageSamples = average
			}

			var dev device.Device
			if useMock {
				dev = device.NewMock(cfg, device.WithLogger(a.log))
			} else {
				dev = device.NewSerial(cfg, device.WithLogger(a.log))
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()

			w, err := table.NewRawWriter(f, cfg)
			if err != nil {
				return err
			}

			if err := dev.Connect(); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			a.log.Info("acquiring", "mock", useMock, "port", cfg.Serial.Port, "output", output)

			stream := dev.Samples()
			if cfg.Acquisition.AverageSamples > 1 {
				stream = sample.NewAveragingStage(cfg.Acquisition.AverageSamples, cfg.Acquisition.BufferSize)(stream)
			}

			var deadline <-chan time.Time
			if duration > 0 {
				timer := time.NewTimer(duration)
				defer timer.Stop()
				deadline = timer.C
			}

			err = record(cmd, stream, deadline, w, count)

			// Closing the device closes the stream; drain it so the stages exit.
			if cerr := dev.Close(); cerr != nil {
				a.log.Warn("close failed", "error", cerr)
			}
			for range stream {
			}

			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", output, err)
			}
			a.log.Info("acquisition finished", "rows", w.Rows(), "output", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Raw sample table to write (CSV)")
	cmd.Flags().BoolVar(&useMock, "mock", false, "Use the simulated sensor array instead of the serial port")
	cmd.Flags().StringVarP(&port, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after this many samples (0 = unlimited)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 = until interrupted)")
	cmd.Flags().IntVar(&average, "average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// record writes samples until the stream ends, the limit is reached, the
// deadline fires or the command is interrupted.
func record(cmd *cobra.Command, stream <-chan sample.RawSample, deadline <-chan time.Time, w *table.RawWriter, limit int) error {
	ctx := cmd.Context()
	for limit <= 0 || w.Rows() < limit {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case s, ok := <-stream:
			if !ok {
				return w.Flush()
			}
			if err := w.Write(s); err != nil {
				return fmt.Errorf("failed to write sample: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush: %w", err)
			}
		}
	}
	return nil
}
