package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/itohio/enose/pkg/chart"
	"github.com/itohio/enose/pkg/config"
	"github.com/itohio/enose/pkg/odor"
	"github.com/itohio/enose/pkg/store"
	"github.com/itohio/enose/pkg/table"
)

func processCmd(a *app) *cobra.Command {
	var (
		input, output     string
		dbPath            string
		pngPath, htmlPath string
		keepBackground    bool
		manualBaseline    bool
		smoothWindow      int
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Compute ratios, odor distance and concentration for a raw table",
		Example: `  enose process -i data.csv -o out.csv
  enose process -i data.csv -o out.csv --db runs.db --png distance.png --html distance.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("keep-background") {
				cfg.Phase.ExcludeBackground = !keepBackground
			}
			if manualBaseline {
				cfg.Baseline.Mode = config.BaselineManual
			}
			if smoothWindow > 0 {
				cfg.Smoothing.Window = smoothWindow
			}

			in, err := table.Read(input)
			if err != nil {
				return err
			}
			raw, err := table.Samples(in, cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}

			p, err := odor.New(cfg, odor.WithLogger(a.log))
			if err != nil {
				return err
			}
			res, err := p.Run(raw)
			if err != nil {
				return err
			}

			if output == "-" {
				if err := table.Encode(cmd.OutOrStdout(), in, cfg, res); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			} else if err := table.Write(output, in, cfg, res); err != nil {
				return err
			}

			a.log.Info("processed",
				"input", input,
				"rows", len(raw),
				"delivered", len(res.Samples),
				"baseline", res.Baseline.Mode(),
			)

			title := filepath.Base(input)
			if pngPath != "" {
				if err := chart.SavePNG(pngPath, res, chart.Options{Title: title}); err != nil {
					return err
				}
				a.log.Info("plot saved", "path", pngPath)
			}
			if htmlPath != "" {
				if err := chart.SaveHTML(htmlPath, res, chart.Options{Title: title, Sensors: cfg.FusedSensors()}); err != nil {
					return err
				}
				a.log.Info("chart saved", "path", htmlPath)
			}

			if dbPath != "" {
				db, err := store.Open(cmd.Context(), dbPath)
				if err != nil {
					return err
				}
				defer db.Close()

				id, err := db.SaveRun(cmd.Context(), input, cfg, res)
				if err != nil {
					return err
				}
				a.log.Info("run stored", "db", dbPath, "run", id)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Raw sample table (CSV)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Derived table (CSV), - for stdout")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to store the run in")
	cmd.Flags().StringVar(&pngPath, "png", "", "Write the distance plot to this image file")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Write an interactive distance chart to this HTML file")
	cmd.Flags().BoolVar(&keepBackground, "keep-background", false, "Include background rows in the output")
	cmd.Flags().BoolVar(&manualBaseline, "manual-baseline", false, "Use the fixed manual baseline table")
	cmd.Flags().IntVar(&smoothWindow, "smooth", 0, "Smoothing window (overrides config)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
