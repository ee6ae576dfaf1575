package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/itohio/enose/pkg/store"
)

func runsCmd(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List pipeline runs stored in a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.Runs(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tSOURCE\tBASELINE\tSAMPLES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s (%d)\t%d\n",
					r.ID, r.CreatedAt.Format(time.DateTime), r.Source, r.BaselineMode, r.BaselineSamples, r.Samples)
			}
			return tw.Flush()
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "runs.db", "SQLite database of stored runs")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the stored distance series of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			db, err := store.Open(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			points, err := db.Series(cmd.Context(), id)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "IDX\tTIME\tPHASE\tDISTANCE\tSMOOTHED\tPPM")
			for _, p := range points {
				var ts string
				if !p.Timestamp.IsZero() {
					ts = p.Timestamp.Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					p.Index, ts, p.Phase, p.Distance, p.Smoothed, p.Concentration)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			db, err := store.Open(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteRun(cmd.Context(), id); err != nil {
				return err
			}
			a.log.Info("run deleted", "run", id)
			return nil
		},
	})

	return cmd
}
