package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/itohio/enose/pkg/config"
)

// app holds state shared by every command.
type app struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg *config.Config
	log *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "enose",
		Short: "Electronic nose acquisition and odor distance processing",
		Long: `Record raw gas-sensor counts from the ADC poller and turn them into
baseline-relative ratios, a fused odor distance and a concentration estimate.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Configuration file path")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored log output")

	cmd.AddCommand(
		processCmd(a),
		acquireCmd(a),
		portsCmd(),
		runsCmd(a),
		configCmd(a),
	)
	return cmd
}

// init sets up logging and loads the configuration.
func (a *app) init(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
	}

	a.log = slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    a.noColor,
	}))

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg
	a.log.Debug("configuration loaded", "path", a.configPath, "sensors", cfg.SensorNames())

	return nil
}
