//go:build linux

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ja7ad/pasweep/pkg/bench"
	"github.com/ja7ad/pasweep/pkg/config"
	"github.com/ja7ad/pasweep/pkg/sweep"
)

type opts struct {
	configPath string
	logLevel   string
	jsonPath   string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "pa-measure",
		Short: "Map SX1262 PA efficiency over power, duty cycle and hpMax",
		Long: `pa-measure walks every combination of output power (-9..22 dBm), PA duty cycle (1..4)
and hpMax (0..7), keys the SX1262 with it and prints the RF level, the DC readings and the
PA efficiency as one CSV row.

The first hpMax of every (power, duty cycle) pair produces no RF output on this hardware.
Its DC power is used as the leakage baseline for that pair and no row is printed for it.

Examples:
  pa-measure > logs/board1.log
  pa-analyze table logs`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	root.Flags().StringVar(&o.configPath, "config", "", "bench configuration file (default $"+config.EnvConfig+")")
	root.Flags().StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().StringVar(&o.jsonPath, "json", "", "also write every row to this JSON file")

	err := root.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error(err.Error())
	}
	os.Exit(bench.ExitCode(err))
}

func run(ctx context.Context, o opts) error {
	if err := bench.SetupLogger(o.logLevel); err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	return bench.Run(ctx, cfg, os.Stdout, bench.Options{JSONPath: o.jsonPath}, bench.DefaultDeps(), (*sweep.Session).Measure)
}
