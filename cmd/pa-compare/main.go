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
		Use:   "pa-compare",
		Short: "Compare unoptimized and optimized SX1262 PA configurations",
		Long: `pa-compare keys an SX1262 at every output power from -9 to 22 dBm, ten times per
level, once with the full-size PA and once with the optimized PA table, and prints the RF
and DC power readings of both as one CSV row.

The RF power monitor (serial or socket) and the DC power monitor (socket) servers must be
running before the sweep starts. Ctrl-C stops the sweep and leaves the radio in standby.

Examples:
  pa-compare > compare.log
  pa-compare --config bench.yaml --json compare.json > compare.log`,
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
	return bench.Run(ctx, cfg, os.Stdout, bench.Options{JSONPath: o.jsonPath}, bench.DefaultDeps(), (*sweep.Session).Compare)
}
