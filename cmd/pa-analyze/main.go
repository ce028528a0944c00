package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ja7ad/pasweep/pkg/analyze"
	"github.com/ja7ad/pasweep/pkg/bench"
	"github.com/ja7ad/pasweep/pkg/config"
)

func main() {
	var logLevel string

	root := &cobra.Command{
		Use:   "pa-analyze",
		Short: "Post-process pa-measure and pa-compare logs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bench.SetupLogger(logLevel)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(tableCmd(), savingsCmd())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func tableCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "table <log-dir>",
		Short: "Build the optimized PA table from a directory of pa-measure logs",
		Long: `table reads every *.log file in log-dir. For each set power it takes the level measured
with the full-size PA (duty cycle 4, hpMax 7) as reference and picks the configuration with
the lowest DC power whose output lies within 0.2 dB above it. The configuration chosen by
most logs wins.

Writes optimized.csv, optimized.h and optimized.yaml to the output directory. The YAML file
is the radio.paTable input of pa-compare.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maps, err := analyze.LoadDir(args[0])
			if err != nil {
				return err
			}
			table, err := analyze.BuildTable(maps)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			if err := writeFile(filepath.Join(outDir, "optimized.csv"), table.WriteCSV); err != nil {
				return err
			}
			if err := writeFile(filepath.Join(outDir, "optimized.h"), table.WriteCHeader); err != nil {
				return err
			}
			if err := config.SavePATable(filepath.Join(outDir, "optimized.yaml"), table.Entries()); err != nil {
				return fmt.Errorf("write pa table: %w", err)
			}
			table.WriteSummary(cmd.OutOrStdout())
			slog.Info("pa table written", "dir", outDir, "logs", table.Files, "levels", len(table.Selections))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "output directory")
	return cmd
}

func savingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "savings <compare-log>",
		Short: "Summarize the DC power saved by the optimized PA table in a pa-compare log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			trials, err := analyze.ParseCompareLog(f)
			if err != nil {
				return err
			}
			return analyze.WriteSavings(cmd.OutOrStdout(), analyze.ComputeSavings(trials))
		},
	}
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
