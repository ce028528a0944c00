package bench

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/ja7ad/pasweep/pkg/config"
	"github.com/ja7ad/pasweep/pkg/sweep"
)

// Sweep is one of the session's sweeps, (*sweep.Session).Compare or (*sweep.Session).Measure.
type Sweep func(*sweep.Session, context.Context) error

// Run brings the bench up, runs sw until it completes or SIGINT/SIGTERM arrives, and tears
// the bench down again. An interrupted sweep returns context.Canceled.
func Run(ctx context.Context, cfg *config.Config, out io.Writer, opts Options, deps Deps, sw Sweep) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := Start(ctx, cfg, out, opts, deps)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			slog.Warn("shutdown", "err", cerr)
		}
	}()

	err = sw(b.Session, ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("interrupted")
	}
	return err
}
