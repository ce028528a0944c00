// Package sweep runs the two measurement sweeps over the SX1262 PA configuration space.
//
// A Session owns the radio and both meter clients for the lifetime of a run. Compare keys the
// radio at every power level with the unoptimized and the optimized PA configuration back to
// back. Measure walks the full (power, duty cycle, hpMax) grid and derives the PA efficiency.
// Every grid point is a fixed sequence: configure, transmit, settle, sample, standby, recover.
//
// Cancellation is checked between grid points and during the settle waits. Close is the
// finalizer: it stands the radio by, releases the meters and flushes the output exactly once,
// whatever way the sweep ended.
package sweep

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ja7ad/pasweep/pkg/efficiency"
	"github.com/ja7ad/pasweep/pkg/types"
)

// Options configures a Session. A zero Grid selects DefaultGrid. Timing is used as given, zero
// delays included.
type Options struct {
	Grid       Grid
	Timing     Timing
	GainOffset float64 // dB added to every RF reading
	Sink       RowSink // optional, owned by the Session once passed
}

// Session is the single context object of a sweep run.
type Session struct {
	radio Radio
	rf    RFMeter
	dc    DCMeter
	out   *bufio.Writer
	sink  RowSink

	grid   Grid
	timing Timing
	gain   float64

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	once     sync.Once
	closed   bool
	closeErr error
}

// NewSession validates the grid and assembles a Session writing CSV to out.
func NewSession(radio Radio, rf RFMeter, dc DCMeter, out io.Writer, opts Options) (*Session, error) {
	if opts.Grid == (Grid{}) {
		opts.Grid = DefaultGrid()
	}
	if err := opts.Grid.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		radio:  radio,
		rf:     rf,
		dc:     dc,
		out:    bufio.NewWriter(out),
		sink:   opts.Sink,
		grid:   opts.Grid,
		timing: opts.Timing,
		gain:   opts.GainOffset,
		sleep:  sleepCtx,
		now:    time.Now,
	}, nil
}

// Compare runs the comparison sweep: for each power level, Grid.Trials rows each holding the
// unoptimized then the optimized sample. It returns ctx.Err() when interrupted.
func (s *Session) Compare(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.header(CompareHeader); err != nil {
		return err
	}

	for pwr := s.grid.Power.Min; pwr <= s.grid.Power.Max; pwr++ {
		for trial := 0; trial < s.grid.Trials; trial++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			unopt, err := s.point(ctx, "unoptimized", pwr, true, func() error {
				return s.radio.SetOutputPower(pwr, false)
			})
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			opt, err := s.point(ctx, "optimized", pwr, true, func() error {
				return s.radio.SetOutputPower(pwr, true)
			})
			if err != nil {
				return err
			}

			if err := writeCompareRow(s.out, pwr, unopt, opt); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
			if err := s.out.Flush(); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			s.emit(CompareRow{At: s.now(), Set: pwr, Trial: trial, Unoptimized: unopt, Optimized: opt})
		}
	}
	return nil
}

// Measure runs the efficiency map. The first hpMax of every (power, duty cycle) pair is taken
// to produce no RF output on this hardware: its DC power becomes the baseline for that pair
// and no row is written for it.
func (s *Session) Measure(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.header(MeasureHeader); err != nil {
		return err
	}

	for pwr := s.grid.Power.Min; pwr <= s.grid.Power.Max; pwr++ {
		for duty := s.grid.DutyCycle.Min; duty <= s.grid.DutyCycle.Max; duty++ {
			var baseline float64
			for hp := s.grid.HpMax.Min; hp <= s.grid.HpMax.Max; hp++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				isBaseline := hp == s.grid.HpMax.Min
				smp, err := s.point(ctx, "config", pwr, !isBaseline, func() error {
					return s.radio.SetOutputPowerConfig(pwr, duty, hp)
				})
				if err != nil {
					return err
				}
				if isBaseline {
					baseline = smp.Power
					continue
				}

				eff, ok := efficiency.Compute(smp.RFPower, smp.Power, baseline)
				if !ok {
					slog.Warn("efficiency undefined", "set", pwr, "duty", duty, "hp", hp,
						"dc", types.MilliWatts(smp.Power).Humanized(), "baseline", types.MilliWatts(baseline).Humanized())
				}

				if err := writeMeasureRow(s.out, pwr, duty, hp, smp, eff); err != nil {
					return fmt.Errorf("write row: %w", err)
				}
				if err := s.out.Flush(); err != nil {
					return fmt.Errorf("flush: %w", err)
				}
				s.emit(MeasureRow{At: s.now(), Set: pwr, DutyCycle: duty, HpMax: hp,
					Sample: smp, Baseline: baseline, Efficiency: eff})
			}
		}
	}
	return nil
}

// point measures one grid point. Failed radio calls and meter reads are logged and the point
// proceeds with unchanged timing. With full unset only the RF and DC power are read.
// An interrupted settle wait abandons the point and returns ctx.Err().
func (s *Session) point(ctx context.Context, variant string, pwr int, full bool, configure func() error) (Sample, error) {
	var smp Sample

	warnIf(configure(), "configure", "variant", variant, "set", pwr)
	warnIf(s.radio.TransmitDirect(), "transmit", "set", pwr)

	if err := s.sleep(ctx, s.timing.Settle); err != nil {
		return smp, err
	}

	smp.RFPower = float64(types.DBm(s.read("rf power", s.rf.ReadPower)).Offset(s.gain))
	smp.Power = s.read("dc power", s.dc.ReadPower)
	if full {
		smp.Current = s.read("dc current", s.dc.ReadCurrent)
		smp.ShuntVoltage = s.read("shunt voltage", s.dc.ReadShuntVoltage)
		smp.BusVoltage = s.read("bus voltage", s.dc.ReadBusVoltage)
	}

	warnIf(s.radio.Standby(), "standby", "set", pwr)

	// the sample is complete, an interrupt here only shortens the recovery
	_ = s.sleep(ctx, s.timing.Recover)
	return smp, nil
}

func (s *Session) read(what string, f func() (float64, error)) float64 {
	v, err := f()
	if err != nil {
		slog.Warn("read failed", "what", what, "err", err)
		return 0
	}
	return v
}

func (s *Session) header(h string) error {
	if _, err := s.out.WriteString(h + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return s.out.Flush()
}

func (s *Session) emit(row any) {
	if s.sink == nil {
		return
	}
	if err := s.sink.WriteRow(row); err != nil {
		slog.Warn("row sink", "err", err)
	}
}

// Close puts the radio in standby, closes both meters, terminates the current output line and
// flushes. Only the first call does anything; later calls return the same error.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.closed = true
		var errs []error
		if err := s.radio.Standby(); err != nil {
			errs = append(errs, fmt.Errorf("standby: %w", err))
		}
		if err := s.rf.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rf monitor: %w", err))
		}
		if err := s.dc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dc monitor: %w", err))
		}
		if _, err := s.out.WriteString("\n"); err != nil {
			errs = append(errs, err)
		}
		if err := s.out.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
		if s.sink != nil {
			if err := s.sink.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close row sink: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func warnIf(err error, op string, args ...any) {
	if err != nil {
		slog.Warn(op+" failed", append(args, "err", err)...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
