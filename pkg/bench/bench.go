// Package bench wires the radio, the two power monitors and the output into a sweep session.
//
// Start performs the fixed start-up sequence: initialize the radio, connect the RF monitor,
// connect the DC monitor, report both identities and set the over-current limit. A failure at
// any step releases what was opened so far and returns an *ExitError before the transmitter
// has ever been keyed.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/ja7ad/pasweep/pkg/config"
	"github.com/ja7ad/pasweep/pkg/powermon"
	"github.com/ja7ad/pasweep/pkg/sweep"
	"github.com/ja7ad/pasweep/pkg/sx126x"
)

// Device is the radio as seen at start-up.
type Device interface {
	sweep.Radio
	Begin() error
	SetCurrentLimit(mA float64) error
}

// RFMonitor is a connected RF power monitor.
type RFMonitor interface {
	sweep.RFMeter
	ID() string
}

// DCMonitor is a connected DC power monitor.
type DCMonitor interface {
	sweep.DCMeter
	ID() string
}

// Deps opens the hardware and the monitors. Tests replace it with fakes.
type Deps struct {
	OpenRadio func(rc config.RadioConfig, table []sx126x.PAEntry) (Device, io.Closer, error)
	ConnectRF func(ctx context.Context, t powermon.Transport) (RFMonitor, error)
	ConnectDC func(ctx context.Context, t powermon.Transport) (DCMonitor, error)
}

// DefaultDeps uses periph for the radio and the powermon clients for the meters.
func DefaultDeps() Deps {
	return Deps{
		OpenRadio: OpenRadio,
		ConnectRF: func(ctx context.Context, t powermon.Transport) (RFMonitor, error) {
			c, err := powermon.ConnectRF(ctx, t)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		ConnectDC: func(ctx context.Context, t powermon.Transport) (DCMonitor, error) {
			c, err := powermon.ConnectDC(ctx, t)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// Options are the run-time switches of the sweep programs.
type Options struct {
	JSONPath string // also stream rows as JSON to this file
}

// Bench is a started measurement setup.
type Bench struct {
	Session *sweep.Session
	hw      io.Closer

	once sync.Once
	err  error
}

// Start brings the bench up and prints the informational header to out. The CSV written by
// the session goes to out as well.
func Start(ctx context.Context, cfg *config.Config, out io.Writer, opts Options, deps Deps) (*Bench, error) {
	table, err := config.LoadPATable(cfg.Radio.PATable)
	if err != nil {
		return nil, &ExitError{Code: 1, Err: err}
	}

	fmt.Fprint(out, "[Radio] Initializing ... ")
	radio, hw, err := deps.OpenRadio(cfg.Radio, table)
	if err != nil {
		fmt.Fprintln(out, color.RedString("failed"))
		return nil, &ExitError{Code: 1, Err: err}
	}
	if err := radio.Begin(); err != nil {
		code := sx126x.Code(err)
		fmt.Fprintf(out, "%s, code %d\n", color.RedString("failed"), code)
		_ = hw.Close()
		return nil, &ExitError{Code: code, Err: err}
	}
	fmt.Fprintln(out, color.GreenString("success!"))

	release := func(closers ...io.Closer) {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	rf, err := deps.ConnectRF(ctx, rfTransport(cfg.RF))
	if err != nil {
		fmt.Fprintln(out, color.RedString("Failed to initialize RF powermon client - is the server running?"))
		release(hw)
		return nil, &ExitError{Code: 1, Err: err}
	}
	dc, err := deps.ConnectDC(ctx, powermon.Socket{Addr: cfg.DC.Addr, Timeout: ms(cfg.DC.TimeoutMs)})
	if err != nil {
		fmt.Fprintln(out, color.RedString("Failed to initialize DC powermon client - is the server running?"))
		release(rf, hw)
		return nil, &ExitError{Code: 1, Err: err}
	}

	fmt.Fprintf(out, "Connected to RF power monitor: %s\n", rf.ID())
	fmt.Fprintf(out, "Connected to DC power monitor: %s\n", dc.ID())

	state := sx126x.Code(radio.SetCurrentLimit(cfg.Radio.CurrentLimit))
	fmt.Fprintf(out, "setCurrentLimit, code %d\n\n", state)

	var sink sweep.RowSink
	if opts.JSONPath != "" {
		if sink, err = openJSONSink(opts.JSONPath); err != nil {
			release(rf, dc, hw)
			return nil, &ExitError{Code: 1, Err: err}
		}
	}

	s := cfg.Sweep
	session, err := sweep.NewSession(radio, rf, dc, out, sweep.Options{
		Grid: sweep.Grid{
			Power:     sweep.Range{Min: s.Power.Min, Max: s.Power.Max},
			DutyCycle: sweep.Range{Min: s.DutyCycle.Min, Max: s.DutyCycle.Max},
			HpMax:     sweep.Range{Min: s.HpMax.Min, Max: s.HpMax.Max},
			Trials:    s.Trials,
		},
		Timing:     sweep.Timing{Settle: ms(s.SettleMs), Recover: ms(s.RecoverMs)},
		GainOffset: s.GainOffset,
		Sink:       sink,
	})
	if err != nil {
		if sink != nil {
			_ = sink.Close()
		}
		release(rf, dc, hw)
		return nil, &ExitError{Code: 1, Err: err}
	}
	return &Bench{Session: session, hw: hw}, nil
}

// Close runs the session finalizer and then releases the hardware.
func (b *Bench) Close() error {
	b.once.Do(func() {
		b.err = errors.Join(b.Session.Close(), b.hw.Close())
	})
	return b.err
}

func rfTransport(c config.RFConfig) powermon.Transport {
	if c.Transport == config.TransportSocket {
		return powermon.Socket{Addr: c.Addr, Timeout: ms(c.TimeoutMs)}
	}
	return powermon.Serial{Port: c.SerialPort, Baud: c.Baud}
}

func openJSONSink(path string) (*sweep.JSONSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	sink, err := sweep.NewJSONSink(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return sink, nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
