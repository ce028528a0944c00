package bench

import (
	"fmt"
	"io"
	"log/slog"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/ja7ad/pasweep/pkg/config"
	"github.com/ja7ad/pasweep/pkg/sx126x"
)

type hardware struct {
	radio *sx126x.Radio
	port  spi.PortCloser
}

// OpenRadio initializes periph, opens the SPI port and the BUSY/NRESET pins and returns the
// SX1262 behind them. The returned closer halts the pins and releases the port.
func OpenRadio(rc config.RadioConfig, table []sx126x.PAEntry) (Device, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph host init: %w", err)
	}

	reset := gpioreg.ByName(rc.ResetPin)
	if reset == nil {
		return nil, nil, fmt.Errorf("cannot open reset pin %s", rc.ResetPin)
	}
	busy := gpioreg.ByName(rc.BusyPin)
	if busy == nil {
		return nil, nil, fmt.Errorf("cannot open busy pin %s", rc.BusyPin)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, nil, fmt.Errorf("busy pin %s: %w", rc.BusyPin, err)
	}

	port, err := spireg.Open(rc.SPIPort)
	if err != nil {
		return nil, nil, fmt.Errorf("open spi port %q: %w", rc.SPIPort, err)
	}
	conn, err := port.Connect(physic.Frequency(rc.SPIMHz)*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, nil, fmt.Errorf("connect spi port %q: %w", rc.SPIPort, err)
	}

	radio := sx126x.New(conn, busy, reset, sx126x.RadioOpts{
		Freq:         rc.FrequencyHz,
		DIO2RfSwitch: rc.DIO2RfSwitch,
		PATable:      table,
		Logger:       driverLog,
	})
	return radio, &hardware{radio: radio, port: port}, nil
}

func (h *hardware) Close() error {
	err := h.radio.Close()
	if cerr := h.port.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// driverLog routes the driver's printf logging to slog at debug level.
func driverLog(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "sx126x")
}
