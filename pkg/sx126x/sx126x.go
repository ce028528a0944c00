// The sx126x package drives the output stage of a Semtech SX1262 radio connected to an SPI bus.
//
// The driver covers what a transmitter characterisation bench needs: reset and detect the chip,
// configure the high-power PA (either from a requested dBm value or from an explicit
// duty-cycle/hpMax pair), key a continuous-wave carrier, return to standby, and set the
// over-current protection limit. Packet modes are not implemented.
//
// Every SPI command waits for the BUSY line to drop first. A command that the chip rejects, or a
// BUSY line that never drops, is reported as a *StatusError carrying one of the negative status
// codes from registers.go.
//
// The methods on the Radio object are not concurrency safe.
package sx126x

import (
	"bytes"
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
)

// Conn is the SPI connection to the radio. A periph spi.Conn satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// PAEntry is one line of the optimized PA table: the PA configuration and the TX power value
// that give the lowest DC consumption for a requested output power.
type PAEntry struct {
	Power     int `yaml:"power"`       // requested output power in dBm
	DutyCycle int `yaml:"paDutyCycle"` // PA duty cycle
	HpMax     int `yaml:"hpMax"`       // PA size
	PaVal     int `yaml:"paVal"`       // value passed to SetTxParams
}

// RadioOpts contains options used when initializing a Radio.
type RadioOpts struct {
	Freq         uint32        // center frequency in Hz
	DIO2RfSwitch bool          // DIO2 drives the RF switch
	BusyTimeout  time.Duration // maximum time to wait for BUSY to drop
	PATable      []PAEntry     // optimized PA table, indexed by power; nil means identity
	Logger       LogPrintf     // function to use for logging
}

// Radio represents a Semtech SX1262 radio.
type Radio struct {
	spi         Conn        // SPI device to access the radio
	busy        gpio.PinIn  // BUSY line, high while the chip processes a command
	reset       gpio.PinOut // NRESET line, active low
	freq        uint32
	rfSwitch    bool
	busyTimeout time.Duration
	paTable     map[int]PAEntry
	log         LogPrintf
}

// New returns an sx126x Radio for the given connection and pins. It does not touch the hardware,
// call Begin for that.
func New(dev Conn, busy gpio.PinIn, reset gpio.PinOut, opts RadioOpts) *Radio {
	r := &Radio{
		spi: dev, busy: busy, reset: reset,
		freq:        opts.Freq,
		rfSwitch:    opts.DIO2RfSwitch,
		busyTimeout: opts.BusyTimeout,
		log:         func(format string, v ...interface{}) {},
	}
	if r.freq == 0 {
		r.freq = 434000000
	}
	if r.busyTimeout <= 0 {
		r.busyTimeout = time.Second
	}
	if opts.Logger != nil {
		r.log = opts.Logger
	}
	if len(opts.PATable) > 0 {
		r.paTable = make(map[int]PAEntry, len(opts.PATable))
		for _, e := range opts.PATable {
			r.paTable[e.Power] = e
		}
	}
	return r
}

// Begin resets the chip, verifies that an SX126x answers, and places it in standby with
// the LoRa packet type, the DC-DC regulator and the configured frequency.
func (r *Radio) Begin() error {
	if err := r.hardReset(); err != nil {
		return err
	}
	if err := r.Standby(); err != nil {
		return err
	}

	version, err := r.readReg(REG_VERSION_STRING, versionLen)
	if err != nil {
		return err
	}
	if !bytes.Contains(version, []byte("SX126")) {
		r.log("SX126x not found, version string %q", version)
		return &StatusError{Op: "begin", Code: ErrChipNotFound}
	}
	r.log("SX126x version %q", bytes.TrimRight(version, "\x00"))

	if err := r.command("set packet type", CMD_SET_PACKET_TYPE, PACKET_TYPE_LORA); err != nil {
		return err
	}
	if err := r.command("set regulator mode", CMD_SET_REGULATOR_MODE, REGULATOR_DC_DC); err != nil {
		return err
	}
	if r.rfSwitch {
		if err := r.command("set dio2 rf switch", CMD_SET_DIO2_AS_RF_SWITCH, 0x01); err != nil {
			return err
		}
	}
	return r.SetFrequency(r.freq)
}

// SetFrequency changes the RF frequency, in Hz.
func (r *Radio) SetFrequency(freq uint32) error {
	frf := uint32((uint64(freq) << 25) / xtalFreq)
	r.log("SetFreq %dHz -> %#x", freq, frf)
	if err := r.command("set rf frequency", CMD_SET_RF_FREQUENCY,
		byte(frf>>24), byte(frf>>16), byte(frf>>8), byte(frf)); err != nil {
		return err
	}
	r.freq = freq
	return nil
}

// SetOutputPower configures the PA for the requested output power in dBm, [-9, 22].
// Without optimize the PA runs at full size (duty cycle 4, hpMax 7). With optimize the
// configuration comes from the PA table; powers missing from the table fall back to the
// full-size configuration.
func (r *Radio) SetOutputPower(dBm int, optimize bool) error {
	if dBm < PowerMin || dBm > PowerMax {
		return &StatusError{Op: "set output power", Code: ErrInvalidOutputPower}
	}
	e := PAEntry{Power: dBm, DutyCycle: DutyCycleMax, HpMax: HpMaxMax, PaVal: dBm}
	if optimize {
		if opt, found := r.paTable[dBm]; found {
			e = opt
		} else {
			r.log("SetPower %ddBm: no PA table entry, using full-size PA", dBm)
		}
	}
	return r.applyPA(e.PaVal, e.DutyCycle, e.HpMax)
}

// SetOutputPowerConfig configures the PA with an explicit duty cycle and hpMax.
func (r *Radio) SetOutputPowerConfig(dBm, paDutyCycle, hpMax int) error {
	switch {
	case dBm < PowerMin || dBm > PowerMax,
		paDutyCycle < DutyCycleMin || paDutyCycle > DutyCycleMax,
		hpMax < HpMaxMin || hpMax > HpMaxMax:
		return &StatusError{Op: "set output power", Code: ErrInvalidOutputPower}
	}
	return r.applyPA(dBm, paDutyCycle, hpMax)
}

// applyPA writes the PA and TX parameters. SetPaConfig resets the OCP register, so its
// value is saved and restored around the update.
func (r *Radio) applyPA(power, duty, hpMax int) error {
	r.log("SetPower %ddBm duty=%d hpMax=%d", power, duty, hpMax)
	ocp, err := r.readReg(REG_OCP, 1)
	if err != nil {
		return err
	}
	if err := r.command("set pa config", CMD_SET_PA_CONFIG,
		byte(duty), byte(hpMax), PA_DEVICE_SX1262, PA_LUT); err != nil {
		return err
	}
	if err := r.command("set tx params", CMD_SET_TX_PARAMS, byte(int8(power)), RAMP_200U); err != nil {
		return err
	}
	return r.writeReg(REG_OCP, ocp[0])
}

// TransmitDirect starts transmitting an unmodulated carrier at the configured power.
func (r *Radio) TransmitDirect() error {
	r.log("TX continuous wave")
	return r.command("set tx continuous wave", CMD_SET_TX_CONTINUOUS_WAVE)
}

// Standby stops any transmission and puts the radio in STDBY_RC.
func (r *Radio) Standby() error {
	return r.command("set standby", CMD_SET_STANDBY, STANDBY_RC)
}

// SetCurrentLimit sets the over-current protection limit in mA, [0, 140].
func (r *Radio) SetCurrentLimit(mA float64) error {
	if mA < 0 || mA > CurrentLimitMax {
		return &StatusError{Op: "set current limit", Code: ErrInvalidCurrentLimit}
	}
	return r.writeReg(REG_OCP, byte(mA/ocpStep))
}

// CurrentLimit reads back the over-current protection limit in mA.
func (r *Radio) CurrentLimit() (float64, error) {
	v, err := r.readReg(REG_OCP, 1)
	if err != nil {
		return 0, err
	}
	return float64(v[0]) * ocpStep, nil
}

// Close halts the BUSY and NRESET pins. The SPI port belongs to the caller.
func (r *Radio) Close() error {
	if err := r.busy.Halt(); err != nil {
		return fmt.Errorf("sx126x: halt busy pin: %w", err)
	}
	if err := r.reset.Halt(); err != nil {
		return fmt.Errorf("sx126x: halt reset pin: %w", err)
	}
	return nil
}

//

// hardReset pulses NRESET and waits for the chip to come back.
func (r *Radio) hardReset() error {
	if err := r.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("sx126x: cannot drive reset pin: %w", err)
	}
	time.Sleep(time.Millisecond)
	if err := r.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("sx126x: cannot drive reset pin: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	return r.waitBusy("reset")
}

// waitBusy polls the BUSY line until it is low.
func (r *Radio) waitBusy(op string) error {
	deadline := time.Now().Add(r.busyTimeout)
	for r.busy.Read() == gpio.High {
		if time.Now().After(deadline) {
			r.log("%s: BUSY stuck high", op)
			return &StatusError{Op: op, Code: ErrSPICmdTimeout}
		}
		time.Sleep(100 * time.Microsecond)
	}
	return nil
}

// command sends an opcode with its parameters and checks the resulting command status.
func (r *Radio) command(op string, opcode byte, params ...byte) error {
	w := append([]byte{opcode}, params...)
	if err := r.tx(op, w, make([]byte, len(w))); err != nil {
		return err
	}
	return r.checkStatus(op)
}

// checkStatus issues GetStatus and maps the command status bits to a driver code.
func (r *Radio) checkStatus(op string) error {
	rBuf := make([]byte, 2)
	if err := r.tx(op, []byte{CMD_GET_STATUS, CMD_NOP}, rBuf); err != nil {
		return err
	}
	st := rBuf[1]
	if st == STATUS_SPI_FAILED {
		return &StatusError{Op: op, Code: ErrChipNotFound}
	}
	switch st & STATUS_CMD_MASK {
	case STATUS_CMD_TIMEOUT:
		return &StatusError{Op: op, Code: ErrSPICmdTimeout}
	case STATUS_CMD_INVALID:
		return &StatusError{Op: op, Code: ErrSPICmdInvalid}
	case STATUS_CMD_FAILED:
		return &StatusError{Op: op, Code: ErrSPICmdFailed}
	}
	return nil
}

// tx waits for BUSY and performs one SPI transaction.
func (r *Radio) tx(op string, w, rd []byte) error {
	if err := r.waitBusy(op); err != nil {
		return err
	}
	if err := r.spi.Tx(w, rd); err != nil {
		return fmt.Errorf("sx126x: %s: %w", op, err)
	}
	return nil
}

// writeReg writes one or multiple registers starting at addr.
func (r *Radio) writeReg(addr uint16, data ...byte) error {
	w := append([]byte{CMD_WRITE_REGISTER, byte(addr >> 8), byte(addr)}, data...)
	op := fmt.Sprintf("write register %#04x", addr)
	if err := r.tx(op, w, make([]byte, len(w))); err != nil {
		return err
	}
	return r.checkStatus(op)
}

// readReg reads n registers starting at addr.
func (r *Radio) readReg(addr uint16, n int) ([]byte, error) {
	w := make([]byte, 4+n)
	w[0], w[1], w[2] = CMD_READ_REGISTER, byte(addr>>8), byte(addr)
	rBuf := make([]byte, len(w))
	if err := r.tx(fmt.Sprintf("read register %#04x", addr), w, rBuf); err != nil {
		return nil, err
	}
	return rBuf[4:], nil
}
