package sx126x

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"
)

// fakeChip is a register-level stand-in for an SX1262 on the SPI bus.
type fakeChip struct {
	regs   map[uint16]byte
	cmds   []byte
	params map[byte][]byte
	status byte
	txErr  error
}

func newFakeChip() *fakeChip {
	f := &fakeChip{regs: map[uint16]byte{}, params: map[byte][]byte{}}
	for i, b := range []byte("SX1261 V2D 2D02\x00") {
		f.regs[REG_VERSION_STRING+uint16(i)] = b
	}
	return f
}

func (f *fakeChip) Tx(w, r []byte) error {
	if f.txErr != nil {
		return f.txErr
	}
	switch w[0] {
	case CMD_GET_STATUS:
		r[1] = f.status
	case CMD_READ_REGISTER:
		addr := uint16(w[1])<<8 | uint16(w[2])
		for i := range r[4:] {
			r[4+i] = f.regs[addr+uint16(i)]
		}
	case CMD_WRITE_REGISTER:
		addr := uint16(w[1])<<8 | uint16(w[2])
		for i, b := range w[3:] {
			f.regs[addr+uint16(i)] = b
		}
	default:
		f.cmds = append(f.cmds, w[0])
		f.params[w[0]] = append([]byte(nil), w[1:]...)
	}
	return nil
}

func newTestRadio(t *testing.T, opts RadioOpts) (*Radio, *fakeChip, *gpiotest.Pin) {
	t.Helper()
	chip := newFakeChip()
	busy := &gpiotest.Pin{N: "BUSY", L: gpio.Low}
	reset := &gpiotest.Pin{N: "NRESET", L: gpio.Low}
	if opts.Logger == nil {
		opts.Logger = t.Logf
	}
	return New(chip, busy, reset, opts), chip, reset
}

func TestBegin(t *testing.T) {
	r, chip, reset := newTestRadio(t, RadioOpts{})
	require.NoError(t, r.Begin())

	assert.Equal(t, gpio.High, reset.Read(), "reset must be released")
	assert.Equal(t, []byte{CMD_SET_STANDBY, CMD_SET_PACKET_TYPE, CMD_SET_REGULATOR_MODE, CMD_SET_RF_FREQUENCY}, chip.cmds)
	assert.Equal(t, []byte{PACKET_TYPE_LORA}, chip.params[CMD_SET_PACKET_TYPE])
	// 434 MHz * 2^25 / 32 MHz = 0x1B200000
	assert.Equal(t, []byte{0x1B, 0x20, 0x00, 0x00}, chip.params[CMD_SET_RF_FREQUENCY])
}

func TestBegin_RfSwitch(t *testing.T) {
	r, chip, _ := newTestRadio(t, RadioOpts{DIO2RfSwitch: true, Freq: 868000000})
	require.NoError(t, r.Begin())
	assert.Contains(t, chip.cmds, byte(CMD_SET_DIO2_AS_RF_SWITCH))
	assert.Equal(t, []byte{0x36, 0x40, 0x00, 0x00}, chip.params[CMD_SET_RF_FREQUENCY])
}

func TestBegin_ChipNotFound(t *testing.T) {
	r, chip, _ := newTestRadio(t, RadioOpts{})
	chip.regs = map[uint16]byte{}

	err := r.Begin()
	require.Error(t, err)
	assert.Equal(t, ErrChipNotFound, Code(err))
}

func TestBegin_BusyStuck(t *testing.T) {
	chip := newFakeChip()
	busy := &gpiotest.Pin{N: "BUSY", L: gpio.High}
	reset := &gpiotest.Pin{N: "NRESET"}
	r := New(chip, busy, reset, RadioOpts{BusyTimeout: 5 * time.Millisecond})

	err := r.Begin()
	require.Error(t, err)
	assert.Equal(t, ErrSPICmdTimeout, Code(err))
	assert.Empty(t, chip.cmds, "no command may be sent while BUSY is high")
}

func TestBegin_SPIError(t *testing.T) {
	r, chip, _ := newTestRadio(t, RadioOpts{})
	chip.txErr = errors.New("spi: bus gone")

	err := r.Begin()
	require.Error(t, err)
	assert.ErrorIs(t, err, chip.txErr)
	assert.Equal(t, ErrSPICmdFailed, Code(err))
}

func TestSetOutputPower_Unoptimized(t *testing.T) {
	r, chip, _ := newTestRadio(t, RadioOpts{})
	chip.regs[REG_OCP] = 0x38

	require.NoError(t, r.SetOutputPower(-9, false))
	assert.Equal(t, []byte{4, 7, PA_DEVICE_SX1262, PA_LUT}, chip.params[CMD_SET_PA_CONFIG])
	assert.Equal(t, []byte{0xF7, RAMP_200U}, chip.params[CMD_SET_TX_PARAMS])
	assert.Equal(t, byte(0x38), chip.regs[REG_OCP], "OCP must survive a PA update")
}

func TestSetOutputPower_Optimized(t *testing.T) {
	table := []PAEntry{{Power: 14, DutyCycle: 2, HpMax: 2, PaVal: 22}}
	r, chip, _ := newTestRadio(t, RadioOpts{PATable: table})

	require.NoError(t, r.SetOutputPower(14, true))
	assert.Equal(t, []byte{2, 2, PA_DEVICE_SX1262, PA_LUT}, chip.params[CMD_SET_PA_CONFIG])
	assert.Equal(t, []byte{22, RAMP_200U}, chip.params[CMD_SET_TX_PARAMS])

	// missing entry falls back to the full-size PA
	require.NoError(t, r.SetOutputPower(10, true))
	assert.Equal(t, []byte{4, 7, PA_DEVICE_SX1262, PA_LUT}, chip.params[CMD_SET_PA_CONFIG])
	assert.Equal(t, []byte{10, RAMP_200U}, chip.params[CMD_SET_TX_PARAMS])
}

func TestSetOutputPower_OutOfRange(t *testing.T) {
	r, chip, _ := newTestRadio(t, RadioOpts{})
	for _, p := range []int{-10, 23} {
		err := r.SetOutputPower(p, false)
		assert.Equal(t, ErrInvalidOutputPower, Code(err), "power %d", p)
	}
	assert.Empty(t, chip.cmds)
}

func TestSetOutputPowerConfig(t *testing.T) {
	r, chip, _ := newTestRadio(t, RadioOpts{})

	require.NoError(t, r.SetOutputPowerConfig(22, 3, 5))
	assert.Equal(t, []byte{3, 5, PA_DEVICE_SX1262, PA_LUT}, chip.params[CMD_SET_PA_CONFIG])
	assert.Equal(t, []byte{22, RAMP_200U}, chip.params[CMD_SET_TX_PARAMS])

	bad := [][3]int{{-10, 1, 0}, {0, 0, 0}, {0, 5, 0}, {0, 1, -1}, {0, 1, 8}}
	for _, b := range bad {
		err := r.SetOutputPowerConfig(b[0], b[1], b[2])
		assert.Equal(t, ErrInvalidOutputPower, Code(err), "config %v", b)
	}
}

func TestTransmitDirectAndStandby(t *testing.T) {
	r, chip, _ := newTestRadio(t, RadioOpts{})
	require.NoError(t, r.TransmitDirect())
	require.NoError(t, r.Standby())
	assert.Equal(t, []byte{CMD_SET_TX_CONTINUOUS_WAVE, CMD_SET_STANDBY}, chip.cmds)
	assert.Equal(t, []byte{STANDBY_RC}, chip.params[CMD_SET_STANDBY])
}

func TestCommandStatus(t *testing.T) {
	cases := []struct {
		status byte
		code   int
	}{
		{0x00, ErrNone},
		{STATUS_MODE_TX | 0x02<<1, ErrNone},
		{STATUS_MODE_STDBY_RC | STATUS_CMD_TIMEOUT, ErrSPICmdTimeout},
		{STATUS_MODE_STDBY_RC | STATUS_CMD_INVALID, ErrSPICmdInvalid},
		{STATUS_MODE_STDBY_RC | STATUS_CMD_FAILED, ErrSPICmdFailed},
		{STATUS_SPI_FAILED, ErrChipNotFound},
	}
	for _, c := range cases {
		r, chip, _ := newTestRadio(t, RadioOpts{})
		chip.status = c.status
		assert.Equal(t, c.code, Code(r.TransmitDirect()), "status %#x", c.status)
	}
}

func TestSetCurrentLimit(t *testing.T) {
	r, chip, _ := newTestRadio(t, RadioOpts{})

	require.NoError(t, r.SetCurrentLimit(140))
	assert.Equal(t, byte(56), chip.regs[REG_OCP])
	got, err := r.CurrentLimit()
	require.NoError(t, err)
	assert.Equal(t, 140.0, got)

	assert.Equal(t, ErrInvalidCurrentLimit, Code(r.SetCurrentLimit(140.5)))
	assert.Equal(t, ErrInvalidCurrentLimit, Code(r.SetCurrentLimit(-1)))
}

func TestCode(t *testing.T) {
	assert.Equal(t, ErrNone, Code(nil))
	assert.Equal(t, ErrSPICmdFailed, Code(errors.New("boom")))
	wrapped := errors.Join(errors.New("ctx"), &StatusError{Op: "x", Code: ErrChipNotFound})
	assert.Equal(t, ErrChipNotFound, Code(wrapped))
	assert.EqualError(t, &StatusError{Op: "begin", Code: -2}, "sx126x: begin failed, code -2")
}
