package sx126x

// SPI command opcodes.
const (
	CMD_SET_STANDBY            = 0x80
	CMD_SET_TX_CONTINUOUS_WAVE = 0xD1
	CMD_SET_REGULATOR_MODE     = 0x96
	CMD_SET_PA_CONFIG          = 0x95
	CMD_SET_DIO2_AS_RF_SWITCH  = 0x9D
	CMD_SET_RF_FREQUENCY       = 0x86
	CMD_SET_PACKET_TYPE        = 0x8A
	CMD_SET_TX_PARAMS          = 0x8E
	CMD_GET_STATUS             = 0xC0
	CMD_WRITE_REGISTER         = 0x0D
	CMD_READ_REGISTER          = 0x1D
	CMD_NOP                    = 0x00
)

// Registers.
const (
	REG_VERSION_STRING = 0x0320 // 16 bytes, e.g. "SX1261 V2D 2D02"
	REG_OCP            = 0x08E7 // over-current protection, 2.5 mA steps
)

const (
	STANDBY_RC   = 0x00
	STANDBY_XOSC = 0x01

	PACKET_TYPE_GFSK = 0x00
	PACKET_TYPE_LORA = 0x01

	REGULATOR_LDO   = 0x00
	REGULATOR_DC_DC = 0x01

	PA_DEVICE_SX1262 = 0x00
	PA_LUT           = 0x01

	RAMP_200U = 0x04
)

const (
	// Command status, bits 3:1 of the status byte.
	STATUS_CMD_MASK       = 0x0E
	STATUS_CMD_TIMEOUT    = 0x03 << 1
	STATUS_CMD_INVALID    = 0x04 << 1
	STATUS_CMD_FAILED     = 0x05 << 1
	STATUS_SPI_FAILED     = 0xFF
	STATUS_MODE_MASK      = 0x70
	STATUS_MODE_STDBY_RC  = 0x02 << 4
	STATUS_MODE_TX        = 0x06 << 4
	STATUS_MODE_STDBY_OSC = 0x03 << 4
)

// Driver status codes reported by Begin and the configuration calls. Zero is success.
const (
	ErrNone                = 0
	ErrChipNotFound        = -2
	ErrInvalidOutputPower  = -13
	ErrInvalidCurrentLimit = -17
	ErrSPICmdTimeout       = -705
	ErrSPICmdInvalid       = -706
	ErrSPICmdFailed        = -707
)

// Limits of the SX1262 high-power PA.
const (
	PowerMin        = -9
	PowerMax        = 22
	DutyCycleMin    = 1
	DutyCycleMax    = 4
	HpMaxMin        = 0
	HpMaxMax        = 7
	CurrentLimitMax = 140.0 // mA
	ocpStep         = 2.5   // mA per OCP register LSB
	xtalFreq        = 32000000
	versionLen      = 16
)
