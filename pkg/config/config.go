// Package config loads the bench configuration: radio wiring, meter transports and the sweep
// grid. Every value defaults to the constants the sweep programs were characterised with, so an
// empty or missing file reproduces the reference setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/ja7ad/pasweep/pkg/util"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "PASWEEP_CONFIG"

var ErrInvalid = errors.New("config: invalid")

// Transport kinds for the RF meter.
const (
	TransportSerial = "serial"
	TransportSocket = "socket"
)

// Config is the complete bench configuration.
type Config struct {
	Radio RadioConfig `yaml:"radio"`
	RF    RFConfig    `yaml:"rf"`
	DC    DCConfig    `yaml:"dc"`
	Sweep SweepConfig `yaml:"sweep"`
}

// RadioConfig describes how the SX1262 is wired.
type RadioConfig struct {
	SPIPort      string  `yaml:"spiPort"` // periph SPI port name, empty for the first one
	SPIMHz       int     `yaml:"spiMHz"`
	ResetPin     string  `yaml:"resetPin"`
	BusyPin      string  `yaml:"busyPin"`
	FrequencyHz  uint32  `yaml:"frequencyHz"`
	DIO2RfSwitch bool    `yaml:"dio2RfSwitch"`
	CurrentLimit float64 `yaml:"currentLimit"` // mA
	PATable      string  `yaml:"paTable"`      // optimized PA table written by pa-analyze
}

// RFConfig selects the RF power meter transport.
type RFConfig struct {
	Transport  string `yaml:"transport"`
	SerialPort string `yaml:"serialPort"`
	Baud       uint   `yaml:"baud"`
	Addr       string `yaml:"addr"`
	TimeoutMs  int    `yaml:"timeoutMs"`
}

// DCConfig locates the DC power monitor server.
type DCConfig struct {
	Addr      string `yaml:"addr"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

// SweepConfig holds the grid and the settle delays.
type SweepConfig struct {
	GainOffset float64     `yaml:"gainOffset"` // dB added to every RF reading
	SettleMs   int         `yaml:"settleMs"`   // after transmit, before sampling
	RecoverMs  int         `yaml:"recoverMs"`  // after standby, before reconfiguring
	Trials     int         `yaml:"trials"`
	Power      RangeConfig `yaml:"power"`
	DutyCycle  RangeConfig `yaml:"dutyCycle"`
	HpMax      RangeConfig `yaml:"hpMax"`
}

// RangeConfig is a closed integer range.
type RangeConfig struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Radio: RadioConfig{
			SPIMHz:       8,
			ResetPin:     "GPIO18",
			BusyPin:      "GPIO20",
			FrequencyHz:  434000000,
			CurrentLimit: 140,
		},
		RF: RFConfig{
			Transport:  TransportSerial,
			SerialPort: "/dev/ttyUSB0",
			Baud:       115200,
			Addr:       "localhost:41122",
			TimeoutMs:  2000,
		},
		DC: DCConfig{
			Addr:      "localhost:41123",
			TimeoutMs: 2000,
		},
		Sweep: SweepConfig{
			GainOffset: 30,
			SettleMs:   1000,
			RecoverMs:  500,
			Trials:     10,
			Power:      RangeConfig{Min: -9, Max: 22},
			DutyCycle:  RangeConfig{Min: 1, Max: 4},
			HpMax:      RangeConfig{Min: 0, Max: 7},
		},
	}
}

// Load builds the configuration from the defaults, the YAML file at path (or the file named by
// PASWEEP_CONFIG when path is empty) and the environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PASWEEP_RF_TRANSPORT"); v != "" {
		cfg.RF.Transport = v
	}
	if v := os.Getenv("PASWEEP_RF_SERIAL"); v != "" {
		cfg.RF.SerialPort = v
	}
	if v := os.Getenv("PASWEEP_RF_ADDR"); v != "" {
		cfg.RF.Addr = v
	}
	if v := os.Getenv("PASWEEP_DC_ADDR"); v != "" {
		cfg.DC.Addr = v
	}
	if v := os.Getenv("PASWEEP_SPI_PORT"); v != "" {
		cfg.Radio.SPIPort = v
	}
	if v := os.Getenv("PASWEEP_GAIN_OFFSET"); v != "" {
		if g, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sweep.GainOffset = g
		}
	}
}

// Validate checks the configuration. Grid ranges may be narrowed but never widened beyond what
// the radio accepts.
func (c *Config) Validate() error {
	if c.RF.Transport != TransportSerial && c.RF.Transport != TransportSocket {
		return fmt.Errorf("%w: rf transport %q, must be %s or %s", ErrInvalid, c.RF.Transport, TransportSerial, TransportSocket)
	}
	if c.RF.Transport == TransportSerial && (c.RF.SerialPort == "" || c.RF.Baud == 0) {
		return fmt.Errorf("%w: rf serial transport needs serialPort and baud", ErrInvalid)
	}
	if c.RF.Transport == TransportSocket && c.RF.Addr == "" {
		return fmt.Errorf("%w: rf socket transport needs addr", ErrInvalid)
	}
	if c.DC.Addr == "" {
		return fmt.Errorf("%w: dc addr is empty", ErrInvalid)
	}
	if c.Radio.ResetPin == "" || c.Radio.BusyPin == "" {
		return fmt.Errorf("%w: radio resetPin and busyPin are required", ErrInvalid)
	}
	if c.Radio.SPIMHz <= 0 || c.Radio.SPIMHz > 16 {
		return fmt.Errorf("%w: spiMHz %d outside [1, 16]", ErrInvalid, c.Radio.SPIMHz)
	}
	if c.Radio.CurrentLimit < 0 || c.Radio.CurrentLimit > 140 {
		return fmt.Errorf("%w: currentLimit %.1f outside [0, 140]", ErrInvalid, c.Radio.CurrentLimit)
	}

	s := c.Sweep
	if err := checkRange("power", s.Power, -9, 22); err != nil {
		return err
	}
	if err := checkRange("dutyCycle", s.DutyCycle, 1, 4); err != nil {
		return err
	}
	if err := checkRange("hpMax", s.HpMax, 0, 7); err != nil {
		return err
	}
	if s.Trials <= 0 {
		return fmt.Errorf("%w: trials must be > 0", ErrInvalid)
	}
	if s.SettleMs < 0 || s.RecoverMs < 0 {
		return fmt.Errorf("%w: settle delays must be >= 0", ErrInvalid)
	}
	return nil
}

func checkRange(name string, r RangeConfig, lo, hi int) error {
	if r.Min > r.Max || !util.InRange(r.Min, lo, hi) || !util.InRange(r.Max, lo, hi) {
		return fmt.Errorf("%w: %s range [%d, %d] must lie within [%d, %d]", ErrInvalid, name, r.Min, r.Max, lo, hi)
	}
	return nil
}
