package sweep

import (
	"fmt"
	"time"

	"github.com/ja7ad/pasweep/pkg/util"
)

// Radio is the part of the radio controller the sweeps drive.
type Radio interface {
	SetOutputPower(dBm int, optimize bool) error
	SetOutputPowerConfig(dBm, paDutyCycle, hpMax int) error
	TransmitDirect() error
	Standby() error
}

// RFMeter reads the RF power meter, in dBm.
type RFMeter interface {
	ReadPower() (float64, error)
	Close() error
}

// DCMeter reads the DC shunt/bus monitor.
type DCMeter interface {
	ReadPower() (float64, error)        // mW
	ReadCurrent() (float64, error)      // mA
	ReadShuntVoltage() (float64, error) // mV
	ReadBusVoltage() (float64, error)   // V
	Close() error
}

// Limits accepted by the radio.
var (
	PowerLimits     = Range{Min: -9, Max: 22}
	DutyCycleLimits = Range{Min: 1, Max: 4}
	HpMaxLimits     = Range{Min: 0, Max: 7}
)

// Range is a closed integer range.
type Range struct {
	Min, Max int
}

func (r Range) Contains(v int) bool { return util.InRange(v, r.Min, r.Max) }

// Within reports whether r is a non-empty sub-range of outer.
func (r Range) Within(outer Range) bool {
	return r.Min <= r.Max && outer.Contains(r.Min) && outer.Contains(r.Max)
}

// Grid is the configuration space of a sweep.
type Grid struct {
	Power     Range
	DutyCycle Range
	HpMax     Range
	Trials    int // comparison trials per power level
}

// DefaultGrid returns the full grid with 10 trials.
func DefaultGrid() Grid {
	return Grid{Power: PowerLimits, DutyCycle: DutyCycleLimits, HpMax: HpMaxLimits, Trials: 10}
}

// Validate rejects grids that would present out-of-range values to the radio.
func (g Grid) Validate() error {
	switch {
	case !g.Power.Within(PowerLimits):
		return fmt.Errorf("%w: power %v outside %v", ErrGrid, g.Power, PowerLimits)
	case !g.DutyCycle.Within(DutyCycleLimits):
		return fmt.Errorf("%w: duty cycle %v outside %v", ErrGrid, g.DutyCycle, DutyCycleLimits)
	case !g.HpMax.Within(HpMaxLimits):
		return fmt.Errorf("%w: hpMax %v outside %v", ErrGrid, g.HpMax, HpMaxLimits)
	case g.Trials <= 0:
		return fmt.Errorf("%w: trials must be > 0", ErrGrid)
	}
	return nil
}

// Timing holds the fixed settle delays.
type Timing struct {
	Settle  time.Duration // after TransmitDirect, before sampling
	Recover time.Duration // after Standby, before the next configuration
}

func DefaultTiming() Timing {
	return Timing{Settle: time.Second, Recover: 500 * time.Millisecond}
}

// Sample is one point-in-time reading of both meters.
type Sample struct {
	RFPower      float64 `json:"rf_power_dbm"` // gain offset applied
	BusVoltage   float64 `json:"bus_voltage_v"`
	ShuntVoltage float64 `json:"shunt_voltage_mv"`
	Current      float64 `json:"current_ma"`
	Power        float64 `json:"power_mw"`
}

// CompareRow is one trial of the comparison sweep.
type CompareRow struct {
	At          time.Time `json:"time"`
	Set         int       `json:"set_dbm"`
	Trial       int       `json:"trial"`
	Unoptimized Sample    `json:"unoptimized"`
	Optimized   Sample    `json:"optimized"`
}

// MeasureRow is one non-baseline point of the efficiency map.
type MeasureRow struct {
	At         time.Time `json:"time"`
	Set        int       `json:"set_dbm"`
	DutyCycle  int       `json:"pa_duty_cycle"`
	HpMax      int       `json:"hp_max"`
	Sample     Sample    `json:"sample"`
	Baseline   float64   `json:"baseline_mw"`
	Efficiency float64   `json:"efficiency_pct"`
}
