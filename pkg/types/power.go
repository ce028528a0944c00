package types

import (
	"fmt"
	"math"
)

// DBm is a power level in decibel-milliwatts.
type DBm float64

// MilliWatts is a linear power in milliwatts.
type MilliWatts float64

// MilliWatts converts the level to linear power.
func (d DBm) MilliWatts() MilliWatts { return MilliWatts(math.Pow(10, float64(d)/10)) }

// Offset returns the level corrected by a fixed gain, e.g. an attenuator in front of the meter.
func (d DBm) Offset(gain float64) DBm { return d + DBm(gain) }

func (d DBm) String() string { return fmt.Sprintf("%.2f dBm", float64(d)) }

// DBm converts the linear power to a level. Zero or negative power has no level
// and returns -Inf.
func (m MilliWatts) DBm() DBm {
	if m <= 0 {
		return DBm(math.Inf(-1))
	}
	return DBm(10 * math.Log10(float64(m)))
}

// Humanized returns a human-readable string with automatic unit (µW, mW, W).
func (m MilliWatts) Humanized() string {
	v := float64(m)
	switch {
	case math.Abs(v) >= 1000:
		return fmt.Sprintf("%.2f W", v/1000)
	case math.Abs(v) >= 1 || v == 0:
		return fmt.Sprintf("%.2f mW", v)
	default:
		return fmt.Sprintf("%.2f µW", v*1000)
	}
}
