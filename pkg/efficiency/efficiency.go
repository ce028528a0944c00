// Package efficiency holds the power arithmetic shared by the sweep programs and
// the offline analysis: RF efficiency relative to a leakage baseline, and the
// per-trial savings of the optimized PA configuration.
package efficiency

import (
	"math"

	"github.com/ja7ad/pasweep/pkg/types"
	"github.com/ja7ad/pasweep/pkg/util"
)

// Compute returns the RF efficiency in percent:
//
//	eff = 100 * 10^(rf/10) / (dc - baseline)
//
// rfDBm is the corrected RF output level, dcMW and baselineMW are DC powers in mW.
// ok is false when the RF-attributable DC power is not strictly positive or the
// result is not finite; the value is then 0 and must not be reported as a measurement.
func Compute(rfDBm, dcMW, baselineMW float64) (eff float64, ok bool) {
	denom := dcMW - baselineMW
	if !(denom > 0) {
		return 0, false
	}
	eff = 100 * float64(types.DBm(rfDBm).MilliWatts()) / denom
	if !util.Finite(eff) {
		return 0, false
	}
	return eff, true
}

// Accumulator keeps running sums of comparison trials.
type Accumulator struct {
	count     int
	sumUnopt  float64
	sumOpt    float64
	sumSaving float64
	savings   []float64
}

// New creates an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Apply adds one trial and returns its own breakdown.
// The saving of a trial with zero unoptimized power is 0.
func (a *Accumulator) Apply(p Pair) Result {
	saving := 100 * util.SafeDiv(p.Unoptimized-p.Optimized, p.Unoptimized)
	if math.IsNaN(saving) {
		saving = 0
	}

	a.count++
	a.sumUnopt += p.Unoptimized
	a.sumOpt += p.Optimized
	a.sumSaving += saving
	a.savings = append(a.savings, saving)

	return Result{Unoptimized: p.Unoptimized, Optimized: p.Optimized, Saving: saving}
}

// Count returns the number of applied trials.
func (a *Accumulator) Count() int { return a.count }

// Savings returns the per-trial savings in the order they were applied.
func (a *Accumulator) Savings() []float64 {
	out := make([]float64, len(a.savings))
	copy(out, a.savings)
	return out
}

// Averages returns the mean over all applied trials.
func (a *Accumulator) Averages() Result {
	if a.count == 0 {
		return Result{}
	}
	n := float64(a.count)
	return Result{
		Unoptimized: a.sumUnopt / n,
		Optimized:   a.sumOpt / n,
		Saving:      a.sumSaving / n,
	}
}
