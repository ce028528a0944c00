package analyze

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/ja7ad/pasweep/pkg/efficiency"
)

// Savings summarizes the comparison trials of one set power.
type Savings struct {
	Set          int
	Trials       int
	Unoptimized  float64 // mean DC power, mW
	Optimized    float64 // mean DC power, mW
	Saving       float64 // mean per-trial saving, %
	SavingStdDev float64 // sample standard deviation of the per-trial saving, 0 for a single trial
	RFDelta      float64 // mean optimized minus unoptimized RF level, dB
}

// ComputeSavings groups trials by set power.
func ComputeSavings(trials []Trial) []Savings {
	type group struct {
		acc     *efficiency.Accumulator
		rfDelta []float64
	}
	groups := make(map[int]*group)
	for _, t := range trials {
		g := groups[t.Set]
		if g == nil {
			g = &group{acc: efficiency.New()}
			groups[t.Set] = g
		}
		g.acc.Apply(efficiency.Pair{Unoptimized: t.PowerUnoptimized, Optimized: t.PowerOptimized})
		g.rfDelta = append(g.rfDelta, t.MeasuredOptimized-t.MeasuredUnoptimized)
	}

	out := make([]Savings, 0, len(groups))
	for set, g := range groups {
		avg := g.acc.Averages()
		sd := 0.0
		if g.acc.Count() > 1 {
			sd = stat.StdDev(g.acc.Savings(), nil)
		}
		if math.IsNaN(sd) {
			sd = 0
		}
		out = append(out, Savings{
			Set:          set,
			Trials:       g.acc.Count(),
			Unoptimized:  avg.Unoptimized,
			Optimized:    avg.Optimized,
			Saving:       avg.Saving,
			SavingStdDev: sd,
			RFDelta:      stat.Mean(g.rfDelta, nil),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Set < out[j].Set })
	return out
}

// WriteSavings prints the savings as an aligned table.
func WriteSavings(w io.Writer, rows []Savings) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SET (dBm)\tTRIALS\tUNOPT (mW)\tOPT (mW)\tSAVING (%)\tSTDDEV (%)\tRF DELTA (dB)")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%+.2f\n",
			r.Set, r.Trials, r.Unoptimized, r.Optimized, r.Saving, r.SavingStdDev, r.RFDelta)
	}
	return tw.Flush()
}
