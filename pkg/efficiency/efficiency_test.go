package efficiency

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expect(rf, dc, baseline float64) float64 {
	return 100 * math.Pow(10, rf/10) / (dc - baseline)
}

func TestCompute_MatchesFormula(t *testing.T) {
	cases := []struct {
		rf, dc, baseline float64
	}{
		{rf: 22.0, dc: 420.0, baseline: 20.0},
		{rf: 14.0, dc: 180.5, baseline: 21.3},
		{rf: -9.0, dc: 35.0, baseline: 20.0},
		{rf: 0.0, dc: 10.0, baseline: 0.0},
	}
	for i, c := range cases {
		got, ok := Compute(c.rf, c.dc, c.baseline)
		require.True(t, ok, "case %d", i)
		require.InDelta(t, expect(c.rf, c.dc, c.baseline), got, 1e-9, "case %d", i)
		t.Logf("case %d: rf=%.2fdBm dc=%.2fmW baseline=%.2fmW -> eff=%.4f%%", i, c.rf, c.dc, c.baseline, got)
	}
}

func TestCompute_UndefinedDenominator(t *testing.T) {
	cases := []struct {
		name             string
		rf, dc, baseline float64
	}{
		{"dc equals baseline", 10, 25, 25},
		{"dc below baseline", 10, 20, 25},
		{"nan dc", 10, math.NaN(), 25},
		{"inf rf", math.Inf(1), 30, 25},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Compute(c.rf, c.dc, c.baseline)
			assert.False(t, ok)
			assert.Equal(t, 0.0, got)
		})
	}
}

func TestAccumulator_Sequence(t *testing.T) {
	acc := New()
	pairs := []Pair{
		{Unoptimized: 400, Optimized: 360},
		{Unoptimized: 410, Optimized: 365},
		{Unoptimized: 395, Optimized: 350},
	}

	var sumU, sumO, sumS float64
	for i, p := range pairs {
		res := acc.Apply(p)
		want := 100 * (p.Unoptimized - p.Optimized) / p.Unoptimized
		require.InDelta(t, want, res.Saving, 1e-9, "saving at trial %d", i)
		sumU += p.Unoptimized
		sumO += p.Optimized
		sumS += want
	}

	require.Equal(t, len(pairs), acc.Count())
	avg := acc.Averages()
	n := float64(len(pairs))
	assert.InDelta(t, sumU/n, avg.Unoptimized, 1e-12)
	assert.InDelta(t, sumO/n, avg.Optimized, 1e-12)
	assert.InDelta(t, sumS/n, avg.Saving, 1e-12)
	assert.Len(t, acc.Savings(), len(pairs))
}

func TestAccumulator_ZeroPaths(t *testing.T) {
	acc := New()
	assert.Equal(t, Result{}, acc.Averages())

	res := acc.Apply(Pair{Unoptimized: 0, Optimized: 5})
	assert.Equal(t, 0.0, res.Saving)

	// Savings returns a copy
	s := acc.Savings()
	s[0] = 99
	assert.Equal(t, 0.0, acc.Savings()[0])
}

func ExampleCompute() {
	eff, ok := Compute(20, 220, 20)
	fmt.Printf("eff=%.2f%% ok=%v\n", eff, ok)
	// Output: eff=50.00% ok=true
}
