package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeDiv(t *testing.T) {
	assert.Equal(t, 2.5, SafeDiv(5, 2))
	assert.Equal(t, -2.5, SafeDiv(5, -2))
	// zero and near-zero denominators collapse to 0 instead of ±Inf
	assert.Equal(t, 0.0, SafeDiv(5, 0))
	assert.Equal(t, 0.0, SafeDiv(5, 1e-13))
	assert.Equal(t, 0.0, SafeDiv(5, -1e-13))
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite(0))
	assert.True(t, Finite(-123.45))
	assert.False(t, Finite(math.NaN()))
	assert.False(t, Finite(math.Inf(1)))
	assert.False(t, Finite(math.Inf(-1)))
}

func TestFmtFloat(t *testing.T) {
	assert.Equal(t, "0.2", FmtFloat(0.2))
	assert.Equal(t, "-9", FmtFloat(-9))
	assert.Equal(t, "21.37", FmtFloat(21.37))
}

func TestInRange(t *testing.T) {
	cases := []struct {
		v, lo, hi int
		want      bool
	}{
		{-9, -9, 22, true},
		{22, -9, 22, true},
		{-10, -9, 22, false},
		{23, -9, 22, false},
		{0, 0, 7, true},
		{8, 0, 7, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, InRange(c.v, c.lo, c.hi), "v=%d [%d,%d]", c.v, c.lo, c.hi)
	}
}
