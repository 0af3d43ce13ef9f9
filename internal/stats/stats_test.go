package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile_LinearInterpolation(t *testing.T) {
	s := Sorted([]float64{1, 2, 2, 3, 2, 1, 100})
	assert.Equal(t, []float64{1, 1, 2, 2, 2, 3, 100}, s)

	assert.InDelta(t, 1.5, Quantile(0.25, s), 1e-9)
	assert.InDelta(t, 2.0, Quantile(0.5, s), 1e-9)
	assert.InDelta(t, 2.5, Quantile(0.75, s), 1e-9)
	assert.Equal(t, 1.0, Quantile(0, s))
	assert.Equal(t, 100.0, Quantile(1, s))
	assert.True(t, math.IsNaN(Quantile(0.5, nil)))
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 2.5, Median([]float64{4, 1, 3, 2}), 1e-9)
	assert.InDelta(t, 3.0, Median([]float64{5, 3, 1}), 1e-9)
}

func TestMoments(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 3.0, Mean(x), 1e-9)
	assert.InDelta(t, math.Sqrt(2.5), StdDev(x), 1e-9)
	assert.InDelta(t, 0.0, Skewness(x), 1e-9)
	assert.InDelta(t, -1.2, Kurtosis(x), 1e-9)
	assert.InDelta(t, 15.0, Sum(x), 1e-9)
}

func TestMoments_Skewed(t *testing.T) {
	// Right tail pulls skewness positive.
	assert.Greater(t, Skewness([]float64{1, 1, 1, 2, 10}), 0.0)
}

func TestMoments_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{7}))
	assert.Equal(t, 0.0, Skewness([]float64{1, 2}))
	assert.Equal(t, 0.0, Kurtosis([]float64{1, 2, 3}))
	// zero variance is undefined, reported as 0
	assert.Equal(t, 0.0, Skewness([]float64{4, 4, 4, 4}))
	assert.Equal(t, 0.0, Kurtosis([]float64{4, 4, 4, 4}))
}

func TestRanks_Ties(t *testing.T) {
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, Ranks([]float64{10, 20, 20, 30}))
	assert.Equal(t, []float64{3, 1, 2}, Ranks([]float64{9, 1, 5}))
}

func TestFiniteAndRound(t *testing.T) {
	assert.Equal(t, 0.0, Finite(math.NaN()))
	assert.Equal(t, 0.0, Finite(math.Inf(1)))
	assert.Equal(t, 1.5, Finite(1.5))
	assert.Equal(t, 33.33, Round(100.0/3, 2))
}
