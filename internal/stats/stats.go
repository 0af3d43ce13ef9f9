// Package stats holds the numeric primitives shared by the preprocessor and
// the analyzer. Moments come from gonum; quantiles interpolate linearly
// between closest ranks.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Sorted returns a sorted copy of x.
func Sorted(x []float64) []float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return s
}

// Quantile returns the p-quantile of sorted data using linear interpolation
// between the closest ranks: position p*(n-1) in zero-based order. It
// returns NaN for empty input.
func Quantile(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Median returns the middle value of unsorted data.
func Median(x []float64) float64 {
	return Quantile(0.5, Sorted(x))
}

// Mean returns the arithmetic mean, or 0 for empty input.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// StdDev returns the sample (n-1) standard deviation, or 0 with fewer than
// two values.
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return Finite(stat.StdDev(x, nil))
}

// Skewness returns the adjusted Fisher-Pearson sample skewness, or 0 when it
// is undefined (fewer than three values or zero variance).
func Skewness(x []float64) float64 {
	if len(x) < 3 {
		return 0
	}
	return Finite(stat.Skew(x, nil))
}

// Kurtosis returns the unbiased sample excess kurtosis, or 0 when it is
// undefined (fewer than four values or zero variance).
func Kurtosis(x []float64) float64 {
	if len(x) < 4 {
		return 0
	}
	return Finite(stat.ExKurtosis(x, nil))
}

// Sum adds the values.
func Sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}

// Finite maps NaN and infinities to 0 so results stay encodable.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Ranks returns 1-based ranks of x, averaging the ranks of tied values.
func Ranks(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	ranks := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of ranks i+1..j
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
