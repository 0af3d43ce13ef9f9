package analysis

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sells-group/aadhaar-cli/internal/stats"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// SignificanceLevel is the p-value below which a test result is reported
// as significant.
const SignificanceLevel = 0.05

// Correlation holds Pearson and Spearman coefficients for two columns with
// their two-sided p-values.
type Correlation struct {
	Col1        string  `json:"col1"`
	Col2        string  `json:"col2"`
	N           int     `json:"n"`
	Pearson     float64 `json:"pearson_correlation"`
	PearsonP    float64 `json:"pearson_pvalue"`
	Spearman    float64 `json:"spearman_correlation"`
	SpearmanP   float64 `json:"spearman_pvalue"`
	Significant bool    `json:"significant"`
}

// Bivariate correlates two numeric columns. Significance follows the
// Pearson p-value.
func Bivariate(t *table.Table, col1, col2 string) (Correlation, error) {
	x, err := t.Column(col1)
	if err != nil {
		return Correlation{}, err
	}
	y, err := t.Column(col2)
	if err != nil {
		return Correlation{}, err
	}
	zap.L().Debug("bivariate analysis",
		zap.String("component", "analysis"),
		zap.String("col1", col1),
		zap.String("col2", col2),
	)

	res := Correlation{Col1: col1, Col2: col2, N: len(x)}
	res.Pearson, res.PearsonP = correlate(x, y)
	res.Spearman, res.SpearmanP = correlate(stats.Ranks(x), stats.Ranks(y))
	res.Significant = res.PearsonP < SignificanceLevel
	return res, nil
}

// correlate returns the Pearson coefficient and its two-sided p-value from a
// Student t distribution with n-2 degrees of freedom. Undefined
// correlations report r = 0 and p = 1.
func correlate(x, y []float64) (r, p float64) {
	n := len(x)
	if n < 3 {
		return 0, 1
	}
	r = stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, 1
	}
	if math.Abs(r) >= 1 {
		return math.Copysign(1, r), 0
	}
	df := float64(n - 2)
	tStat := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(tStat))
	return r, math.Min(1, p)
}

// ChiSquareResult is a chi-square test of independence between two
// categorical columns.
type ChiSquareResult struct {
	Col1        string  `json:"col1"`
	Col2        string  `json:"col2"`
	Statistic   float64 `json:"chi2_statistic"`
	PValue      float64 `json:"p_value"`
	DoF         int     `json:"degrees_of_freedom"`
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	Significant bool    `json:"significant"`
}

// ChiSquare builds the contingency table of two categorical columns and
// tests it for independence. With one degree of freedom the Yates
// continuity correction is applied.
func ChiSquare(t *table.Table, col1, col2 string) (ChiSquareResult, error) {
	a, err := t.Labels(col1)
	if err != nil {
		return ChiSquareResult{}, err
	}
	b, err := t.Labels(col2)
	if err != nil {
		return ChiSquareResult{}, err
	}

	rowKeys, rowIdx := indexLabels(a)
	colKeys, colIdx := indexLabels(b)
	observed := make([][]float64, len(rowKeys))
	for i := range observed {
		observed[i] = make([]float64, len(colKeys))
	}
	for i := range a {
		observed[rowIdx[a[i]]][colIdx[b[i]]]++
	}

	res := ChiSquareResult{Col1: col1, Col2: col2, Rows: len(rowKeys), Cols: len(colKeys), PValue: 1}
	if len(rowKeys) < 2 || len(colKeys) < 2 {
		return res, nil
	}
	res.DoF = (len(rowKeys) - 1) * (len(colKeys) - 1)
	res.Statistic = chiSquareStatistic(observed, res.DoF == 1)
	dist := distuv.ChiSquared{K: float64(res.DoF)}
	res.PValue = stats.Finite(1 - dist.CDF(res.Statistic))
	res.Significant = res.PValue < SignificanceLevel
	return res, nil
}

func chiSquareStatistic(observed [][]float64, yates bool) float64 {
	rowSums := make([]float64, len(observed))
	colSums := make([]float64, len(observed[0]))
	var total float64
	for i, row := range observed {
		for j, v := range row {
			rowSums[i] += v
			colSums[j] += v
			total += v
		}
	}

	var chi2 float64
	for i, row := range observed {
		for j, obs := range row {
			exp := rowSums[i] * colSums[j] / total
			if exp == 0 {
				continue
			}
			diff := obs - exp
			if yates {
				// shrink toward the expectation by at most 0.5
				shrink := math.Min(0.5, math.Abs(diff))
				diff -= math.Copysign(shrink, diff)
			}
			chi2 += diff * diff / exp
		}
	}
	return chi2
}

func indexLabels(labels []string) ([]string, map[string]int) {
	idx := make(map[string]int)
	for _, l := range labels {
		idx[l] = 0
	}
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		idx[k] = i
	}
	return keys, idx
}
