package analysis

import (
	"math"

	"github.com/sells-group/aadhaar-cli/internal/stats"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// Gini returns the Gini coefficient of non-negative values: 0 when every
// unit holds the same amount, approaching 1 as one unit holds everything.
// Empty and all-zero inputs return 0.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := stats.Sorted(values)
	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	fn := float64(n)
	g := 2*weighted/(fn*sum) - (fn+1)/fn
	return math.Max(0, math.Min(1, g))
}

// ConcentrationResult is the Gini coefficient of a column across the units
// of a geographic level.
type ConcentrationResult struct {
	Level  Level   `json:"level"`
	Column string  `json:"column"`
	Units  int     `json:"units"`
	Total  float64 `json:"total"`
	Gini   float64 `json:"gini"`
}

// Concentration sums a column per unit of level and measures how unevenly
// the total is spread across units.
func Concentration(t *table.Table, level Level, column string) (ConcentrationResult, error) {
	groups, err := Geographic(t, level, column)
	if err != nil {
		return ConcentrationResult{}, err
	}
	sums := make([]float64, len(groups))
	var total float64
	for i, g := range groups {
		sums[i] = g.Sum
		total += g.Sum
	}
	lvl, _ := ParseLevel(string(level))
	return ConcentrationResult{
		Level:  lvl,
		Column: column,
		Units:  len(groups),
		Total:  total,
		Gini:   Gini(sums),
	}, nil
}
