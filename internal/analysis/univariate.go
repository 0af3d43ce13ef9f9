// Package analysis computes descriptive statistics and aggregates over
// cleaned tables. Functions never modify the table they are given and
// return a *table.ColumnNotFoundError when a named column is absent.
package analysis

import (
	"go.uber.org/zap"

	"github.com/sells-group/aadhaar-cli/internal/stats"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// Summary describes the distribution of one numeric column.
type Summary struct {
	Column   string  `json:"column"`
	NoData   bool    `json:"no_data,omitempty"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// Univariate summarizes a numeric column. An empty table yields a Summary
// with NoData set rather than an error.
func Univariate(t *table.Table, column string) (Summary, error) {
	values, err := t.Column(column)
	if err != nil {
		return Summary{}, err
	}
	zap.L().Debug("univariate analysis",
		zap.String("component", "analysis"),
		zap.String("column", column),
		zap.Int("rows", len(values)),
	)
	if len(values) == 0 {
		return Summary{Column: column, NoData: true}, nil
	}

	sorted := stats.Sorted(values)
	return Summary{
		Column:   column,
		Count:    len(values),
		Mean:     stats.Mean(values),
		Median:   stats.Quantile(0.5, sorted),
		Std:      stats.StdDev(values),
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Q25:      stats.Quantile(0.25, sorted),
		Q75:      stats.Quantile(0.75, sorted),
		Skewness: stats.Skewness(values),
		Kurtosis: stats.Kurtosis(values),
	}, nil
}
