package analysis

import (
	"time"

	"github.com/sells-group/aadhaar-cli/internal/stats"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// DefaultSeasonalityThreshold is the coefficient of variation, in percent,
// above which seasonality is reported as strong.
const DefaultSeasonalityThreshold = 20.0

// MonthMean is the mean value for one calendar month across all years.
type MonthMean struct {
	Month int     `json:"month"`
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// SeasonalityResult summarizes variation across calendar months.
type SeasonalityResult struct {
	Column                 string      `json:"column"`
	NoData                 bool        `json:"no_data,omitempty"`
	Months                 []MonthMean `json:"monthly_averages"`
	PeakMonth              int         `json:"peak_month"`
	LowMonth               int         `json:"low_month"`
	CoefficientOfVariation float64     `json:"coefficient_of_variation"`
	Strong                 bool        `json:"has_strong_seasonality"`
}

// Seasonality computes the mean of a column per calendar month and the
// coefficient of variation of those means. Ties for peak or low month go to
// the earlier month. A threshold <= 0 selects DefaultSeasonalityThreshold.
func Seasonality(t *table.Table, column string, threshold float64) (SeasonalityResult, error) {
	values, err := t.Column(column)
	if err != nil {
		return SeasonalityResult{}, err
	}
	if threshold <= 0 {
		threshold = DefaultSeasonalityThreshold
	}
	res := SeasonalityResult{Column: column}
	if len(values) == 0 {
		res.NoData = true
		return res, nil
	}

	var sums [13]float64
	var counts [13]int
	for i, r := range t.Records {
		m := r.Date.Month()
		sums[m] += values[i]
		counts[m]++
	}

	means := make([]float64, 0, 12)
	for m := 1; m <= 12; m++ {
		if counts[m] == 0 {
			continue
		}
		mm := MonthMean{
			Month: m,
			Name:  time.Month(m).String(),
			Mean:  sums[m] / float64(counts[m]),
			Count: counts[m],
		}
		res.Months = append(res.Months, mm)
		means = append(means, mm.Mean)
	}

	peak, low := res.Months[0], res.Months[0]
	for _, mm := range res.Months[1:] {
		if mm.Mean > peak.Mean {
			peak = mm
		}
		if mm.Mean < low.Mean {
			low = mm
		}
	}
	res.PeakMonth, res.LowMonth = peak.Month, low.Month

	if mean := stats.Mean(means); mean != 0 {
		res.CoefficientOfVariation = stats.Finite(stats.StdDev(means) / mean * 100)
	}
	res.Strong = res.CoefficientOfVariation > threshold
	return res, nil
}
