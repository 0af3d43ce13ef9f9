package analysis

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/stats"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// RatioRow compares updates with enrolments for one unit. Ratio is updates
// per hundred enrolments and is only meaningful when Defined is set.
type RatioRow struct {
	Key        string  `json:"key"`
	Enrolments float64 `json:"enrolments"`
	Updates    float64 `json:"updates"`
	Ratio      float64 `json:"update_ratio"`
	Defined    bool    `json:"defined"`
}

// Ratio outer-joins two aggregates on key, treating a missing side as 0, and
// computes updates / enrolments × 100 rounded to two decimals. Rows are
// sorted by ratio, highest first, with undefined ratios last and ties broken
// by key.
func Ratio(updates, enrolments []GroupStat) []RatioRow {
	idx := make(map[string]int, len(enrolments)+len(updates))
	out := make([]RatioRow, 0, len(enrolments)+len(updates))
	row := func(key string) *RatioRow {
		pos, ok := idx[key]
		if !ok {
			pos = len(out)
			idx[key] = pos
			out = append(out, RatioRow{Key: key})
		}
		return &out[pos]
	}
	for _, g := range enrolments {
		row(g.Key).Enrolments += g.Sum
	}
	for _, g := range updates {
		row(g.Key).Updates += g.Sum
	}

	for i := range out {
		if out[i].Enrolments != 0 {
			out[i].Ratio = stats.Round(out[i].Updates/out[i].Enrolments*100, 2)
			out[i].Defined = true
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Defined != b.Defined {
			return a.Defined
		}
		if a.Ratio != b.Ratio {
			return a.Ratio > b.Ratio
		}
		return a.Key < b.Key
	})
	return out
}

// UpdateRatio aggregates record totals of an enrolment table and an update
// table at the given level and joins them with Ratio.
func UpdateRatio(enrol, update *table.Table, level Level) ([]RatioRow, error) {
	zap.L().Info("calculating update ratio",
		zap.String("component", "analysis"),
		zap.String("level", string(level)),
		zap.String("updates", update.Category.String()),
	)
	e, err := Geographic(enrol, level, dataset.ColTotal)
	if err != nil {
		return nil, err
	}
	u, err := Geographic(update, level, dataset.ColTotal)
	if err != nil {
		return nil, err
	}
	return Ratio(u, e), nil
}
