package export

import (
	"github.com/sells-group/aadhaar-cli/internal/analysis"
	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// SummarySheet lays out univariate summaries one per row.
func SummarySheet(summaries ...analysis.Summary) Sheet {
	s := Sheet{Header: []string{"column", "count", "mean", "median", "std", "min", "max", "q25", "q75", "skewness", "kurtosis"}}
	for _, m := range summaries {
		s.Rows = append(s.Rows, []any{m.Column, m.Count, m.Mean, m.Median, m.Std, m.Min, m.Max, m.Q25, m.Q75, m.Skewness, m.Kurtosis})
	}
	return s
}

// CorrelationSheet lays out one correlation result.
func CorrelationSheet(c analysis.Correlation) Sheet {
	return Sheet{
		Header: []string{"col1", "col2", "n", "pearson_correlation", "pearson_pvalue", "spearman_correlation", "spearman_pvalue", "significant"},
		Rows:   [][]any{{c.Col1, c.Col2, c.N, c.Pearson, c.PearsonP, c.Spearman, c.SpearmanP, c.Significant}},
	}
}

// ChiSquareSheet lays out one chi-square test.
func ChiSquareSheet(c analysis.ChiSquareResult) Sheet {
	return Sheet{
		Header: []string{"col1", "col2", "chi2_statistic", "p_value", "degrees_of_freedom", "significant"},
		Rows:   [][]any{{c.Col1, c.Col2, c.Statistic, c.PValue, c.DoF, c.Significant}},
	}
}

// BucketSheet lays out a temporal aggregation. Value columns are prefixed
// with the aggregated column name.
func BucketSheet(column string, buckets []analysis.Bucket) Sheet {
	s := Sheet{Header: []string{"period", "start", "end", column + "_sum", column + "_mean", "count"}}
	for _, b := range buckets {
		s.Rows = append(s.Rows, []any{b.Label, b.Start, b.End, b.Sum, b.Mean, b.Count})
	}
	return s
}

// GroupSheet lays out a geographic aggregation keyed by level.
func GroupSheet(level analysis.Level, column string, groups []analysis.GroupStat) Sheet {
	s := Sheet{Header: []string{string(level), column + "_sum", column + "_mean", "count"}}
	for _, g := range groups {
		s.Rows = append(s.Rows, []any{g.Key, g.Sum, g.Mean, g.Count})
	}
	return s
}

// SeasonalitySheet lays out monthly means with the overall result repeated
// on each row.
func SeasonalitySheet(r analysis.SeasonalityResult) Sheet {
	s := Sheet{Header: []string{"month", "month_name", "mean", "count", "peak", "low", "coefficient_of_variation", "strong_seasonality"}}
	for _, m := range r.Months {
		s.Rows = append(s.Rows, []any{m.Month, m.Name, m.Mean, m.Count,
			m.Month == r.PeakMonth, m.Month == r.LowMonth, r.CoefficientOfVariation, r.Strong})
	}
	return s
}

// ConcentrationSheet lays out Gini results one per row.
func ConcentrationSheet(results ...analysis.ConcentrationResult) Sheet {
	s := Sheet{Header: []string{"level", "column", "units", "total", "gini"}}
	for _, r := range results {
		s.Rows = append(s.Rows, []any{string(r.Level), r.Column, r.Units, r.Total, r.Gini})
	}
	return s
}

// RatioSheet lays out update ratios. Undefined ratios are left blank.
func RatioSheet(level analysis.Level, rows []analysis.RatioRow) Sheet {
	s := Sheet{Header: []string{string(level), "enrolments", "updates", "update_ratio"}}
	for _, r := range rows {
		var ratio any
		if r.Defined {
			ratio = r.Ratio
		}
		s.Rows = append(s.Rows, []any{r.Key, r.Enrolments, r.Updates, ratio})
	}
	return s
}

// GrowthSheet lays out growth points. Invalid points leave growth blank.
func GrowthSheet(column string, points []analysis.GrowthPoint) Sheet {
	s := Sheet{Header: []string{"period", column, column + "_growth"}}
	for _, p := range points {
		var growth any
		if p.Valid {
			growth = p.Growth
		}
		s.Rows = append(s.Rows, []any{p.Label, p.Value, growth})
	}
	return s
}

// OutlierSheet lists the records flagged by an outlier mask.
func OutlierSheet(t *table.Table, column string, mask []bool) (Sheet, error) {
	values, err := t.Column(column)
	if err != nil {
		return Sheet{}, err
	}
	s := Sheet{Header: []string{dataset.ColDate, dataset.ColState, dataset.ColDistrict, dataset.ColPincode, column}}
	for i, flagged := range mask {
		if !flagged || i >= len(t.Records) {
			continue
		}
		r := t.Records[i]
		s.Rows = append(s.Rows, []any{r.Date, r.State, r.District, r.Pincode, values[i]})
	}
	return s, nil
}

// ReportSheet lays out cleaning reports as one row per category.
func ReportSheet(reports ...*preprocess.Report) Sheet {
	s := Sheet{Header: []string{
		"category", "raw", "date_parse", "pincode", "zero_removal", "dedup",
		"rows_removed", "removed_pct", "invalid_dates", "invalid_pincodes",
		"coerced_counts", "clipped_counts", "zero_rows", "duplicates",
	}}
	for _, r := range reports {
		s.Rows = append(s.Rows, []any{
			r.Category.String(),
			r.Rows(preprocess.StageRaw), r.Rows(preprocess.StageDateParse), r.Rows(preprocess.StagePincode),
			r.Rows(preprocess.StageZeroRemoval), r.Rows(preprocess.StageDedup),
			r.RowsRemoved(), r.RemovedPct(), r.InvalidDates, r.InvalidPincodes,
			r.CoercedCounts, r.ClippedCounts, r.ZeroRows, r.Duplicates,
		})
	}
	return s
}

// TableSheet lays out a cleaned table with its brackets, total and
// derived features.
func TableSheet(t *table.Table) Sheet {
	header := []string{dataset.ColDate, dataset.ColState, dataset.ColDistrict, dataset.ColPincode}
	header = append(header, t.Brackets...)
	header = append(header, dataset.ColTotal, table.ColYear, table.ColMonth, table.ColDayOfWeek, table.ColWeek, table.ColQuarter)

	s := Sheet{Header: header, Rows: make([][]any, len(t.Records))}
	for i, r := range t.Records {
		row := make([]any, 0, len(header))
		row = append(row, r.Date, r.State, r.District, r.Pincode)
		for _, c := range r.Counts {
			row = append(row, c)
		}
		row = append(row, r.Total, r.Year, r.Month, r.DayOfWeek, r.Week, r.Quarter)
		s.Rows[i] = row
	}
	return s
}
