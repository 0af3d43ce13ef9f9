package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/aadhaar-cli/internal/analysis"
	"github.com/sells-group/aadhaar-cli/internal/export"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// Result is the outcome of one analysis: the typed value for persistence
// and a sheet for export and display.
type Result struct {
	Name  string       `json:"name"`
	Kind  Kind         `json:"kind"`
	Value any          `json:"value"`
	Sheet export.Sheet `json:"-"`
}

// OutlierSummary is the persisted value of an outlier analysis.
type OutlierSummary struct {
	Column    string  `json:"column"`
	Method    string  `json:"method"`
	Threshold float64 `json:"threshold"`
	Rows      int     `json:"rows"`
	Outliers  int     `json:"outliers"`
}

// withDefaults fills unset parameters.
func (a Analysis) withDefaults(d Defaults) Analysis {
	if a.Level == "" {
		a.Level = d.GeoLevel
	}
	if a.Granularity == "" {
		a.Granularity = d.Granularity
	}
	if a.N == 0 {
		a.N = d.TopN
	}
	if a.Method == "" {
		a.Method = d.OutlierMethod
	}
	if a.Threshold == 0 {
		switch a.Kind {
		case KindOutliers:
			a.Threshold = d.OutlierThreshold
		case KindSeasonality:
			a.Threshold = d.SeasonalityThreshold
		}
	}
	if a.Periods == 0 {
		a.Periods = 1
	}
	return a
}

// Execute runs a single-table analysis. Ratio analyses need two tables and
// go through ExecuteRatio instead.
func Execute(t *table.Table, a Analysis, d Defaults) (*Result, error) {
	a = a.withDefaults(d)
	res := &Result{Name: a.Name, Kind: a.Kind}

	switch a.Kind {
	case KindUnivariate:
		s, err := analysis.Univariate(t, a.Column)
		if err != nil {
			return nil, err
		}
		res.Value, res.Sheet = s, export.SummarySheet(s)

	case KindCorrelate:
		c, err := analysis.Bivariate(t, a.Column, a.Against)
		if err != nil {
			return nil, err
		}
		res.Value, res.Sheet = c, export.CorrelationSheet(c)

	case KindChiSquare:
		c, err := analysis.ChiSquare(t, a.Column, a.Against)
		if err != nil {
			return nil, err
		}
		res.Value, res.Sheet = c, export.ChiSquareSheet(c)

	case KindTemporal, KindGrowth:
		g, err := analysis.ParseGranularity(a.Granularity)
		if err != nil {
			return nil, err
		}
		buckets, err := analysis.Temporal(t, a.Column, g)
		if err != nil {
			return nil, err
		}
		if a.Kind == KindTemporal {
			res.Value, res.Sheet = buckets, export.BucketSheet(a.Column, buckets)
			break
		}
		points := analysis.BucketGrowth(buckets, a.Periods)
		res.Value, res.Sheet = points, export.GrowthSheet(a.Column, points)

	case KindGeo, KindTop:
		level, err := analysis.ParseLevel(a.Level)
		if err != nil {
			return nil, err
		}
		var groups []analysis.GroupStat
		if a.Kind == KindGeo {
			groups, err = analysis.Geographic(t, level, a.Column)
		} else {
			groups, err = analysis.TopN(t, level, a.Column, a.N)
		}
		if err != nil {
			return nil, err
		}
		res.Value, res.Sheet = groups, export.GroupSheet(level, a.Column, groups)

	case KindSeasonality:
		s, err := analysis.Seasonality(t, a.Column, a.Threshold)
		if err != nil {
			return nil, err
		}
		res.Value, res.Sheet = s, export.SeasonalitySheet(s)

	case KindGini:
		level, err := analysis.ParseLevel(a.Level)
		if err != nil {
			return nil, err
		}
		c, err := analysis.Concentration(t, level, a.Column)
		if err != nil {
			return nil, err
		}
		res.Value, res.Sheet = c, export.ConcentrationSheet(c)

	case KindOutliers:
		method, err := preprocess.ParseMethod(a.Method)
		if err != nil {
			return nil, err
		}
		mask, err := preprocess.OutlierMask(t, a.Column, method, a.Threshold)
		if err != nil {
			return nil, err
		}
		sheet, err := export.OutlierSheet(t, a.Column, mask)
		if err != nil {
			return nil, err
		}
		threshold := a.Threshold
		if threshold <= 0 {
			threshold = preprocess.DefaultOutlierThreshold
		}
		res.Value = OutlierSummary{
			Column:    a.Column,
			Method:    string(method),
			Threshold: threshold,
			Rows:      t.Len(),
			Outliers:  preprocess.CountOutliers(mask),
		}
		res.Sheet = sheet

	case KindRatio:
		return nil, eris.Errorf("pipeline: %s: ratio analyses need an enrolment and an update table", a.Name)

	default:
		return nil, eris.Errorf("pipeline: %s: unknown kind %q", a.Name, a.Kind)
	}
	return res, nil
}

// ExecuteRatio runs a ratio analysis of an update table against the
// enrolment table.
func ExecuteRatio(enrol, update *table.Table, a Analysis, d Defaults) (*Result, error) {
	a = a.withDefaults(d)
	level, err := analysis.ParseLevel(a.Level)
	if err != nil {
		return nil, err
	}
	rows, err := analysis.UpdateRatio(enrol, update, level)
	if err != nil {
		return nil, err
	}
	return &Result{
		Name:  a.Name,
		Kind:  a.Kind,
		Value: rows,
		Sheet: export.RatioSheet(level, rows),
	}, nil
}
