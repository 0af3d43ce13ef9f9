package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Kind names an analysis.
type Kind string

const (
	KindUnivariate  Kind = "univariate"
	KindCorrelate   Kind = "correlate"
	KindChiSquare   Kind = "chisquare"
	KindTemporal    Kind = "temporal"
	KindGeo         Kind = "geo"
	KindTop         Kind = "top"
	KindSeasonality Kind = "seasonality"
	KindGini        Kind = "gini"
	KindGrowth      Kind = "growth"
	KindOutliers    Kind = "outliers"
	KindRatio       Kind = "ratio"
)

// Kinds lists every supported analysis kind.
var Kinds = []Kind{
	KindUnivariate, KindCorrelate, KindChiSquare, KindTemporal, KindGeo, KindTop,
	KindSeasonality, KindGini, KindGrowth, KindOutliers, KindRatio,
}

// Analysis is one entry of a plan. Unset parameters fall back to Defaults.
type Analysis struct {
	Name        string  `yaml:"name"`
	Kind        Kind    `yaml:"kind"`
	Column      string  `yaml:"column,omitempty"`
	Against     string  `yaml:"against,omitempty"` // second column for correlate and chisquare
	Level       string  `yaml:"level,omitempty"`
	Granularity string  `yaml:"granularity,omitempty"`
	N           int     `yaml:"n,omitempty"`
	Threshold   float64 `yaml:"threshold,omitempty"`
	Method      string  `yaml:"method,omitempty"`
	Periods     int     `yaml:"periods,omitempty"`
}

// CrossCategory reports whether the analysis needs more than one category.
func (a Analysis) CrossCategory() bool { return a.Kind == KindRatio }

// Plan lists the analyses run for every category.
type Plan struct {
	Analyses []Analysis `yaml:"analyses"`
}

// Defaults supply parameters a plan entry leaves unset.
type Defaults struct {
	Granularity          string
	GeoLevel             string
	TopN                 int
	OutlierMethod        string
	OutlierThreshold     float64
	SeasonalityThreshold float64
}

// LoadPlan reads a plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read plan %s", path)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse plan")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks kinds, names and required columns.
func (p *Plan) Validate() error {
	var problems []string
	seen := make(map[string]bool)
	for i, a := range p.Analyses {
		if a.Name == "" {
			problems = append(problems, fmt.Sprintf("analysis #%d has no name", i+1))
		} else if seen[a.Name] {
			problems = append(problems, "duplicate analysis name "+a.Name)
		}
		seen[a.Name] = true

		if !knownKind(a.Kind) {
			problems = append(problems, a.Name+": unknown kind "+string(a.Kind))
			continue
		}
		switch a.Kind {
		case KindCorrelate, KindChiSquare:
			if a.Column == "" || a.Against == "" {
				problems = append(problems, a.Name+": column and against are required")
			}
		case KindRatio:
		default:
			if a.Column == "" {
				problems = append(problems, a.Name+": column is required")
			}
		}
	}
	if len(problems) > 0 {
		return eris.Errorf("pipeline: invalid plan: %s", strings.Join(problems, "; "))
	}
	return nil
}

func knownKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// DefaultPlan returns the standard set of analyses.
func DefaultPlan() *Plan {
	return &Plan{Analyses: []Analysis{
		{Name: "summary_total", Kind: KindUnivariate, Column: "total"},
		{Name: "monthly_trend", Kind: KindTemporal, Column: "total", Granularity: "month"},
		{Name: "daily_trend", Kind: KindTemporal, Column: "total", Granularity: "day"},
		{Name: "state_totals", Kind: KindGeo, Column: "total", Level: "state"},
		{Name: "district_totals", Kind: KindGeo, Column: "total", Level: "district"},
		{Name: "top_districts", Kind: KindTop, Column: "total", Level: "district", N: 10},
		{Name: "seasonality", Kind: KindSeasonality, Column: "total"},
		{Name: "district_concentration", Kind: KindGini, Column: "total", Level: "district"},
		{Name: "daily_growth", Kind: KindGrowth, Column: "total", Granularity: "day", Periods: 1},
		{Name: "total_outliers", Kind: KindOutliers, Column: "total", Method: "iqr"},
		{Name: "update_ratio_state", Kind: KindRatio, Level: "state"},
	}}
}
