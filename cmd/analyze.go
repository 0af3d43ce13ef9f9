package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/loader"
	"github.com/sells-group/aadhaar-cli/internal/pipeline"
)

var (
	analyzeCategory    string
	analyzeColumn      string
	analyzeAgainst     string
	analyzeLevel       string
	analyzeGranularity string
	analyzeN           int
	analyzeThreshold   float64
	analyzeMethod      string
	analyzePeriods     int
	analyzeExport      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a single analysis on a cleaned category",
	Long:  "Loads and cleans one category, runs the selected analysis and prints the result. Unset parameters fall back to the analyze section of the config.",
}

// analyzeKinds lists the analyze sub-commands.
var analyzeKinds = []struct {
	kind  pipeline.Kind
	short string
}{
	{pipeline.KindUnivariate, "Descriptive statistics of a numeric column"},
	{pipeline.KindCorrelate, "Pearson and Spearman correlation of two numeric columns"},
	{pipeline.KindChiSquare, "Chi-square independence test of two categorical columns"},
	{pipeline.KindTemporal, "Aggregate a column by day, week, month or quarter"},
	{pipeline.KindGeo, "Aggregate a column by state, district or pincode"},
	{pipeline.KindTop, "Top N geographic units by column total"},
	{pipeline.KindSeasonality, "Monthly seasonality of a column"},
	{pipeline.KindGini, "Gini concentration of a column across geographic units"},
	{pipeline.KindRatio, "Update-to-enrolment ratio of an update category"},
	{pipeline.KindGrowth, "Period-over-period growth of a temporal aggregate"},
	{pipeline.KindOutliers, "Flag outlier records in a numeric column"},
}

func newAnalyzeKindCmd(kind pipeline.Kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(kind),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := analysisFromFlags(kind)
			return runAnalysis(cmd.Context(), os.Stdout, analyzeCategory, a, analyzeExport)
		},
	}
}

// analysisFromFlags builds an Analysis from the analyze flags, filling the
// column defaults that depend on the kind.
func analysisFromFlags(kind pipeline.Kind) pipeline.Analysis {
	a := pipeline.Analysis{
		Name:        string(kind),
		Kind:        kind,
		Column:      analyzeColumn,
		Against:     analyzeAgainst,
		Level:       analyzeLevel,
		Granularity: analyzeGranularity,
		N:           analyzeN,
		Threshold:   analyzeThreshold,
		Method:      analyzeMethod,
		Periods:     analyzePeriods,
	}
	switch kind {
	case pipeline.KindChiSquare:
		if a.Column == "" {
			a.Column = dataset.ColState
		}
		if a.Against == "" {
			a.Against = dataset.ColDistrict
		}
	case pipeline.KindRatio:
	default:
		if a.Column == "" {
			a.Column = dataset.ColTotal
		}
	}
	return a
}

// runAnalysis cleans the category, runs one analysis, prints its sheet and
// optionally exports it.
func runAnalysis(ctx context.Context, out io.Writer, category string, a pipeline.Analysis, exportResult bool) error {
	if err := (&pipeline.Plan{Analyses: []pipeline.Analysis{a}}).Validate(); err != nil {
		return err
	}
	reg, l := initLoader()

	c, err := dataset.ParseCategory(category)
	if err != nil {
		return err
	}
	spec, err := reg.Get(c)
	if err != nil {
		return err
	}

	var res *pipeline.Result
	if a.CrossCategory() {
		res, err = runRatioAnalysis(ctx, reg, l, spec, a)
	} else {
		tbl, _, cerr := loadCleaned(ctx, l, spec)
		if cerr != nil {
			return cerr
		}
		res, err = pipeline.Execute(tbl, a, analysisDefaults())
	}
	if err != nil {
		return eris.Wrapf(err, "analyze %s", a.Kind)
	}

	_, _ = fmt.Fprintf(out, "%s (%s)\n", a.Kind, c)
	printSheet(out, res.Sheet)

	if !exportResult {
		return nil
	}
	w, err := newWriter("", "")
	if err != nil {
		return err
	}
	path, err := w.WriteSheet(c.String()+"_"+a.Name, res.Sheet)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\nWritten to %s\n", path)
	return nil
}

func runRatioAnalysis(ctx context.Context, reg *dataset.Registry, l *loader.Loader, spec dataset.Spec, a pipeline.Analysis) (*pipeline.Result, error) {
	if !spec.IsUpdate() {
		return nil, eris.Errorf("ratio needs an update category, got %s", spec.Category)
	}
	enrolSpec, err := reg.Get(dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	enrol, _, err := loadCleaned(ctx, l, enrolSpec)
	if err != nil {
		return nil, err
	}
	update, _, err := loadCleaned(ctx, l, spec)
	if err != nil {
		return nil, err
	}
	return pipeline.ExecuteRatio(enrol, update, a, analysisDefaults())
}

func init() {
	pf := analyzeCmd.PersistentFlags()
	pf.StringVar(&analyzeCategory, "category", "enrolment", "dataset category (ratio needs demographic or biometric)")
	pf.StringVar(&analyzeColumn, "column", "", "column to analyze (default total; state for chisquare)")
	pf.StringVar(&analyzeAgainst, "against", "", "second column for correlate and chisquare")
	pf.StringVar(&analyzeLevel, "level", "", "geographic level: state, district or pincode")
	pf.StringVar(&analyzeGranularity, "granularity", "", "time granularity: day, week, month or quarter")
	pf.IntVar(&analyzeN, "n", 0, "number of units for top")
	pf.Float64Var(&analyzeThreshold, "threshold", 0, "outlier multiplier or seasonality CV threshold")
	pf.StringVar(&analyzeMethod, "method", "", "outlier method: iqr or zscore")
	pf.IntVar(&analyzePeriods, "periods", 1, "growth lag in periods")
	pf.BoolVar(&analyzeExport, "export", false, "also write the result to the export directory")

	for _, k := range analyzeKinds {
		analyzeCmd.AddCommand(newAnalyzeKindCmd(k.kind, k.short))
	}
	rootCmd.AddCommand(analyzeCmd)
}
