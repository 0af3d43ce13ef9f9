package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aadhaar-cli/internal/analysis"
	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/export"
	"github.com/sells-group/aadhaar-cli/internal/loader"
	"github.com/sells-group/aadhaar-cli/internal/store"
)

var testDefaults = Defaults{
	Granularity:          "month",
	GeoLevel:             "state",
	TopN:                 10,
	OutlierMethod:        "iqr",
	OutlierThreshold:     3,
	SeasonalityThreshold: 20,
}

func writeChunk(t *testing.T, root, dir, name, content string) {
	t.Helper()
	full := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, name), []byte(content), 0o644))
}

func seedDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeChunk(t, root, dataset.EnrolmentSpec().Dir, "enrol_1.csv",
		"date,state,district,pincode,age_0_5,age_5_17,age_18_greater\n"+
			"01-01-2025,Delhi,New Delhi,110001,60,30,10\n"+
			"15-01-2025,goa,North Goa,403001,20,20,10\n"+
			"01-02-2025,Delhi,New Delhi,110001,100,50,0\n"+
			"05-13-2025,Delhi,New Delhi,110001,1,1,1\n")
	writeChunk(t, root, dataset.DemographicSpec().Dir, "demo_1.csv",
		"date,state,district,pincode,demo_age_5_17,demo_age_17_\n"+
			"01-01-2025,Delhi,New Delhi,110001,10,15\n"+
			"02-01-2025,Goa,North Goa,403001,25,25\n")
	return root
}

func newTestEngine(t *testing.T, root string) (*Engine, *store.SQLiteStore, string) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	outDir := filepath.Join(t.TempDir(), "out")
	reg := dataset.NewRegistry()
	e := NewEngine(reg, loader.New(root, reg), st, &export.Writer{Dir: outDir, Format: export.CSV}, Options{
		SaveRecords: true,
		Defaults:    testDefaults,
	})
	return e, st, outDir
}

func findResult(c *CategoryResult, name string) *Result {
	for _, r := range c.Results {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func TestEngine_Run_DefaultPlan(t *testing.T) {
	root := seedDataset(t)
	e, st, outDir := newTestEngine(t, root)
	ctx := context.Background()

	summary, err := e.Run(ctx, RunOpts{})
	require.NoError(t, err)
	require.Len(t, summary.Categories, 3)

	// biometric has no chunks and fails on its own
	assert.Equal(t, 1, summary.Failed())
	bio := summary.Categories[2]
	assert.Equal(t, dataset.Biometric, bio.Category)
	var missing *loader.MissingDatasetError
	assert.True(t, errors.As(bio.Err, &missing))

	run, err := st.GetRun(ctx, bio.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusFailed, run.Status)

	enrol := summary.Categories[0]
	require.NoError(t, enrol.Err)
	assert.Equal(t, 1, enrol.Report.InvalidDates)
	assert.Empty(t, enrol.Failed)

	monthly := findResult(enrol, "monthly_trend")
	require.NotNil(t, monthly)
	buckets := monthly.Value.([]analysis.Bucket)
	require.Len(t, buckets, 2)
	assert.Equal(t, 150.0, buckets[0].Sum)
	assert.Equal(t, 150.0, buckets[1].Sum)

	assert.FileExists(t, filepath.Join(outDir, "enrolment_monthly_trend.csv"))
	assert.FileExists(t, filepath.Join(outDir, "enrolment_cleaning_report.csv"))

	run, err = st.GetRun(ctx, enrol.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusComplete, run.Status)
	require.NotNil(t, run.Report)
	assert.Equal(t, 3, run.Report.FinalRows())

	aggs, err := st.ListAggregates(ctx, enrol.RunID)
	require.NoError(t, err)
	// cleaning report plus every analysis except the ratio
	assert.Len(t, aggs, len(DefaultPlan().Analyses))

	n, err := st.CountRecords(ctx, enrol.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	demo := summary.Categories[1]
	require.NoError(t, demo.Err)
	ratio := findResult(demo, "update_ratio_state")
	require.NotNil(t, ratio)
	rows := ratio.Value.([]analysis.RatioRow)
	require.Len(t, rows, 2)
	assert.Equal(t, "Goa", rows[0].Key)
	assert.Equal(t, 100.0, rows[0].Ratio)
	assert.Equal(t, "Delhi", rows[1].Key)
	assert.Equal(t, 10.0, rows[1].Ratio)
	assert.FileExists(t, filepath.Join(outDir, "demographic_update_ratio_state.csv"))
}

func TestEngine_Run_AnalysisFailureDoesNotAbort(t *testing.T) {
	root := seedDataset(t)
	e, st, _ := newTestEngine(t, root)
	ctx := context.Background()

	plan := &Plan{Analyses: []Analysis{
		{Name: "bad_column", Kind: KindUnivariate, Column: "bio_age_5_17"},
		{Name: "state_totals", Kind: KindGeo, Column: "total"},
	}}
	summary, err := e.Run(ctx, RunOpts{Categories: []string{"enrolment"}, Plan: plan})
	require.NoError(t, err)
	require.Len(t, summary.Categories, 1)

	c := summary.Categories[0]
	require.NoError(t, c.Err)
	require.Len(t, c.Failed, 1)
	assert.Equal(t, "bad_column", c.Failed[0].Analysis)
	require.Len(t, c.Results, 1)

	groups := c.Results[0].Value.([]analysis.GroupStat)
	assert.Equal(t, "Delhi", groups[0].Key)
	assert.Equal(t, 250.0, groups[0].Sum)

	run, err := st.GetRun(ctx, c.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusComplete, run.Status)
}

func TestEngine_Run_RatioWithoutEnrolment(t *testing.T) {
	root := seedDataset(t)
	reg := dataset.NewRegistry()
	e := NewEngine(reg, loader.New(root, reg), nil, nil, Options{Defaults: testDefaults})

	summary, err := e.Run(context.Background(), RunOpts{
		Categories: []string{"demographic"},
		Plan:       &Plan{Analyses: []Analysis{{Name: "ratio", Kind: KindRatio}}},
	})
	require.NoError(t, err)
	require.Len(t, summary.Categories, 1)
	require.Len(t, summary.Categories[0].Failed, 1)
	assert.Contains(t, summary.Categories[0].Failed[0].Error, "enrolment table not available")
}

func TestEngine_Run_InvalidInputs(t *testing.T) {
	reg := dataset.NewRegistry()
	e := NewEngine(reg, loader.New(t.TempDir(), reg), nil, nil, Options{})

	_, err := e.Run(context.Background(), RunOpts{Categories: []string{"passport"}})
	assert.Error(t, err)

	_, err = e.Run(context.Background(), RunOpts{Plan: &Plan{Analyses: []Analysis{{Name: "x", Kind: "forecast"}}}})
	assert.Error(t, err)
}

func TestEngine_Run_Cancelled(t *testing.T) {
	reg := dataset.NewRegistry()
	e := NewEngine(reg, loader.New(seedDataset(t), reg), nil, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx, RunOpts{})
	assert.ErrorIs(t, err, context.Canceled)
}
