package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testReport(t *testing.T) *preprocess.Report {
	t.Helper()
	raw := &table.Raw{
		Category: dataset.Enrolment,
		Header:   []string{"date", "state", "district", "pincode", "age_0_5", "age_5_17", "age_18_greater"},
		Rows: [][]string{
			{"01-01-2025", "Delhi", "New Delhi", "110001", "1", "2", "3"},
			{"05-13-2025", "Delhi", "New Delhi", "110001", "1", "2", "3"},
		},
	}
	_, rep, err := preprocess.Clean(raw, dataset.EnrolmentSpec(), preprocess.Options{})
	require.NoError(t, err)
	return rep
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, dataset.Enrolment)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, dataset.Enrolment, got.Category)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Nil(t, got.Report)

	rep := testReport(t)
	require.NoError(t, st.CompleteRun(ctx, run.ID, rep))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	require.NotNil(t, got.Report)
	assert.Equal(t, 1, got.Report.InvalidDates)
	assert.Equal(t, rep.Stages, got.Report.Stages)
	assert.WithinDuration(t, time.Now(), got.UpdatedAt, time.Minute)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, dataset.Biometric)
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "no CSV files found"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "no CSV files found", got.Error)
}

func TestSQLite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.CompleteRun(ctx, "missing", nil)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.FailRun(ctx, "missing", "boom")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	enrol, err := st.CreateRun(ctx, dataset.Enrolment)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, dataset.Demographic)
	require.NoError(t, err)
	bio, err := st.CreateRun(ctx, dataset.Biometric)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, enrol.ID, nil))
	require.NoError(t, st.FailRun(ctx, bio.ID, "boom"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byCat, err := st.ListRuns(ctx, RunFilter{Category: dataset.Enrolment})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, enrol.ID, byCat[0].ID)

	failed, err := st.ListRuns(ctx, RunFilter{Status: RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, bio.ID, failed[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	offset, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, offset, 1)

	recent, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	future, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)
}

func TestSQLite_Aggregates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, dataset.Enrolment)
	require.NoError(t, err)

	_, err = st.SaveAggregate(ctx, run.ID, "monthly_trend", "temporal", []map[string]any{{"period": "2025-01", "sum": 100}})
	require.NoError(t, err)
	_, err = st.SaveAggregate(ctx, run.ID, "gini_district", "gini", json.RawMessage(`{"gini":0.75}`))
	require.NoError(t, err)

	aggs, err := st.ListAggregates(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, "monthly_trend", aggs[0].Name)
	assert.Equal(t, "temporal", aggs[0].Kind)
	assert.JSONEq(t, `[{"period":"2025-01","sum":100}]`, string(aggs[0].Payload))
	assert.JSONEq(t, `{"gini":0.75}`, string(aggs[1].Payload))

	none, err := st.ListAggregates(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_SaveRecords(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, dataset.Enrolment)
	require.NoError(t, err)

	tbl := table.New(dataset.EnrolmentSpec())
	tbl.Records = []table.Record{
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), State: "Delhi", District: "New Delhi", Pincode: "110001", Counts: []int64{1, 2, 3}, Total: 6},
		{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), State: "Goa", District: "North Goa", Pincode: "403001", Counts: []int64{4, 0, 0}, Total: 4},
	}
	n, err := st.SaveRecords(ctx, run.ID, tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := st.CountRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	n, err = st.SaveRecords(ctx, run.ID, table.New(dataset.EnrolmentSpec()))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "open.db"), 0)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Close())

	_, err = Open(ctx, "mysql", "", 0)
	assert.Error(t, err)
}
