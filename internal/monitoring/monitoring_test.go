package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aadhaar-cli/internal/config"
	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
	"github.com/sells-group/aadhaar-cli/internal/store"
)

// fakeLister filters runs the way the stores do.
type fakeLister struct {
	runs    []store.Run
	err     error
	lastArg store.RunFilter
}

func (f *fakeLister) ListRuns(_ context.Context, filter store.RunFilter) ([]store.Run, error) {
	f.lastArg = filter
	if f.err != nil {
		return nil, f.err
	}
	var out []store.Run
	for _, r := range f.runs {
		if !filter.CreatedAfter.IsZero() && r.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func report(raw, final int) *preprocess.Report {
	return &preprocess.Report{Stages: []preprocess.StageCount{
		{Name: preprocess.StageRaw, Rows: raw},
		{Name: preprocess.StageDedup, Rows: final},
	}}
}

func run(c dataset.Category, status store.RunStatus, ago time.Duration, rep *preprocess.Report) store.Run {
	created := fixedNow.Add(-ago)
	return store.Run{
		ID:        string(c) + ago.String(),
		Category:  c,
		Status:    status,
		Report:    rep,
		CreatedAt: created,
		UpdatedAt: created.Add(30 * time.Second),
	}
}

func newTestCollector(l RunLister) *Collector {
	c := NewCollector(l)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestCollect(t *testing.T) {
	l := &fakeLister{runs: []store.Run{
		run(dataset.Biometric, store.RunStatusFailed, time.Hour, nil),
		run(dataset.Enrolment, store.RunStatusComplete, 2*time.Hour, report(100, 90)),
		run(dataset.Enrolment, store.RunStatusComplete, 3*time.Hour, report(100, 70)),
		run(dataset.Enrolment, store.RunStatusFailed, 4*time.Hour, nil),
		run(dataset.Demographic, store.RunStatusRunning, 5*time.Hour, nil),
		run(dataset.Enrolment, store.RunStatusFailed, 48*time.Hour, nil), // outside window
	}}

	snap, err := newTestCollector(l).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, fixedNow.Add(-24*time.Hour), l.lastArg.CreatedAfter)
	assert.Equal(t, maxRuns, l.lastArg.Limit)

	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 2, snap.Complete)
	assert.Equal(t, 2, snap.Failed)
	assert.Equal(t, 1, snap.Running)
	assert.InDelta(t, 0.5, snap.FailRate, 1e-9)

	require.Len(t, snap.Categories, 3)
	enrol := snap.Categories[0]
	assert.Equal(t, dataset.Enrolment, enrol.Category)
	assert.Equal(t, 3, enrol.Total)
	assert.InDelta(t, 1.0/3.0, enrol.FailRate, 1e-9)
	assert.InDelta(t, 30.0, enrol.AvgDurSecs, 1e-9)
	assert.InDelta(t, 20.0, enrol.AvgRemovedPct, 1e-9)
	assert.Equal(t, fixedNow.Add(-2*time.Hour+30*time.Second), enrol.LastCompleteAt)

	assert.Equal(t, dataset.Demographic, snap.Categories[1].Category)
	assert.Equal(t, dataset.Biometric, snap.Categories[2].Category)
	assert.InDelta(t, 1.0, snap.Categories[2].FailRate, 1e-9)
}

func TestCollect_AllRunsAndErrors(t *testing.T) {
	l := &fakeLister{}
	snap, err := newTestCollector(l).Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, l.lastArg.CreatedAfter.IsZero())
	assert.Empty(t, snap.Categories)
	assert.Zero(t, snap.FailRate)

	l.err = errors.New("db down")
	_, err = newTestCollector(l).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}

func TestEvaluate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5, RemovedPctThreshold: 25})
	snap := &MetricsSnapshot{LookbackHours: 24, Categories: []CategoryMetrics{
		{Category: dataset.Enrolment, Complete: 1, Failed: 3, FailRate: 0.75, AvgRemovedPct: 10},
		{Category: dataset.Demographic, Complete: 2, AvgRemovedPct: 40},
		{Category: dataset.Biometric, Failed: 2, FailRate: 1}, // too few finished runs
	}}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "enrolment", alerts[0].Category)
	assert.Contains(t, alerts[0].Message, "75.0%")
	assert.Equal(t, AlertDataLoss, alerts[1].Type)
	assert.Equal(t, "demographic", alerts[1].Category)

	disabled := NewAlerter(config.MonitoringConfig{})
	assert.Empty(t, disabled.Evaluate(snap))
}

func TestSendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		if err := json.NewDecoder(r.Body).Decode(&alert); err != nil || alert.Category == "biometric" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Category: "enrolment"},
		{Type: AlertFailureRate, Category: "biometric"},
	})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())

	none := NewAlerter(config.MonitoringConfig{})
	assert.Zero(t, none.SendAlerts(context.Background(), []Alert{{Type: AlertDataLoss}}))
}
