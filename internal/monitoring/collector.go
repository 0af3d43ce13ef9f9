// Package monitoring summarizes recent pipeline runs from the run store and
// raises alerts when failure or data-loss rates cross configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/store"
)

// maxRuns caps how many runs one snapshot reads.
const maxRuns = 10000

// CategoryMetrics holds run counts and cleaning losses for one category.
type CategoryMetrics struct {
	Category       dataset.Category `json:"category"`
	Total          int              `json:"total"`
	Complete       int              `json:"complete"`
	Failed         int              `json:"failed"`
	Running        int              `json:"running"`
	FailRate       float64          `json:"fail_rate"`
	AvgDurSecs     float64          `json:"avg_duration_secs"`
	AvgRemovedPct  float64          `json:"avg_removed_pct"`
	LastCompleteAt time.Time        `json:"last_complete_at,omitempty"`
}

// MetricsSnapshot is a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	Total      int               `json:"total"`
	Complete   int               `json:"complete"`
	Failed     int               `json:"failed"`
	Running    int               `json:"running"`
	FailRate   float64           `json:"fail_rate"`
	Categories []CategoryMetrics `json:"categories"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error)
}

// Collector gathers metrics from the run store.
type Collector struct {
	store RunLister
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st RunLister) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window. A window of
// zero or less covers every recorded run.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	filter := store.RunFilter{Limit: maxRuns}
	if lookbackHours > 0 {
		filter.CreatedAfter = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}
	runs, err := c.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	type acc struct {
		m          CategoryMetrics
		durTotal   time.Duration
		removedSum float64
		reports    int
	}
	byCat := make(map[dataset.Category]*acc)
	var order []dataset.Category

	for _, r := range runs {
		a, ok := byCat[r.Category]
		if !ok {
			a = &acc{m: CategoryMetrics{Category: r.Category}}
			byCat[r.Category] = a
			order = append(order, r.Category)
		}
		a.m.Total++
		switch r.Status {
		case store.RunStatusComplete:
			a.m.Complete++
			a.durTotal += r.UpdatedAt.Sub(r.CreatedAt)
			if r.UpdatedAt.After(a.m.LastCompleteAt) {
				a.m.LastCompleteAt = r.UpdatedAt
			}
			if r.Report != nil {
				a.removedSum += r.Report.RemovedPct()
				a.reports++
			}
		case store.RunStatusFailed:
			a.m.Failed++
		case store.RunStatusRunning:
			a.m.Running++
		}
	}

	snap.Categories = make([]CategoryMetrics, 0, len(order))
	for _, cat := range registryOrder(order) {
		a := byCat[cat]
		if finished := a.m.Complete + a.m.Failed; finished > 0 {
			a.m.FailRate = float64(a.m.Failed) / float64(finished)
		}
		if a.m.Complete > 0 {
			a.m.AvgDurSecs = a.durTotal.Seconds() / float64(a.m.Complete)
		}
		if a.reports > 0 {
			a.m.AvgRemovedPct = a.removedSum / float64(a.reports)
		}

		snap.Total += a.m.Total
		snap.Complete += a.m.Complete
		snap.Failed += a.m.Failed
		snap.Running += a.m.Running
		snap.Categories = append(snap.Categories, a.m)
	}
	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}

	return snap, nil
}

// registryOrder puts known categories in registry order, followed by any
// others in the order they were seen.
func registryOrder(seen []dataset.Category) []dataset.Category {
	present := make(map[dataset.Category]bool, len(seen))
	for _, c := range seen {
		present[c] = true
	}
	out := make([]dataset.Category, 0, len(seen))
	for _, c := range dataset.NewRegistry().Categories() {
		if present[c] {
			out = append(out, c)
			delete(present, c)
		}
	}
	for _, c := range seen {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}
