package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/monitoring"
	"github.com/sells-group/aadhaar-cli/internal/store"
)

var (
	runsCategory   string
	runsStatus     string
	runsLimit      int
	runsStatsHours int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List pipeline run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := store.RunFilter{
			Status: store.RunStatus(runsStatus),
			Limit:  runsLimit,
		}
		if runsCategory != "" {
			c, err := dataset.ParseCategory(runsCategory)
			if err != nil {
				return err
			}
			filter.Category = c
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// runDetail is the JSON document printed by runs show.
type runDetail struct {
	*store.Run
	Aggregates []aggregateRef `json:"aggregates"`
}

type aggregateRef struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run with its cleaning report and saved aggregates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		aggs, err := st.ListAggregates(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(newRunDetail(run, aggs))
	},
}

func newRunDetail(run *store.Run, aggs []store.Aggregate) runDetail {
	d := runDetail{Run: run, Aggregates: make([]aggregateRef, len(aggs))}
	for i, a := range aggs {
		d.Aggregates[i] = aggregateRef{Name: a.Name, Kind: a.Kind}
	}
	return d
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-category run health over a lookback window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx, runsStatsHours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsCategory, "category", "", "filter by dataset category")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by run status (running, complete, failed)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max number of runs to display")

	runsStatsCmd.Flags().IntVar(&runsStatsHours, "since-hours", 24, "lookback window in hours (0 for all runs)")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCATEGORY\tSTATUS\tROWS\tREMOVED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t----\t-------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		rows, removed := "-", "-"
		if r.Report != nil {
			rows = fmt.Sprintf("%d", r.Report.FinalRows())
			removed = fmt.Sprintf("%d", r.Report.RowsRemoved())
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Category,
			r.Status,
			rows,
			removed,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate run health to w.
func formatRunStats(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tTOTAL\tCOMPLETE\tFAILED\tRUNNING\tFAIL_RATE\tAVG_REMOVED\tAVG_DURATION")
	_, _ = fmt.Fprintln(w, "--------\t-----\t--------\t------\t-------\t---------\t-----------\t------------")
	for _, m := range s.Categories {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f%%\t%.2f%%\t%.1fs\n",
			m.Category, m.Total, m.Complete, m.Failed, m.Running,
			m.FailRate*100, m.AvgRemovedPct, m.AvgDurSecs,
		)
	}
	_, _ = fmt.Fprintf(w, "all\t%d\t%d\t%d\t%d\t%.1f%%\t\t\n",
		s.Total, s.Complete, s.Failed, s.Running, s.FailRate*100)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
