package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aadhaar-cli/internal/monitoring"
	"github.com/sells-group/aadhaar-cli/internal/pipeline"
	"github.com/sells-group/aadhaar-cli/internal/store"
)

var (
	runCategories  []string
	runPlanPath    string
	runNoStore     bool
	runSaveRecords bool
	runOut         string
	runFormat      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full load, clean and analyze pipeline",
	Long:  "Processes each selected category (all by default) end to end, exports every analysis result and records the run history. A failing category does not stop the others.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("component", "cmd.run"))

		plan := pipeline.DefaultPlan()
		path := runPlanPath
		if path == "" {
			path = cfg.Analyze.PlanPath
		}
		if path != "" {
			p, err := pipeline.LoadPlan(path)
			if err != nil {
				return err
			}
			plan = p
			log.Info("loaded analysis plan", zap.String("path", path), zap.Int("analyses", len(plan.Analyses)))
		}

		var st store.Store
		if !runNoStore {
			var err error
			if st, err = initStore(ctx); err != nil {
				return err
			}
			if st != nil {
				defer st.Close() //nolint:errcheck
				if err := st.Migrate(ctx); err != nil {
					return eris.Wrap(err, "migrate store")
				}
			}
		}

		w, err := newWriter(runOut, runFormat)
		if err != nil {
			return err
		}

		reg, l := initLoader()
		engine := pipeline.NewEngine(reg, l, st, w, pipeline.Options{
			DateLayout:  cfg.Clean.DateLayout,
			Partitions:  cfg.Data.Partitions,
			SaveRecords: runSaveRecords,
			Defaults:    analysisDefaults(),
		})

		summary, err := engine.Run(ctx, pipeline.RunOpts{Categories: runCategories, Plan: plan})
		if err != nil {
			return eris.Wrap(err, "run")
		}

		formatRunSummary(os.Stdout, summary)
		if st != nil {
			checkRunHealth(ctx, st)
		}
		if n := summary.Failed(); n > 0 {
			return eris.Errorf("run: %d of %d categories failed", n, len(summary.Categories))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runCategories, "category", nil, "categories to process (default all)")
	runCmd.Flags().StringVar(&runPlanPath, "plan", "", "analysis plan YAML (default built-in plan)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "skip recording run history")
	runCmd.Flags().BoolVar(&runSaveRecords, "save-records", false, "persist cleaned records in the store")
	runCmd.Flags().StringVar(&runOut, "out", "", "export directory (default from config)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "export format: csv, json or xlsx (default from config)")
	rootCmd.AddCommand(runCmd)
}

// formatRunSummary writes one line per category followed by any failures.
func formatRunSummary(out io.Writer, s *pipeline.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tRUN\tSTATUS\tROWS\tREMOVED\tANALYSES\tFAILED\tFILES\tELAPSED")
	_, _ = fmt.Fprintln(w, "--------\t---\t------\t----\t-------\t--------\t------\t-----\t-------")

	for _, c := range s.Categories {
		status := string(store.RunStatusComplete)
		if c.Err != nil {
			status = string(store.RunStatusFailed)
		}
		rows, removed := "-", "-"
		if c.Report != nil {
			rows = fmt.Sprintf("%d", c.Report.FinalRows())
			removed = fmt.Sprintf("%.2f%%", c.Report.RemovedPct())
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			c.Category,
			truncateID(c.RunID),
			status,
			rows,
			removed,
			len(c.Results),
			len(c.Failed),
			len(c.Files),
			c.Elapsed.Round(time.Millisecond),
		)
	}
	_ = w.Flush()

	for _, c := range s.Categories {
		if c.Err != nil {
			_, _ = fmt.Fprintf(out, "\n%s failed: %v\n", c.Category, c.Err)
		}
		for _, f := range c.Failed {
			_, _ = fmt.Fprintf(out, "\n%s/%s failed: %s\n", c.Category, f.Analysis, f.Error)
		}
	}
}

// checkRunHealth evaluates recent run history and sends any alerts. Problems
// are logged and never fail the run.
func checkRunHealth(ctx context.Context, st store.Store) {
	log := zap.L().With(zap.String("component", "cmd.run"))

	snap, err := monitoring.NewCollector(st).Collect(ctx, cfg.Monitoring.LookbackHours)
	if err != nil {
		log.Warn("run health check failed", zap.Error(err))
		return
	}
	alerter := monitoring.NewAlerter(cfg.Monitoring)
	alerts := alerter.Evaluate(snap)
	for _, a := range alerts {
		log.Warn("run health alert", zap.String("type", string(a.Type)), zap.String("message", a.Message))
	}
	alerter.SendAlerts(ctx, alerts)
}
