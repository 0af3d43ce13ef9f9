// Package pipeline runs the end-to-end batch: for each selected category it
// loads the raw chunks, cleans them, runs the analyses of a plan, exports
// every result and records the run in the store.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/export"
	"github.com/sells-group/aadhaar-cli/internal/loader"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
	"github.com/sells-group/aadhaar-cli/internal/store"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// Options configures an Engine.
type Options struct {
	DateLayout  string
	Partitions  int
	SaveRecords bool // persist cleaned records alongside aggregates
	Defaults    Defaults
}

// Engine orchestrates pipeline runs.
type Engine struct {
	reg    *dataset.Registry
	loader *loader.Loader
	store  store.Store    // nil disables run history
	writer *export.Writer // nil disables file export
	opts   Options
}

// RunOpts selects what a run covers.
type RunOpts struct {
	Categories []string // restrict to these categories; empty means all
	Plan       *Plan    // nil means DefaultPlan
}

// AnalysisError records an analysis that failed without aborting its
// category.
type AnalysisError struct {
	Analysis string `json:"analysis"`
	Error    string `json:"error"`
}

// CategoryResult describes what happened to one category.
type CategoryResult struct {
	Category dataset.Category   `json:"category"`
	RunID    string             `json:"run_id,omitempty"`
	Report   *preprocess.Report `json:"report,omitempty"`
	Files    []string           `json:"files,omitempty"`
	Results  []*Result          `json:"-"`
	Failed   []AnalysisError    `json:"failed_analyses,omitempty"`
	Err      error              `json:"-"`
	Elapsed  time.Duration      `json:"elapsed"`

	table *table.Table
}

// Summary collects the per-category outcomes of a run.
type Summary struct {
	Categories []*CategoryResult `json:"categories"`
}

// Failed returns how many categories did not complete.
func (s *Summary) Failed() int {
	n := 0
	for _, c := range s.Categories {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// NewEngine creates a pipeline engine. st and w may be nil.
func NewEngine(reg *dataset.Registry, l *loader.Loader, st store.Store, w *export.Writer, opts Options) *Engine {
	return &Engine{reg: reg, loader: l, store: st, writer: w, opts: opts}
}

// Run processes the selected categories in order. A category that fails to
// load or clean is recorded as failed and the next one proceeds. Ratio
// analyses run once every category has been cleaned.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Summary, error) {
	log := zap.L().With(zap.String("component", "pipeline.engine"))

	plan := opts.Plan
	if plan == nil {
		plan = DefaultPlan()
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	specs, err := e.reg.Select(opts.Categories)
	if err != nil {
		return nil, err
	}
	log.Info("selected categories", zap.Int("count", len(specs)), zap.Int("analyses", len(plan.Analyses)))

	summary := &Summary{}
	for _, spec := range specs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}
		summary.Categories = append(summary.Categories, e.runCategory(ctx, spec, plan))
	}

	e.runRatios(ctx, summary, plan)

	log.Info("engine run complete",
		zap.Int("categories", len(summary.Categories)),
		zap.Int("failed", summary.Failed()),
	)
	return summary, nil
}

func (e *Engine) runCategory(ctx context.Context, spec dataset.Spec, plan *Plan) *CategoryResult {
	log := zap.L().With(zap.String("component", "pipeline.engine"), zap.String("category", spec.Category.String()))
	res := &CategoryResult{Category: spec.Category}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	if e.store != nil {
		run, err := e.store.CreateRun(ctx, spec.Category)
		if err != nil {
			res.Err = eris.Wrapf(err, "pipeline: create run for %s", spec.Category)
			log.Error("create run failed", zap.Error(err))
			return res
		}
		res.RunID = run.ID
	}

	fail := func(err error) *CategoryResult {
		res.Err = err
		log.Error("category failed", zap.Error(err))
		if e.store != nil {
			if logErr := e.store.FailRun(ctx, res.RunID, err.Error()); logErr != nil {
				log.Error("failed to record run failure", zap.Error(logErr))
			}
		}
		return res
	}

	raw, err := e.loader.Load(ctx, spec.Category, loader.Options{Partitions: e.opts.Partitions})
	if err != nil {
		return fail(err)
	}
	tbl, report, err := preprocess.Clean(raw, spec, preprocess.Options{DateLayout: e.opts.DateLayout})
	if err != nil {
		return fail(err)
	}
	res.Report, res.table = report, tbl

	if e.store != nil && e.opts.SaveRecords {
		n, err := e.store.SaveRecords(ctx, res.RunID, tbl)
		if err != nil {
			return fail(err)
		}
		log.Info("saved cleaned records", zap.Int64("rows", n))
	}
	if err := e.emit(ctx, res, "cleaning_report", "report", report, export.ReportSheet(report)); err != nil {
		return fail(err)
	}

	for _, a := range plan.Analyses {
		if a.CrossCategory() {
			continue
		}
		r, err := Execute(tbl, a, e.opts.Defaults)
		if err != nil {
			log.Warn("analysis failed", zap.String("analysis", a.Name), zap.Error(err))
			res.Failed = append(res.Failed, AnalysisError{Analysis: a.Name, Error: err.Error()})
			continue
		}
		res.Results = append(res.Results, r)
		if err := e.emit(ctx, res, r.Name, string(r.Kind), r.Value, r.Sheet); err != nil {
			return fail(err)
		}
	}

	if e.store != nil {
		if err := e.store.CompleteRun(ctx, res.RunID, report); err != nil {
			log.Error("failed to record run completion", zap.Error(err))
		}
	}
	log.Info("category complete",
		zap.Int("rows", tbl.Len()),
		zap.Int("analyses", len(res.Results)),
		zap.Int("failed_analyses", len(res.Failed)),
	)
	return res
}

// runRatios compares each cleaned update category with the enrolment table.
func (e *Engine) runRatios(ctx context.Context, summary *Summary, plan *Plan) {
	var enrol *table.Table
	for _, c := range summary.Categories {
		if c.Category == dataset.Enrolment && c.Err == nil {
			enrol = c.table
		}
	}

	for _, a := range plan.Analyses {
		if !a.CrossCategory() {
			continue
		}
		for _, c := range summary.Categories {
			if c.Err != nil || c.table == nil || c.Category == dataset.Enrolment {
				continue
			}
			if enrol == nil {
				c.Failed = append(c.Failed, AnalysisError{Analysis: a.Name, Error: "enrolment table not available"})
				continue
			}
			r, err := ExecuteRatio(enrol, c.table, a, e.opts.Defaults)
			if err != nil {
				c.Failed = append(c.Failed, AnalysisError{Analysis: a.Name, Error: err.Error()})
				continue
			}
			c.Results = append(c.Results, r)
			if err := e.emit(ctx, c, r.Name, string(r.Kind), r.Value, r.Sheet); err != nil {
				c.Failed = append(c.Failed, AnalysisError{Analysis: a.Name, Error: err.Error()})
			}
		}
	}
}

// emit exports a result and saves it against the category's run.
func (e *Engine) emit(ctx context.Context, res *CategoryResult, name, kind string, value any, sheet export.Sheet) error {
	if e.writer != nil {
		path, err := e.writer.WriteSheet(res.Category.String()+"_"+name, sheet)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, path)
	}
	if e.store != nil {
		if _, err := e.store.SaveAggregate(ctx, res.RunID, name, kind, value); err != nil {
			return err
		}
	}
	return nil
}
