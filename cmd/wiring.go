package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/export"
	"github.com/sells-group/aadhaar-cli/internal/loader"
	"github.com/sells-group/aadhaar-cli/internal/pipeline"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
	"github.com/sells-group/aadhaar-cli/internal/store"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// datasetRoot returns the directory holding one sub-directory per category.
func datasetRoot() string {
	return filepath.Join(cfg.Data.Root, cfg.Data.DatasetDir)
}

func initLoader() (*dataset.Registry, *loader.Loader) {
	reg := dataset.NewRegistry()
	return reg, loader.New(datasetRoot(), reg)
}

// initStore opens the configured run store. It returns a nil store when the
// driver is "none".
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Driver == "none" {
		return nil, nil
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.MaxConns)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// requireStore opens the store and applies migrations, failing when run
// history is disabled.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run history is disabled (store.driver is none)")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func analysisDefaults() pipeline.Defaults {
	return pipeline.Defaults{
		Granularity:          cfg.Analyze.Granularity,
		GeoLevel:             cfg.Analyze.GeoLevel,
		TopN:                 cfg.Analyze.TopN,
		OutlierMethod:        cfg.Analyze.OutlierMethod,
		OutlierThreshold:     cfg.Analyze.OutlierThreshold,
		SeasonalityThreshold: cfg.Analyze.SeasonalityThreshold,
	}
}

// loadCleaned loads and cleans one category.
func loadCleaned(ctx context.Context, l *loader.Loader, spec dataset.Spec) (*table.Table, *preprocess.Report, error) {
	raw, err := l.Load(ctx, spec.Category, loader.Options{Partitions: cfg.Data.Partitions})
	if err != nil {
		return nil, nil, err
	}
	return preprocess.Clean(raw, spec, preprocess.Options{DateLayout: cfg.Clean.DateLayout})
}

// newWriter returns an export writer, taking dir and format from config
// when the overrides are empty.
func newWriter(dir, format string) (*export.Writer, error) {
	if dir == "" {
		dir = cfg.Export.Dir
	}
	if format == "" {
		format = cfg.Export.Format
	}
	return export.NewWriter(dir, format)
}

// printSheet writes a sheet as an aligned text table.
func printSheet(out io.Writer, s export.Sheet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := make([]string, len(s.Header))
	for i, h := range s.Header {
		header[i] = strings.ToUpper(h)
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range s.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = export.CellString(v)
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}
