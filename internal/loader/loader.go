// Package loader discovers the chunked CSV extracts of each dataset category
// and concatenates them into one raw table per category.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// MissingDatasetError is returned when a category directory holds no chunks.
type MissingDatasetError struct {
	Category dataset.Category
	Dir      string
}

func (e *MissingDatasetError) Error() string {
	return fmt.Sprintf("no CSV files found for %s in %s", e.Category, e.Dir)
}

// SchemaMismatchError is returned when a chunk's columns differ from the
// first chunk of the same category.
type SchemaMismatchError struct {
	Category dataset.Category
	File     string
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s chunk %s: expected columns [%s], got [%s]",
		e.Category, filepath.Base(e.File), strings.Join(e.Expected, ","), strings.Join(e.Got, ","))
}

// Options controls how chunks are read.
type Options struct {
	// Partitions is the number of chunks read concurrently. Values <= 1 read
	// sequentially. The resulting table is identical either way.
	Partitions int
}

// Loader reads category chunks from a dataset root directory.
type Loader struct {
	root string
	reg  *dataset.Registry
}

// New creates a Loader rooted at the directory that contains one
// sub-directory per category.
func New(root string, reg *dataset.Registry) *Loader {
	return &Loader{root: root, reg: reg}
}

// Dir returns the directory holding a category's chunks.
func (l *Loader) Dir(spec dataset.Spec) string {
	return filepath.Join(l.root, spec.Dir)
}

// Discover returns the sorted chunk files of a category.
func (l *Loader) Discover(spec dataset.Spec) ([]string, error) {
	dir := l.Dir(spec)
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, eris.Wrapf(err, "loader: glob %s", dir)
	}
	if len(files) == 0 {
		return nil, &MissingDatasetError{Category: spec.Category, Dir: dir}
	}
	sort.Strings(files)
	return files, nil
}

type chunk struct {
	header []string
	rows   [][]string
}

// Load reads and concatenates every chunk of a category.
func (l *Loader) Load(ctx context.Context, c dataset.Category, opts Options) (*table.Raw, error) {
	spec, err := l.reg.Get(c)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "loader"), zap.String("category", c.String()))

	files, err := l.Discover(spec)
	if err != nil {
		return nil, err
	}
	log.Info("found chunk files", zap.Int("files", len(files)))

	chunks := make([]chunk, len(files))
	if opts.Partitions > 1 {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Partitions)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				ch, err := readChunk(gCtx, path)
				if err != nil {
					return err
				}
				chunks[i] = ch
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, path := range files {
			ch, err := readChunk(ctx, path)
			if err != nil {
				return nil, err
			}
			chunks[i] = ch
		}
	}

	raw, err := concat(c, files, chunks)
	if err != nil {
		return nil, err
	}

	log.Info("loaded records", zap.Int("rows", raw.Len()), zap.Int("columns", len(raw.Header)))
	return raw, nil
}

// LoadAll loads every registered category, in registration order.
func (l *Loader) LoadAll(ctx context.Context, opts Options) (map[dataset.Category]*table.Raw, error) {
	out := make(map[dataset.Category]*table.Raw)
	for _, c := range l.reg.Categories() {
		raw, err := l.Load(ctx, c, opts)
		if err != nil {
			return nil, err
		}
		out[c] = raw
	}
	return out, nil
}

func readChunk(ctx context.Context, path string) (chunk, error) {
	zap.L().Debug("reading chunk", zap.String("file", filepath.Base(path)))

	f, err := os.Open(path)
	if err != nil {
		return chunk{}, eris.Wrapf(err, "loader: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rowCh, errCh := streamCSV(ctx, f)

	var ch chunk
	first := true
	for record := range rowCh {
		if first {
			ch.header = normalizeHeader(record)
			first = false
			continue
		}
		ch.rows = append(ch.rows, fitWidth(record, len(ch.header)))
	}
	for err := range errCh {
		if err != nil {
			return chunk{}, eris.Wrapf(err, "loader: read %s", filepath.Base(path))
		}
	}
	return ch, nil
}

// concat validates chunk headers against the first chunk and joins rows in
// file order, reordering columns where a chunk lists them differently.
func concat(c dataset.Category, files []string, chunks []chunk) (*table.Raw, error) {
	raw := &table.Raw{Category: c, Sources: files}

	for i, ch := range chunks {
		if i == 0 {
			raw.Header = ch.header
			total := 0
			for _, other := range chunks {
				total += len(other.rows)
			}
			raw.Rows = make([][]string, 0, total)
			raw.Rows = append(raw.Rows, ch.rows...)
			continue
		}

		perm, ok := permutation(raw.Header, ch.header)
		if !ok {
			return nil, &SchemaMismatchError{Category: c, File: files[i], Expected: raw.Header, Got: ch.header}
		}
		if perm == nil {
			raw.Rows = append(raw.Rows, ch.rows...)
			continue
		}
		for _, row := range ch.rows {
			reordered := make([]string, len(perm))
			for dst, src := range perm {
				reordered[dst] = row[src]
			}
			raw.Rows = append(raw.Rows, reordered)
		}
	}
	return raw, nil
}

// permutation maps want's positions onto got's. It returns (nil, true) when
// the headers are already identical and false when the column sets differ.
func permutation(want, got []string) ([]int, bool) {
	if len(want) != len(got) {
		return nil, false
	}
	same := true
	idx := make(map[string]int, len(got))
	for i, h := range got {
		idx[h] = i
		if h != want[i] {
			same = false
		}
	}
	if same {
		return nil, true
	}
	if len(idx) != len(got) {
		return nil, false
	}
	perm := make([]int, len(want))
	for i, h := range want {
		src, ok := idx[h]
		if !ok {
			return nil, false
		}
		perm[i] = src
	}
	return perm, true
}
