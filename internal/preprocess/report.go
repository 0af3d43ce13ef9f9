package preprocess

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
)

// Stage names recorded in a Report, in pipeline order.
const (
	StageRaw         = "raw"
	StageDateParse   = "date_parse"
	StagePincode     = "pincode"
	StageZeroRemoval = "zero_removal"
	StageDedup       = "dedup"
)

// StageCount is the row count after one cleaning step.
type StageCount struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// Report accumulates row counts and adjustments for one Clean call.
type Report struct {
	Category        dataset.Category `json:"category"`
	Stages          []StageCount     `json:"stages"`
	InvalidDates    int              `json:"invalid_dates"`
	InvalidPincodes int              `json:"invalid_pincodes"`
	CoercedCounts   int              `json:"coerced_counts"`
	ClippedCounts   int              `json:"clipped_counts"`
	ZeroRows        int              `json:"zero_rows"`
	Duplicates      int              `json:"duplicates"`
}

func newReport(c dataset.Category) *Report {
	return &Report{Category: c, Stages: make([]StageCount, 0, 5)}
}

func (r *Report) stage(name string, rows int) {
	r.Stages = append(r.Stages, StageCount{Name: name, Rows: rows})
}

// Rows returns the row count recorded for a stage, or -1 if absent.
func (r *Report) Rows(stage string) int {
	for _, s := range r.Stages {
		if s.Name == stage {
			return s.Rows
		}
	}
	return -1
}

// InitialRows returns the row count before cleaning.
func (r *Report) InitialRows() int {
	if len(r.Stages) == 0 {
		return 0
	}
	return r.Stages[0].Rows
}

// FinalRows returns the row count after the last stage.
func (r *Report) FinalRows() int {
	if len(r.Stages) == 0 {
		return 0
	}
	return r.Stages[len(r.Stages)-1].Rows
}

// RowsRemoved returns how many rows cleaning dropped.
func (r *Report) RowsRemoved() int {
	return r.InitialRows() - r.FinalRows()
}

// RemovedPct returns the dropped share of the initial rows as a percentage.
func (r *Report) RemovedPct() float64 {
	if r.InitialRows() == 0 {
		return 0
	}
	return float64(r.RowsRemoved()) / float64(r.InitialRows()) * 100
}

// Render writes the report for one category.
func (r *Report) Render(out io.Writer) {
	_, _ = fmt.Fprintf(out, "%s dataset\n", strings.ToUpper(r.Category.String()))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  STAGE\tROWS")
	for _, s := range r.Stages {
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", s.Name, s.Rows)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "  Rows removed: %d (%.2f%%)\n", r.RowsRemoved(), r.RemovedPct())
	_, _ = fmt.Fprintf(out, "  Invalid dates: %d\n", r.InvalidDates)
	_, _ = fmt.Fprintf(out, "  Invalid pincodes: %d\n", r.InvalidPincodes)
	_, _ = fmt.Fprintf(out, "  Coerced counts: %d\n", r.CoercedCounts)
	_, _ = fmt.Fprintf(out, "  Clipped counts: %d\n", r.ClippedCounts)
	_, _ = fmt.Fprintf(out, "  Zero-total rows: %d\n", r.ZeroRows)
	_, _ = fmt.Fprintf(out, "  Duplicates: %d\n", r.Duplicates)
}

// RenderAll writes a combined cleaning report.
func RenderAll(out io.Writer, reports []*Report) {
	_, _ = fmt.Fprintln(out, strings.Repeat("=", 60))
	_, _ = fmt.Fprintln(out, "DATA CLEANING REPORT")
	_, _ = fmt.Fprintln(out, strings.Repeat("=", 60))
	for _, r := range reports {
		_, _ = fmt.Fprintln(out)
		r.Render(out)
	}
}
