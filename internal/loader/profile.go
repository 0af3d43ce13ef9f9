package loader

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/aadhaar-cli/internal/table"
)

// ColumnProfile summarizes one raw column.
type ColumnProfile struct {
	Name       string `json:"name"`
	Missing    int    `json:"missing"`
	NonNumeric int    `json:"non_numeric"`
	Distinct   int    `json:"distinct"`
}

// Profile describes a raw table before cleaning.
type Profile struct {
	Category string          `json:"category"`
	Rows     int             `json:"rows"`
	Files    int             `json:"files"`
	Bytes    int64           `json:"bytes"` // approximate in-memory size of cell text
	Columns  []ColumnProfile `json:"columns"`
	Sample   [][]string      `json:"sample"`
}

// ProfileRaw computes a profile with up to sampleRows example rows.
func ProfileRaw(raw *table.Raw, sampleRows int) *Profile {
	p := &Profile{
		Category: raw.Category.String(),
		Rows:     raw.Len(),
		Files:    len(raw.Sources),
		Columns:  make([]ColumnProfile, len(raw.Header)),
	}

	distinct := make([]map[string]struct{}, len(raw.Header))
	for i, h := range raw.Header {
		p.Columns[i].Name = h
		distinct[i] = make(map[string]struct{})
	}

	for _, row := range raw.Rows {
		for i, cell := range row {
			p.Bytes += int64(len(cell))
			v := strings.TrimSpace(cell)
			if v == "" {
				p.Columns[i].Missing++
				continue
			}
			if !isNumeric(v) {
				p.Columns[i].NonNumeric++
			}
			distinct[i][v] = struct{}{}
		}
	}
	for i := range p.Columns {
		p.Columns[i].Distinct = len(distinct[i])
	}

	if sampleRows > raw.Len() {
		sampleRows = raw.Len()
	}
	for _, row := range raw.Rows[:max(sampleRows, 0)] {
		p.Sample = append(p.Sample, append([]string(nil), row...))
	}
	return p
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '-' && i == 0:
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// Render writes a human-readable profile.
func (p *Profile) Render(out io.Writer) {
	_, _ = fmt.Fprintf(out, "Summary for %s dataset\n", strings.ToUpper(p.Category))
	_, _ = fmt.Fprintf(out, "Shape: %d rows x %d columns from %d files (%.2f MB of text)\n\n",
		p.Rows, len(p.Columns), p.Files, float64(p.Bytes)/(1024*1024))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COLUMN\tMISSING\tNON-NUMERIC\tDISTINCT")
	_, _ = fmt.Fprintln(w, "------\t-------\t-----------\t--------")
	for _, c := range p.Columns {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", c.Name, c.Missing, c.NonNumeric, c.Distinct)
	}
	_ = w.Flush()

	if len(p.Sample) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nSample rows:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		header[i] = c.Name
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range p.Sample {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}
