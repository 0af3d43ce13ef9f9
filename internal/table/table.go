// Package table holds the in-memory tables passed between pipeline stages:
// the raw string table produced by the loader and the typed, cleaned table
// produced by the preprocessor.
package table

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
)

// Feature column names derived from a record's date.
const (
	ColYear      = "year"
	ColMonth     = "month"
	ColDayOfWeek = "day_of_week"
	ColWeek      = "week_of_year"
	ColQuarter   = "quarter"
)

// ColumnNotFoundError is returned when a requested column does not exist.
type ColumnNotFoundError struct {
	Column   string
	Category dataset.Category
}

func (e *ColumnNotFoundError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("column %q not found in %s table", e.Column, e.Category)
}

// Raw is a loaded but uncleaned table: every cell is text.
type Raw struct {
	Category dataset.Category
	Header   []string
	Rows     [][]string
	Sources  []string // chunk files in load order
}

// Len returns the number of data rows.
func (r *Raw) Len() int { return len(r.Rows) }

// ColumnIndex returns the position of a column in the header.
func (r *Raw) ColumnIndex(name string) (int, bool) {
	for i, h := range r.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Features are calendar attributes derived from a record's date.
type Features struct {
	Year      int `json:"year"`
	Month     int `json:"month"`
	DayOfWeek int `json:"day_of_week"` // Monday = 0
	Week      int `json:"week_of_year"`
	Quarter   int `json:"quarter"`
}

// Record is one cleaned row.
type Record struct {
	Date     time.Time `json:"date"`
	State    string    `json:"state"`
	District string    `json:"district"`
	Pincode  string    `json:"pincode"`
	Counts   []int64   `json:"counts"` // aligned with Table.Brackets
	Total    int64     `json:"total"`
	Features
}

// Table is a cleaned table for one category. Analyses treat it as read-only.
type Table struct {
	Category    dataset.Category
	Brackets    []string
	TotalColumn string
	Records     []Record
}

// New creates an empty table for a category spec.
func New(spec dataset.Spec) *Table {
	brackets := make([]string, len(spec.Brackets))
	copy(brackets, spec.Brackets)
	return &Table{
		Category:    spec.Category,
		Brackets:    brackets,
		TotalColumn: spec.TotalColumn,
	}
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// NumericColumns lists the column names accepted by Column.
func (t *Table) NumericColumns() []string {
	cols := make([]string, 0, len(t.Brackets)+6)
	cols = append(cols, t.Brackets...)
	cols = append(cols, dataset.ColTotal)
	if t.TotalColumn != "" {
		cols = append(cols, t.TotalColumn)
	}
	return append(cols, ColYear, ColMonth, ColDayOfWeek, ColWeek, ColQuarter)
}

// Column returns the values of a numeric column as float64.
func (t *Table) Column(name string) ([]float64, error) {
	get, err := t.numericAccessor(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.Records))
	for i := range t.Records {
		out[i] = get(&t.Records[i])
	}
	return out, nil
}

func (t *Table) numericAccessor(name string) (func(*Record) float64, error) {
	for i, b := range t.Brackets {
		if b == name {
			idx := i
			return func(r *Record) float64 { return float64(r.Counts[idx]) }, nil
		}
	}
	switch name {
	case dataset.ColTotal:
		return func(r *Record) float64 { return float64(r.Total) }, nil
	case ColYear:
		return func(r *Record) float64 { return float64(r.Year) }, nil
	case ColMonth:
		return func(r *Record) float64 { return float64(r.Month) }, nil
	case ColDayOfWeek:
		return func(r *Record) float64 { return float64(r.DayOfWeek) }, nil
	case ColWeek:
		return func(r *Record) float64 { return float64(r.Week) }, nil
	case ColQuarter:
		return func(r *Record) float64 { return float64(r.Quarter) }, nil
	}
	if name != "" && name == t.TotalColumn {
		return func(r *Record) float64 { return float64(r.Total) }, nil
	}
	return nil, &ColumnNotFoundError{Column: name, Category: t.Category}
}

// Labels returns a column rendered as text, for grouping and contingency
// tables. Geographic columns, the date, and integer features are supported.
func (t *Table) Labels(name string) ([]string, error) {
	var get func(*Record) string
	switch name {
	case dataset.ColState:
		get = func(r *Record) string { return r.State }
	case dataset.ColDistrict:
		get = func(r *Record) string { return r.District }
	case dataset.ColPincode:
		get = func(r *Record) string { return r.Pincode }
	case dataset.ColDate:
		get = func(r *Record) string { return r.Date.Format(time.DateOnly) }
	case ColYear, ColMonth, ColDayOfWeek, ColWeek, ColQuarter:
		num, err := t.numericAccessor(name)
		if err != nil {
			return nil, err
		}
		get = func(r *Record) string { return strconv.Itoa(int(num(r))) }
	default:
		return nil, &ColumnNotFoundError{Column: name, Category: t.Category}
	}

	out := make([]string, len(t.Records))
	for i := range t.Records {
		out[i] = get(&t.Records[i])
	}
	return out, nil
}

// ToRaw renders the table back into raw form using the given date layout.
// Cleaning the result yields the same table.
func (t *Table) ToRaw(dateLayout string) *Raw {
	header := []string{dataset.ColDate, dataset.ColState, dataset.ColDistrict, dataset.ColPincode}
	header = append(header, t.Brackets...)

	rows := make([][]string, len(t.Records))
	for i, r := range t.Records {
		row := make([]string, 0, len(header))
		row = append(row, r.Date.Format(dateLayout), r.State, r.District, r.Pincode)
		for _, c := range r.Counts {
			row = append(row, strconv.FormatInt(c, 10))
		}
		rows[i] = row
	}
	return &Raw{Category: t.Category, Header: header, Rows: rows}
}
