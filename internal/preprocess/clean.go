// Package preprocess turns a raw category table into a cleaned table and a
// cleaning report. Record-level problems are corrected or dropped and
// counted; they are never returned as errors.
package preprocess

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// DefaultDateLayout is the day-month-year layout used by the extracts.
const DefaultDateLayout = "02-01-2006"

const pincodeLen = 6

// Options configures Clean.
type Options struct {
	DateLayout string
}

// draft is a row in flight between cleaning steps.
type draft struct {
	src      []string
	date     time.Time
	state    string
	district string
	pincode  string
	counts   []int64
	total    int64
}

type columns struct {
	date, state, district, pincode int
	brackets                       []int
}

// Clean applies the cleaning steps in order and returns the cleaned table
// with its report. Only a missing required column is an error.
func Clean(raw *table.Raw, spec dataset.Spec, opts Options) (*table.Table, *Report, error) {
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}
	log := zap.L().With(zap.String("component", "preprocess"), zap.String("category", spec.Category.String()))

	cols, err := resolveColumns(raw, spec)
	if err != nil {
		return nil, nil, err
	}

	rep := newReport(spec.Category)
	rep.stage(StageRaw, raw.Len())

	rows := make([]draft, len(raw.Rows))
	for i, r := range raw.Rows {
		rows[i] = draft{src: r}
	}

	rows = parseDates(rows, cols, opts.DateLayout, rep)
	rows = normalizeGeo(rows, cols)
	rows = normalizePincodes(rows, cols, rep)
	rows = coerceCounts(rows, cols, rep)
	rows = computeTotals(rows)
	rows = dropZeroTotals(rows, rep)
	rows = dropDuplicates(rows, rep)

	out := table.New(spec)
	out.Records = make([]table.Record, len(rows))
	for i, d := range rows {
		out.Records[i] = table.Record{
			Date:     d.date,
			State:    d.state,
			District: d.district,
			Pincode:  d.pincode,
			Counts:   d.counts,
			Total:    d.total,
			Features: DeriveFeatures(d.date),
		}
	}

	log.Info("cleaned records",
		zap.Int("initial_rows", rep.InitialRows()),
		zap.Int("final_rows", rep.FinalRows()),
		zap.Int("invalid_dates", rep.InvalidDates),
		zap.Int("invalid_pincodes", rep.InvalidPincodes),
		zap.Int("zero_rows", rep.ZeroRows),
		zap.Int("duplicates", rep.Duplicates),
	)
	return out, rep, nil
}

func resolveColumns(raw *table.Raw, spec dataset.Spec) (columns, error) {
	find := func(name string) (int, error) {
		idx, ok := raw.ColumnIndex(name)
		if !ok {
			return 0, &table.ColumnNotFoundError{Column: name, Category: spec.Category}
		}
		return idx, nil
	}

	var c columns
	var err error
	if c.date, err = find(dataset.ColDate); err != nil {
		return c, err
	}
	if c.state, err = find(dataset.ColState); err != nil {
		return c, err
	}
	if c.district, err = find(dataset.ColDistrict); err != nil {
		return c, err
	}
	if c.pincode, err = find(dataset.ColPincode); err != nil {
		return c, err
	}
	c.brackets = make([]int, len(spec.Brackets))
	for i, b := range spec.Brackets {
		if c.brackets[i], err = find(b); err != nil {
			return c, err
		}
	}
	return c, nil
}

// parseDates drops rows whose date does not parse with the layout.
func parseDates(rows []draft, cols columns, layout string, rep *Report) []draft {
	kept := rows[:0]
	for _, d := range rows {
		t, err := time.Parse(layout, strings.TrimSpace(d.src[cols.date]))
		if err != nil {
			rep.InvalidDates++
			continue
		}
		d.date = t
		kept = append(kept, d)
	}
	rep.stage(StageDateParse, len(kept))
	return kept
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// normalizeGeo trims, collapses whitespace and title-cases place names so
// spelling variants of the same place share one key.
func normalizeGeo(rows []draft, cols columns) []draft {
	title := cases.Title(language.Und)
	norm := func(s string) string {
		s = strings.TrimSpace(s)
		s = multiSpaceRe.ReplaceAllString(s, " ")
		return title.String(s)
	}
	for i := range rows {
		rows[i].state = norm(rows[i].src[cols.state])
		rows[i].district = norm(rows[i].src[cols.district])
	}
	return rows
}

// NormalizePincode left-pads a pincode to six digits. The second return is
// false when the value cannot be a valid pincode.
func NormalizePincode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0") // float artefact from spreadsheet exports
	if s == "" {
		return s, false
	}
	if len(s) < pincodeLen {
		s = strings.Repeat("0", pincodeLen-len(s)) + s
	}
	if len(s) != pincodeLen {
		return s, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s, false
		}
	}
	return s, true
}

func normalizePincodes(rows []draft, cols columns, rep *Report) []draft {
	kept := rows[:0]
	for _, d := range rows {
		pin, ok := NormalizePincode(d.src[cols.pincode])
		if !ok {
			rep.InvalidPincodes++
			continue
		}
		d.pincode = pin
		kept = append(kept, d)
	}
	rep.stage(StagePincode, len(kept))
	return kept
}

// ParseCount converts a count cell. Non-numeric, empty and fractional values
// become 0 with coerced set; negative values become 0 with clipped set.
func ParseCount(s string) (n int64, coerced, clipped bool) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
			return 0, true, false
		}
		v = int64(f)
	}
	if v < 0 {
		return 0, false, true
	}
	return v, false, false
}

func coerceCounts(rows []draft, cols columns, rep *Report) []draft {
	for i := range rows {
		counts := make([]int64, len(cols.brackets))
		for j, idx := range cols.brackets {
			n, coerced, clipped := ParseCount(rows[i].src[idx])
			if coerced {
				rep.CoercedCounts++
			}
			if clipped {
				rep.ClippedCounts++
			}
			counts[j] = n
		}
		rows[i].counts = counts
	}
	return rows
}

func computeTotals(rows []draft) []draft {
	for i := range rows {
		var total int64
		for _, c := range rows[i].counts {
			total += c
		}
		rows[i].total = total
	}
	return rows
}

func dropZeroTotals(rows []draft, rep *Report) []draft {
	kept := rows[:0]
	for _, d := range rows {
		if d.total == 0 {
			rep.ZeroRows++
			continue
		}
		kept = append(kept, d)
	}
	rep.stage(StageZeroRemoval, len(kept))
	return kept
}

// dropDuplicates removes rows identical in every cleaned field, keeping the
// first occurrence.
func dropDuplicates(rows []draft, rep *Report) []draft {
	seen := make(map[string]struct{}, len(rows))
	kept := rows[:0]
	var sb strings.Builder
	for _, d := range rows {
		sb.Reset()
		sb.WriteString(d.date.Format(time.DateOnly))
		sb.WriteByte(0)
		sb.WriteString(d.state)
		sb.WriteByte(0)
		sb.WriteString(d.district)
		sb.WriteByte(0)
		sb.WriteString(d.pincode)
		for _, c := range d.counts {
			sb.WriteByte(0)
			sb.WriteString(strconv.FormatInt(c, 10))
		}
		key := sb.String()
		if _, dup := seen[key]; dup {
			rep.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, d)
	}
	rep.stage(StageDedup, len(kept))
	return kept
}
