package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aadhaar-cli/internal/table"
)

// Granularity is the width of a temporal bucket.
type Granularity string

const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
)

// ParseGranularity accepts full names, adjectives and one-letter codes.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "day", "daily":
		return Day, nil
	case "w", "week", "weekly":
		return Week, nil
	case "m", "month", "monthly":
		return Month, nil
	case "q", "quarter", "quarterly":
		return Quarter, nil
	default:
		return "", eris.Errorf("analysis: unknown granularity %q (valid: day, week, month, quarter)", s)
	}
}

// Bucket aggregates one period. Weeks run Monday to Sunday.
type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Sum   float64   `json:"sum"`
	Mean  float64   `json:"mean"`
	Count int       `json:"count"`
}

// Temporal sums a numeric column per period. Buckets are chronological and
// contiguous: periods with no records between the first and last are
// included with a zero count.
func Temporal(t *table.Table, column string, g Granularity) ([]Bucket, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	g, err = ParseGranularity(string(g))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []Bucket{}, nil
	}

	type acc struct {
		sum   float64
		count int
	}
	byStart := make(map[int64]*acc)
	first, last := bucketStart(t.Records[0].Date, g), bucketStart(t.Records[0].Date, g)
	for i, r := range t.Records {
		start := bucketStart(r.Date, g)
		if start.Before(first) {
			first = start
		}
		if start.After(last) {
			last = start
		}
		a, ok := byStart[start.Unix()]
		if !ok {
			a = &acc{}
			byStart[start.Unix()] = a
		}
		a.sum += values[i]
		a.count++
	}

	var out []Bucket
	for start := first; !start.After(last); start = nextBucket(start, g) {
		b := Bucket{
			Label: bucketLabel(start, g),
			Start: start,
			End:   nextBucket(start, g).AddDate(0, 0, -1),
		}
		if a, ok := byStart[start.Unix()]; ok {
			b.Sum = a.sum
			b.Count = a.count
			b.Mean = a.sum / float64(a.count)
		}
		out = append(out, b)
	}
	return out, nil
}

func bucketStart(d time.Time, g Granularity) time.Time {
	y, m, day := d.Date()
	switch g {
	case Week:
		offset := (int(d.Weekday()) + 6) % 7
		return time.Date(y, m, day-offset, 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Quarter:
		q := (int(m) - 1) / 3
		return time.Date(y, time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
}

func nextBucket(start time.Time, g Granularity) time.Time {
	switch g {
	case Week:
		return start.AddDate(0, 0, 7)
	case Month:
		return start.AddDate(0, 1, 0)
	case Quarter:
		return start.AddDate(0, 3, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

func bucketLabel(start time.Time, g Granularity) string {
	switch g {
	case Month:
		return start.Format("2006-01")
	case Quarter:
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	default:
		return start.Format(time.DateOnly)
	}
}
