package preprocess

import (
	"time"

	"github.com/sells-group/aadhaar-cli/internal/table"
)

// DeriveFeatures returns the calendar features of a date. Day of week counts
// from Monday = 0; the week is the ISO-8601 week number.
func DeriveFeatures(d time.Time) table.Features {
	_, week := d.ISOWeek()
	return table.Features{
		Year:      d.Year(),
		Month:     int(d.Month()),
		DayOfWeek: (int(d.Weekday()) + 6) % 7,
		Week:      week,
		Quarter:   (int(d.Month())-1)/3 + 1,
	}
}
