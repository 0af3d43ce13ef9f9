package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aadhaar-cli/internal/analysis"
	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/preprocess"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

func cleanedTable(t *testing.T) *table.Table {
	t.Helper()
	raw := &table.Raw{
		Category: dataset.Enrolment,
		Header:   []string{"date", "state", "district", "pincode", "age_0_5", "age_5_17", "age_18_greater"},
		Rows: [][]string{
			{"01-01-2025", "Delhi", "New Delhi", "110001", "60", "30", "10"},
			{"01-02-2025", "Delhi", "New Delhi", "110001", "100", "50", "0"},
			{"bad", "Delhi", "New Delhi", "110001", "1", "1", "1"},
		},
	}
	tbl, _, err := preprocess.Clean(raw, dataset.EnrolmentSpec(), preprocess.Options{})
	require.NoError(t, err)
	return tbl
}

func TestTableSheet(t *testing.T) {
	s := TableSheet(cleanedTable(t))
	assert.Equal(t, []string{
		"date", "state", "district", "pincode", "age_0_5", "age_5_17", "age_18_greater",
		"total", "year", "month", "day_of_week", "week_of_year", "quarter",
	}, s.Header)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), s.Rows[0][0])
	assert.Equal(t, int64(100), s.Rows[0][7])
	assert.Equal(t, 2025, s.Rows[0][8])
	assert.Equal(t, 2, s.Rows[1][9])
}

func TestBucketAndGrowthSheets(t *testing.T) {
	buckets, err := analysis.Temporal(cleanedTable(t), "total", analysis.Month)
	require.NoError(t, err)

	s := BucketSheet("total", buckets)
	assert.Equal(t, []string{"period", "start", "end", "total_sum", "total_mean", "count"}, s.Header)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, "2025-01", s.Rows[0][0])
	assert.Equal(t, 100.0, s.Rows[0][3])
	assert.Equal(t, 150.0, s.Rows[1][3])

	g := GrowthSheet("total", analysis.BucketGrowth(buckets, 1))
	require.Len(t, g.Rows, 2)
	assert.Nil(t, g.Rows[0][2])
	assert.Equal(t, 50.0, g.Rows[1][2])
}

func TestRatioSheet_UndefinedBlank(t *testing.T) {
	rows := analysis.Ratio(
		[]analysis.GroupStat{{Key: "A", Sum: 10}, {Key: "B", Sum: 5}},
		[]analysis.GroupStat{{Key: "A", Sum: 20}},
	)
	s := RatioSheet(analysis.State, rows)
	assert.Equal(t, []string{"state", "enrolments", "updates", "update_ratio"}, s.Header)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, 50.0, s.Rows[0][3])
	assert.Nil(t, s.Rows[1][3])
}

func TestReportSheet(t *testing.T) {
	raw := &table.Raw{
		Category: dataset.Enrolment,
		Header:   []string{"date", "state", "district", "pincode", "age_0_5", "age_5_17", "age_18_greater"},
		Rows: [][]string{
			{"01-01-2025", "Delhi", "New Delhi", "110001", "1", "0", "0"},
			{"32-01-2025", "Delhi", "New Delhi", "110001", "1", "0", "0"},
		},
	}
	_, rep, err := preprocess.Clean(raw, dataset.EnrolmentSpec(), preprocess.Options{})
	require.NoError(t, err)

	s := ReportSheet(rep)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, len(s.Header), len(s.Rows[0]))
	assert.Equal(t, "enrolment", s.Rows[0][0])
	assert.Equal(t, 2, s.Rows[0][1])
	assert.Equal(t, 1, s.Rows[0][2])
	assert.Equal(t, 50.0, s.Rows[0][7])
}

func TestOutlierSheet(t *testing.T) {
	tbl := cleanedTable(t)
	s, err := OutlierSheet(tbl, "total", []bool{false, true})
	require.NoError(t, err)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, "New Delhi", s.Rows[0][2])
	assert.Equal(t, 150.0, s.Rows[0][4])

	_, err = OutlierSheet(tbl, "nope", nil)
	assert.Error(t, err)
}

func TestSeasonalitySheet(t *testing.T) {
	res, err := analysis.Seasonality(cleanedTable(t), "total", 0)
	require.NoError(t, err)
	s := SeasonalitySheet(res)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, "January", s.Rows[0][1])
	assert.Equal(t, false, s.Rows[0][4])
	assert.Equal(t, true, s.Rows[1][4])
}
