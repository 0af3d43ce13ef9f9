package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func sampleSheet() Sheet {
	return Sheet{
		Header: []string{"state", "total_sum", "count", "significant", "date"},
		Rows: [][]any{
			{"Delhi", 150.5, 2, true, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
			{"Goa", 10.0, int64(1), false, nil},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": CSV, "CSV": CSV, "json": JSON, " xlsx ": XLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("parquet")
	assert.Error(t, err)

	_, err = NewWriter(t.TempDir(), "parquet")
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "enrolment_top_10_districts", SanitizeName("Enrolment: Top 10 Districts"))
	assert.Equal(t, "a-b_c", SanitizeName("  a-b/c  "))
	assert.Equal(t, "sheet", SanitizeName("///"))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", CellString(nil))
	assert.Equal(t, "1.25", CellString(1.25))
	assert.Equal(t, "100", CellString(100.0))
	assert.Equal(t, "7", CellString(7))
	assert.Equal(t, "-3", CellString(int64(-3)))
	assert.Equal(t, "true", CellString(true))
	assert.Equal(t, "2025-03-01", CellString(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "[1,2]", CellString([]int{1, 2}))
}

func TestWriteSheet_CSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	w, err := NewWriter(dir, "csv")
	require.NoError(t, err)

	path, err := w.WriteSheet("State Totals", sampleSheet())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "state_totals.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"state", "total_sum", "count", "significant", "date"}, records[0])
	assert.Equal(t, []string{"Delhi", "150.5", "2", "true", "2025-01-31"}, records[1])
	assert.Equal(t, []string{"Goa", "10", "1", "false", ""}, records[2])
}

func TestWriteSheet_JSON(t *testing.T) {
	w := &Writer{Dir: t.TempDir(), Format: JSON}
	path, err := w.WriteSheet("totals", sampleSheet())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))

	require.Len(t, records, 2)
	assert.Equal(t, "Delhi", records[0]["state"])
	assert.Equal(t, 150.5, records[0]["total_sum"])
	assert.Equal(t, 2.0, records[0]["count"])
	assert.Equal(t, true, records[0]["significant"])
	assert.Equal(t, "2025-01-31", records[0]["date"])
	assert.Nil(t, records[1]["date"])
}

func TestWriteSheet_XLSX(t *testing.T) {
	w := &Writer{Dir: t.TempDir(), Format: XLSX}
	path, err := w.WriteSheet("a very long sheet name that exceeds the xlsx limit", sampleSheet())
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.LessOrEqual(t, len(sheet.Name), 31)

	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "state", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Delhi", sheet.Rows[1].Cells[0].String())
	v, err := sheet.Rows[1].Cells[1].Float()
	require.NoError(t, err)
	assert.Equal(t, 150.5, v)
	n, err := sheet.Rows[2].Cells[2].Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "2025-01-31", sheet.Rows[1].Cells[4].String())
}
