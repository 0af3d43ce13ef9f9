package preprocess

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aadhaar-cli/internal/dataset"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

func TestDetectOutliers_IQR(t *testing.T) {
	mask, err := DetectOutliers([]float64{1, 2, 2, 3, 2, 1, 100}, MethodIQR, 3.0)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false, false, false, true}, mask)
	assert.Equal(t, 1, CountOutliers(mask))
}

func TestDetectOutliers_DefaultThreshold(t *testing.T) {
	withDefault, err := DetectOutliers([]float64{1, 2, 2, 3, 2, 1, 100}, MethodIQR, 0)
	require.NoError(t, err)
	explicit, err := DetectOutliers([]float64{1, 2, 2, 3, 2, 1, 100}, MethodIQR, DefaultOutlierThreshold)
	require.NoError(t, err)
	assert.Equal(t, explicit, withDefault)
}

func TestDetectOutliers_IQRMultiplier(t *testing.T) {
	// Q1=1.5, Q3=2.5: k=1 gives bounds [0.5, 3.5], k=0.25 gives [1.25, 2.75].
	values := []float64{1, 2, 2, 3, 2, 1, 100}
	mask, err := DetectOutliers(values, MethodIQR, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, CountOutliers(mask))

	mask, err = DetectOutliers(values, MethodIQR, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, true, false, true, true}, mask)
}

func TestDetectOutliers_ZScore(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 10
	}
	values[5] = 11
	values[19] = 500

	mask, err := DetectOutliers(values, MethodZScore, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, CountOutliers(mask))
	assert.True(t, mask[19])
}

func TestDetectOutliers_ZScoreConstant(t *testing.T) {
	mask, err := DetectOutliers([]float64{5, 5, 5}, MethodZScore, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, CountOutliers(mask))
}

func TestDetectOutliers_Empty(t *testing.T) {
	mask, err := DetectOutliers(nil, MethodIQR, 3)
	require.NoError(t, err)
	assert.Empty(t, mask)
}

func TestDetectOutliers_UnknownMethod(t *testing.T) {
	_, err := DetectOutliers([]float64{1, 2}, Method("mad"), 3)
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("IQR")
	require.NoError(t, err)
	assert.Equal(t, MethodIQR, m)

	m, err = ParseMethod("z-score")
	require.NoError(t, err)
	assert.Equal(t, MethodZScore, m)

	_, err = ParseMethod("mad")
	assert.Error(t, err)
}

func TestOutlierMask_DoesNotMutate(t *testing.T) {
	raw := enrolRaw(
		[]string{"01-03-2025", "Delhi", "New Delhi", "110001", "1", "0", "0"},
		[]string{"02-03-2025", "Delhi", "New Delhi", "110001", "2", "0", "0"},
		[]string{"03-03-2025", "Delhi", "New Delhi", "110001", "2", "0", "0"},
		[]string{"04-03-2025", "Delhi", "New Delhi", "110001", "3", "0", "0"},
		[]string{"05-03-2025", "Delhi", "New Delhi", "110001", "2", "0", "0"},
		[]string{"06-03-2025", "Delhi", "New Delhi", "110001", "1", "0", "0"},
		[]string{"07-03-2025", "Delhi", "New Delhi", "110001", "100", "0", "0"},
	)
	tbl, _, err := Clean(raw, dataset.EnrolmentSpec(), Options{})
	require.NoError(t, err)
	before := append([]table.Record(nil), tbl.Records...)

	mask, err := OutlierMask(tbl, "total", MethodIQR, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false, false, false, true}, mask)
	assert.Equal(t, before, tbl.Records)

	_, err = OutlierMask(tbl, "age_99", MethodIQR, 3)
	var cnf *table.ColumnNotFoundError
	assert.True(t, errors.As(err, &cnf))
}
