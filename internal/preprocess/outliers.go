package preprocess

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aadhaar-cli/internal/stats"
	"github.com/sells-group/aadhaar-cli/internal/table"
)

// Method selects an outlier detection rule.
type Method string

const (
	MethodIQR    Method = "iqr"
	MethodZScore Method = "zscore"
)

// DefaultOutlierThreshold is the IQR multiplier and the z-score cutoff used
// when none is given.
const DefaultOutlierThreshold = 3.0

// ParseMethod converts a user-supplied method name.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iqr":
		return MethodIQR, nil
	case "zscore", "z-score", "z":
		return MethodZScore, nil
	default:
		return "", eris.Errorf("preprocess: unknown outlier method %q (valid: iqr, zscore)", s)
	}
}

// DetectOutliers returns a mask marking values outside the method's bounds.
// A threshold <= 0 selects DefaultOutlierThreshold.
func DetectOutliers(values []float64, method Method, threshold float64) ([]bool, error) {
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	mask := make([]bool, len(values))
	if len(values) == 0 {
		return mask, nil
	}

	switch method {
	case MethodIQR:
		sorted := stats.Sorted(values)
		q1 := stats.Quantile(0.25, sorted)
		q3 := stats.Quantile(0.75, sorted)
		iqr := q3 - q1
		lower, upper := q1-threshold*iqr, q3+threshold*iqr
		for i, v := range values {
			mask[i] = v < lower || v > upper
		}
	case MethodZScore:
		mean := stats.Mean(values)
		sd := stats.StdDev(values)
		if sd == 0 {
			return mask, nil
		}
		for i, v := range values {
			mask[i] = math.Abs((v-mean)/sd) > threshold
		}
	default:
		return nil, eris.Errorf("preprocess: unknown outlier method %q", method)
	}
	return mask, nil
}

// OutlierMask runs DetectOutliers over a table column. The table is not
// modified.
func OutlierMask(t *table.Table, column string, method Method, threshold float64) ([]bool, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	return DetectOutliers(values, method, threshold)
}

// CountOutliers returns how many entries of a mask are set.
func CountOutliers(mask []bool) int {
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return n
}
