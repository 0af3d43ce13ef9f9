package analysis

// GrowthPoint is the percentage change of one value against the value a
// fixed number of periods earlier. Growth is meaningful only when Valid is
// set: the first periods points have no base and a zero base is undefined.
type GrowthPoint struct {
	Label  string  `json:"label,omitempty"`
	Value  float64 `json:"value"`
	Growth float64 `json:"growth_pct"`
	Valid  bool    `json:"valid"`
}

// Growth computes period-over-period percentage change. A periods value
// below 1 is treated as 1.
func Growth(values []float64, periods int) []GrowthPoint {
	if periods < 1 {
		periods = 1
	}
	out := make([]GrowthPoint, len(values))
	for i, v := range values {
		out[i].Value = v
		if i < periods {
			continue
		}
		base := values[i-periods]
		if base == 0 {
			continue
		}
		out[i].Growth = (v - base) / base * 100
		out[i].Valid = true
	}
	return out
}

// BucketGrowth computes growth of bucket sums, labelled by bucket.
func BucketGrowth(buckets []Bucket, periods int) []GrowthPoint {
	values := make([]float64, len(buckets))
	for i, b := range buckets {
		values[i] = b.Sum
	}
	out := Growth(values, periods)
	for i, b := range buckets {
		out[i].Label = b.Label
	}
	return out
}
