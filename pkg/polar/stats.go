package polar

import (
	"math"
	"sort"
)

// Percentile returns the pct-th percentile (0-100) of values, interpolating
// linearly between the two nearest ranks on the (n-1)*p scale.
// ok is false for empty input.
func Percentile(values []float64, pct float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	ordered := append([]float64(nil), values...)
	sort.Float64s(ordered)
	if len(ordered) == 1 {
		return ordered[0], true
	}

	pct = math.Max(0, math.Min(100, pct))
	rank := float64(len(ordered)-1) * pct / 100
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return ordered[lower], true
	}
	frac := rank - float64(lower)
	return ordered[lower] + (ordered[upper]-ordered[lower])*frac, true
}

// RemoveOutliers drops values outside 1.5 IQR of the quartiles. Fewer than
// four values are returned unchanged; a zero IQR keeps only [q1, q3].
func RemoveOutliers(values []float64) []float64 {
	if len(values) < 4 {
		return values
	}
	q1, _ := Percentile(values, 25)
	q3, _ := Percentile(values, 75)
	iqr := q3 - q1

	lower, upper := q1, q3
	if iqr > 0 {
		lower = q1 - 1.5*iqr
		upper = q3 + 1.5*iqr
	}

	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lower && v <= upper {
			out = append(out, v)
		}
	}
	return out
}
