package polar

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// TableCenters are the true wind angles tabulated in the polar table.
var TableCenters = func() []int {
	var c []int
	for a := 35; a <= 175; a += 10 {
		c = append(c, a)
	}
	return c
}()

const (
	tableMinAngle = 30.0
	tableMaxAngle = 330.0
	extrapolation = 10.0
	angleEpsilon  = 1e-6
)

// Interpolate returns the boat speed at target from a curve sorted by angle.
// Outside the curve the nearest vertex is used up to 10 degrees away.
func Interpolate(points []CurvePoint, target float64) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	idx := sort.Search(len(points), func(i int) bool { return points[i].Angle >= target })
	if idx < len(points) && math.Abs(points[idx].Angle-target) <= angleEpsilon {
		return points[idx].STW, true
	}
	if idx == 0 {
		first := points[0]
		if first.Angle >= target && first.Angle-target <= extrapolation {
			return first.STW, true
		}
		return 0, false
	}
	if idx == len(points) {
		last := points[len(points)-1]
		if target >= last.Angle && target-last.Angle <= extrapolation {
			return last.STW, true
		}
		return 0, false
	}
	left, right := points[idx-1], points[idx]
	if math.Abs(right.Angle-left.Angle) <= angleEpsilon {
		return left.STW, true
	}
	frac := (target - left.Angle) / (right.Angle - left.Angle)
	return left.STW + frac*(right.STW-left.STW), true
}

// Table renders curves as a tab-separated polar table, one row per band.
func Table(curves []Curve) string {
	if len(curves) == 0 {
		return "TWS\n"
	}

	header := []string{"TWS"}
	for _, c := range TableCenters {
		header = append(header, fmt.Sprintf("TWA%d", c), fmt.Sprintf("STW%d", c))
	}
	lines := []string{strings.Join(header, "\t")}

	for _, curve := range curves {
		var pts []CurvePoint
		for _, p := range curve.Points {
			if p.Angle >= tableMinAngle && p.Angle <= tableMaxAngle {
				pts = append(pts, p)
			}
		}
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Angle < pts[j].Angle })

		row := []string{fmt.Sprintf("%.1f", curve.Band.Nominal)}
		for _, c := range TableCenters {
			row = append(row, fmt.Sprintf("%d", c))
			if stw, ok := Interpolate(pts, float64(c)); ok {
				row = append(row, fmt.Sprintf("%.2f", stw))
			} else {
				row = append(row, "")
			}
		}
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n") + "\n"
}
