package capture

import (
	"math"

	"Drawerz/internal/geom"
)

const (
	// SimplifyAngle is the turning angle (radians) above which an interior
	// point is kept.
	SimplifyAngle = 0.1
	// SimplifyDistance is the segment length above which an interior point
	// is kept.
	SimplifyDistance = 1.0
)

// Simplify drops interior points that neither turn the path nor sit next to
// a segment long enough to matter. The first and last points always survive.
func Simplify(pts []geom.Point) []geom.Point {
	if len(pts) <= 2 {
		return geom.Clone(pts)
	}

	out := make([]geom.Point, 0, len(pts))
	out = append(out, pts[0])
	for i := 1; i < len(pts)-1; i++ {
		prev, curr, next := pts[i-1], pts[i], pts[i+1]
		angle := math.Abs(geom.Angle(prev, curr, next))
		d1 := geom.Distance(prev, curr)
		d2 := geom.Distance(curr, next)
		if angle > SimplifyAngle || d1 > SimplifyDistance || d2 > SimplifyDistance {
			out = append(out, curr)
		}
	}
	return append(out, pts[len(pts)-1])
}
