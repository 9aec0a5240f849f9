// Package geom holds the small amount of planar geometry shared by the
// capture, effects and state packages.
package geom

import "math"

// Point is a canvas position. Timestamp (milliseconds) and Pressure are only
// present on captured input.
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp,omitempty"`
	Pressure  float64 `json:"pressure,omitempty"`
}

// Pt is shorthand for a bare position.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p translated by v. Timestamp and pressure are kept.
func (p Point) Add(v Point) Point {
	p.X += v.X
	p.Y += v.Y
	return p
}

// Scale multiplies both coordinates by f.
func (p Point) Scale(f float64) Point {
	p.X *= f
	p.Y *= f
	return p
}

// IsFinite reports whether neither coordinate is NaN or infinite.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Distance is the euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PathLength sums the segment lengths of a polyline.
func PathLength(pts []Point) float64 {
	var l float64
	for i := 1; i < len(pts); i++ {
		l += Distance(pts[i-1], pts[i])
	}
	return l
}

// Angle is the signed turning angle at p2 between the segments p1->p2 and
// p2->p3, in (-pi, pi].
func Angle(p1, p2, p3 Point) float64 {
	dx1, dy1 := p2.X-p1.X, p2.Y-p1.Y
	dx2, dy2 := p3.X-p2.X, p3.Y-p2.Y
	return math.Atan2(dx1*dy2-dy1*dx2, dx1*dx2+dy1*dy2)
}

// Lerp moves from a toward b by fraction f. The result carries b's
// timestamp and pressure.
func Lerp(a, b Point, f float64) Point {
	return Point{
		X:         a.X + (b.X-a.X)*f,
		Y:         a.Y + (b.Y-a.Y)*f,
		Timestamp: b.Timestamp,
		Pressure:  b.Pressure,
	}
}

// Clone returns a copy of pts that shares no storage with it.
func Clone(pts []Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}
