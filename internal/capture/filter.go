// Package capture turns raw pointer samples into the point sets stored in
// committed strokes.
package capture

import (
	"math"

	"Drawerz/internal/geom"
)

const (
	// SmoothingFactor is how far a smoothed sample moves from the last
	// accepted point toward the raw sample.
	SmoothingFactor = 0.65
	// VelocityWeight is the share of the newest velocity in the blend.
	VelocityWeight = 0.7
	// MinDistance is the minimum travel for a smoothed sample to be kept.
	MinDistance = 2.0
)

// Filter smooths the samples of one stroke while it is being drawn.
// The zero value is ready to use.
type Filter struct {
	last     *geom.Point
	velocity float64
	points   []geom.Point
}

// Add feeds one raw sample. It reports whether a point was appended.
func (f *Filter) Add(p geom.Point) bool {
	if f.last == nil {
		first := p
		f.last = &first
		f.points = append(f.points, p)
		return true
	}

	dt := float64(p.Timestamp - f.last.Timestamp)
	v := geom.Distance(*f.last, p) / math.Max(1, dt)
	blended := VelocityWeight*v + (1-VelocityWeight)*f.velocity

	smoothed := geom.Lerp(*f.last, p, SmoothingFactor)
	if geom.Distance(*f.last, smoothed) <= MinDistance {
		return false
	}
	f.points = append(f.points, smoothed)
	f.last = &smoothed
	f.velocity = blended
	return true
}

// Velocity is the filtered pointer speed in units per millisecond. It is
// informational only; nothing in the filter is gated on it.
func (f *Filter) Velocity() float64 { return f.velocity }

// Active reports whether a stroke is in progress.
func (f *Filter) Active() bool { return f.last != nil }

// Points returns a copy of the points accepted so far.
func (f *Filter) Points() []geom.Point { return geom.Clone(f.points) }

// Finish ends the stroke, returning its points and resetting the filter.
func (f *Filter) Finish() []geom.Point {
	pts := f.points
	f.Reset()
	return pts
}

// Reset drops the in-progress stroke.
func (f *Filter) Reset() {
	f.last = nil
	f.velocity = 0
	f.points = nil
}
