package capture

import (
	"errors"
	"fmt"
	"math"

	"Drawerz/internal/geom"
)

const (
	// Spacing is the target arc length between resampled points.
	Spacing = 5.0
	// MinSamples and MaxSamples bound the resampled point count.
	MinSamples = 30
	MaxSamples = 300
)

var errNonFinite = errors.New("non-finite coordinate")

// Vectorize resamples pts at even arc-length steps so per-point effects
// move uniformly however densely the input was captured. When deforming is
// false and force is false the input is returned as is (copied). Any
// failure is logged and yields a copy of the input.
func Vectorize(pts []geom.Point, deforming, force bool) []geom.Point {
	if !deforming && !force {
		return geom.Clone(pts)
	}
	if len(pts) < 2 {
		return geom.Clone(pts)
	}
	out, err := resample(pts)
	if err != nil {
		logger().Warn("vectorize failed, keeping original points", "points", len(pts), "error", err)
		return geom.Clone(pts)
	}
	return out
}

// SampleCount is the number of points a polyline of the given length is
// resampled to.
func SampleCount(length float64) int {
	n := int(math.Floor(length / Spacing))
	if n < MinSamples {
		return MinSamples
	}
	if n > MaxSamples {
		return MaxSamples
	}
	return n
}

func resample(pts []geom.Point) (out []geom.Point, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("resample: %v", r)
		}
	}()

	for _, p := range pts {
		if !p.IsFinite() {
			return nil, errNonFinite
		}
	}

	total := geom.PathLength(pts)
	n := SampleCount(total)
	step := total / float64(n-1)

	out = make([]geom.Point, 0, n)
	out = append(out, pts[0])

	var walked float64
	i := 1
	prev := pts[0]
	for k := 1; k < n-1; k++ {
		target := step * float64(k)
		for i < len(pts) && walked+geom.Distance(prev, pts[i]) < target {
			walked += geom.Distance(prev, pts[i])
			prev = pts[i]
			i++
		}
		if i >= len(pts) {
			break
		}
		seg := geom.Distance(prev, pts[i])
		if seg == 0 {
			continue
		}
		f := (target - walked) / seg
		q := geom.Lerp(prev, pts[i], f)
		q.Timestamp = 0
		q.Pressure = prev.Pressure + (pts[i].Pressure-prev.Pressure)*f
		if !q.IsFinite() {
			return nil, errNonFinite
		}
		out = append(out, q)
	}
	return append(out, pts[len(pts)-1]), nil
}
