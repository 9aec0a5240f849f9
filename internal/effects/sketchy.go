package effects

import (
	"math"

	"Drawerz/internal/geom"
)

// SketchHolds is the number of held positions a sketchy stroke jumps
// between. The last one is the rest position.
const SketchHolds = 4

const (
	sketchBaseJump   = 3.0
	sketchMaxRough   = 2.0
	sketchSeedStride = 1000.0
	sketchPointSeed  = 100.0
)

// Sketch is the stop-motion state of one stroke. It depends only on the
// stroke's phase and the intensity, so a stroke holds the same positions
// for its whole life.
type Sketch struct {
	Offsets   [SketchHolds]geom.Point
	JumpSpeed float64

	phase     float64
	roughness float64
}

// NewSketch seeds the held positions for a stroke.
func NewSketch(phase, intensity float64) Sketch {
	scaled := 0.0
	if intensity > 0 {
		scaled = math.Pow(intensity/20, 0.7) * 15
	}

	var s Sketch
	for k := 0; k < SketchHolds-1; k++ {
		seed := phase + float64(k)*sketchSeedStride
		angle := seed*0.1 + float64(k)*2*math.Pi/3
		radius := (math.Sin(seed*0.3) + 1) / 2 * scaled
		s.Offsets[k] = geom.Pt(math.Cos(angle)*radius, math.Sin(angle)*radius)
	}
	s.JumpSpeed = sketchBaseJump * (math.Sin(phase*0.1)*0.5 + 1.5)
	s.phase = phase
	s.roughness = math.Min(scaled*0.1, sketchMaxRough)
	return s
}

// Hold picks which held position is showing at stroke time st.
func (s Sketch) Hold(st float64) int {
	c := math.Mod(st*s.JumpSpeed, 1)
	if c < 0 {
		c++
	}
	idx := int(math.Floor(c * SketchHolds))
	if idx >= SketchHolds {
		idx = SketchHolds - 1
	}
	return idx
}

// Offset is the whole-stroke displacement at stroke time st.
func (s Sketch) Offset(st float64) geom.Point {
	return s.Offsets[s.Hold(st)]
}

// Roughness is the fixed per-point texture layered on top of the hold.
func (s Sketch) Roughness(i int) geom.Point {
	if s.roughness == 0 {
		return geom.Point{}
	}
	ps := s.phase + float64(i)*sketchPointSeed
	return geom.Pt(
		(math.Sin(ps*0.3)+math.Cos(ps*0.7))*s.roughness,
		(math.Cos(ps*0.3)+math.Sin(ps*0.7))*s.roughness,
	)
}
