// Package effects is the deformation engine: pure functions that displace a
// stroke's stored points for a given animation time. The same inputs always
// give the same frame, except for shake, which is random and is
// never used for exported frames.
package effects

import (
	"math"
	"math/rand"

	"Drawerz/internal/geom"
)

// Params are the animation settings of one layer. Intensities of zero turn
// an effect off. Speed multiplies the global animation clock.
type Params struct {
	Jiggle    float64 `json:"wiggleIntensity" yaml:"jiggle"`
	Float     float64 `json:"floatIntensity" yaml:"float"`
	Thickness float64 `json:"breathingStroke" yaml:"thickness"`
	Sketchy   float64 `json:"sketchyIntensity" yaml:"sketchy"`
	Shake     float64 `json:"shakeIntensity" yaml:"shake"`
	Speed     float64 `json:"animationSpeed" yaml:"speed"`
}

// DefaultParams has every effect off and the clock at normal speed.
func DefaultParams() Params {
	return Params{Speed: 1}
}

// Deforming reports whether any effect that moves points or changes width
// is on. It decides whether captured strokes are resampled.
func (p Params) Deforming() bool {
	return p.Jiggle > 0 || p.Float > 0 || p.Thickness > 0 || p.Sketchy > 0
}

// Animated reports whether frames change over time.
func (p Params) Animated() bool {
	return p.Deforming() || p.Shake > 0
}

const (
	jiggleRate      = 5.0
	jiggleIndexStep = 0.6
	jiggleWobble    = 1.3

	floatGain = 2.0
)

// StrokeTime offsets the scaled global clock by a stroke's phase so strokes
// do not move in lockstep.
func StrokeTime(t, speed, phase float64) float64 {
	return t*speed + phase
}

// Jiggle orbits point i around its rest position.
func Jiggle(i int, st, intensity float64) geom.Point {
	if intensity <= 0 {
		return geom.Point{}
	}
	fi := float64(i)
	angle := st*jiggleRate + fi*jiggleIndexStep
	r := intensity * (0.5 + 0.5*math.Sin(angle*jiggleWobble+fi))
	return geom.Pt(math.Cos(angle)*r, math.Sin(angle)*r)
}

// Float is a slow drift that changes little between neighbouring points,
// so whole strokes wander.
func Float(i int, st, intensity float64) geom.Point {
	if intensity <= 0 {
		return geom.Point{}
	}
	fi := float64(i)
	return geom.Pt(
		math.Sin(st*2+fi*0.1)*intensity*floatGain,
		math.Cos(st*1.5+fi*0.08)*intensity*floatGain,
	)
}

// Breathe oscillates a line width. The result never drops below 1.
func Breathe(size, st, intensity float64) float64 {
	if intensity <= 0 {
		return size
	}
	return math.Max(1, size+intensity*math.Sin(st))
}

// Shake is a random whole-stroke jolt. It is zero when rng is nil.
func Shake(rng *rand.Rand, intensity, speed float64) geom.Point {
	if intensity <= 0 || rng == nil {
		return geom.Point{}
	}
	return geom.Pt(
		(rng.Float64()-0.5)*intensity*speed,
		(rng.Float64()-0.5)*intensity*speed,
	)
}

// Frame is one stroke as it should be drawn at a given time.
type Frame struct {
	Points []geom.Point
	Width  float64
}

// Deform computes the displaced points and line width of a stroke at global
// time t. shake is added to every point unchanged.
func Deform(pts []geom.Point, phase, size, t float64, p Params, shake geom.Point) Frame {
	st := StrokeTime(t, p.Speed, phase)
	var sk *Sketch
	if p.Sketchy > 0 {
		s := NewSketch(phase, p.Sketchy)
		sk = &s
	}

	out := make([]geom.Point, len(pts))
	for i, pt := range pts {
		out[i] = pt.Add(displacement(i, st, p, sk)).Add(shake)
	}
	return Frame{Points: out, Width: Breathe(size, st, p.Thickness)}
}

// Displace moves a single point. st is the stroke time from StrokeTime.
func Displace(pt geom.Point, i int, st, phase float64, p Params) geom.Point {
	var sk *Sketch
	if p.Sketchy > 0 {
		s := NewSketch(phase, p.Sketchy)
		sk = &s
	}
	return pt.Add(displacement(i, st, p, sk))
}

func displacement(i int, st float64, p Params, sk *Sketch) geom.Point {
	d := Jiggle(i, st, p.Jiggle).Add(Float(i, st, p.Float))
	if sk != nil {
		d = d.Add(sk.Offset(st)).Add(sk.Roughness(i))
	}
	return d
}
