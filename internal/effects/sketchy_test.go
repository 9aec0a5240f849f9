package effects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Drawerz/internal/geom"
)

func TestSketchVisitsEveryHoldPerCycle(t *testing.T) {
	s := NewSketch(123.4, 20)
	period := 1 / s.JumpSpeed

	seen := map[int]bool{}
	for k := 0; k < SketchHolds; k++ {
		st := (float64(k) + 0.5) * period / SketchHolds
		require.Equal(t, k, s.Hold(st))
		seen[s.Hold(st)] = true
		// One full cycle later the same hold comes back.
		assert.Equal(t, k, s.Hold(st+period))
		assert.Equal(t, k, s.Hold(st+7*period))
	}
	assert.Len(t, seen, SketchHolds)
	assert.Equal(t, geom.Point{}, s.Offsets[SketchHolds-1])
}

func TestSketchNeverInterpolates(t *testing.T) {
	s := NewSketch(987.6, 35)
	period := 1 / s.JumpSpeed
	const samples = 500
	for n := 0; n < samples; n++ {
		st := 10 + period*float64(n)/samples
		off := s.Offset(st)
		found := false
		for _, c := range s.Offsets {
			if c == off {
				found = true
				break
			}
		}
		require.True(t, found, "offset %v at st=%v is not a held position", off, st)
	}
}

func TestSketchRoughnessCapped(t *testing.T) {
	s := NewSketch(5, 500)
	for i := 0; i < 100; i++ {
		r := s.Roughness(i)
		assert.LessOrEqual(t, math.Abs(r.X), 2*sketchMaxRough+1e-12)
		assert.LessOrEqual(t, math.Abs(r.Y), 2*sketchMaxRough+1e-12)
	}
}

func TestSketchZeroIntensity(t *testing.T) {
	s := NewSketch(42, 0)
	for _, o := range s.Offsets {
		assert.Equal(t, geom.Point{}, o)
	}
	assert.Equal(t, geom.Point{}, s.Roughness(3))
}

func TestSketchyDeformMatchesHold(t *testing.T) {
	pts := []geom.Point{geom.Pt(0, 0), geom.Pt(10, 0)}
	p := Params{Sketchy: 20, Speed: 1}
	phase := 300.0
	s := NewSketch(phase, p.Sketchy)
	tm := 0.4
	st := StrokeTime(tm, p.Speed, phase)
	f := Deform(pts, phase, 3, tm, p, geom.Point{})
	for i, pt := range pts {
		want := pt.Add(s.Offset(st)).Add(s.Roughness(i))
		assert.InDelta(t, want.X, f.Points[i].X, 1e-12)
		assert.InDelta(t, want.Y, f.Points[i].Y, 1e-12)
	}
}
