package state

import (
	"fmt"

	"github.com/google/uuid"

	"Drawerz/internal/effects"
	"Drawerz/internal/geom"
)

// Kind is how a stroke is painted.
type Kind string

const (
	// KindPath strokes are drawn as a line through their points.
	KindPath Kind = "path"
	// KindFill strokes paint each point as a single pixel.
	KindFill Kind = "fill"
)

// Stroke is one committed freehand path. Its points never change after it
// is committed; animation only displaces them at draw time.
type Stroke struct {
	ID     string
	Points []geom.Point
	Phase  float64
	Color  string
	Size   float64
	Kind   Kind
}

// Clone returns a copy that shares no storage with s.
func (s Stroke) Clone() Stroke {
	s.Points = geom.Clone(s.Points)
	return s
}

// Layer is an ordered group of strokes with its own animation settings.
// Later layers paint on top of earlier ones.
type Layer struct {
	ID        string
	Name      string
	Strokes   []Stroke
	Animation effects.Params
	Visible   bool
	Opacity   float64
}

// NewLayer returns an empty, visible, opaque layer with effects off.
func NewLayer(name string) Layer {
	return Layer{
		ID:        uuid.NewString(),
		Name:      name,
		Animation: effects.DefaultParams(),
		Visible:   true,
		Opacity:   1,
	}
}

// Clone returns a deep copy of l.
func (l Layer) Clone() Layer {
	if l.Strokes != nil {
		strokes := make([]Stroke, len(l.Strokes))
		for i, s := range l.Strokes {
			strokes[i] = s.Clone()
		}
		l.Strokes = strokes
	}
	return l
}

func cloneLayers(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = l.Clone()
	}
	return out
}

func defaultLayerName(i int) string {
	return fmt.Sprintf("Layer %d", i+1)
}
