// Package doc reads and writes .drz drawing files.
//
// Two layouts exist. The single-layer layout stores one set of effect
// sliders under "settings"; the layered layout stores every layer with its
// own animation settings under "layers". Both carry the full stroke list
// under "strokes". Decode accepts either.
package doc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"Drawerz/internal/effects"
	"Drawerz/internal/geom"
	"Drawerz/internal/state"
)

const (
	Version   = "1.0"
	Extension = ".drz"
	MIMEType  = "application/drawerz"

	// IllustrationPrefix starts the default name of a saved drawing.
	IllustrationPrefix = "drawerz-illustration-"
	// DateLayout is the date stamp used in generated file names.
	DateLayout = "2006-01-02"

	// MaxCanvas bounds each side of a canvas, in pixels.
	MaxCanvas = 16384

	loadedLayerName = "Loaded Layer"
	defaultColor    = "#000000"
	minSize         = 1.0
)

// ErrInvalidFormat is returned for anything that is not a usable .drz file.
var ErrInvalidFormat = errors.New("invalid file format")

// Document is a decoded drawing.
type Document struct {
	Version  string
	Width    int
	Height   int
	Layers   []state.Layer
	ActiveID string
}

// Filename builds a date-stamped file name such as
// drawerz-illustration-2024-05-01.drz.
func Filename(prefix, ext string, now time.Time) string {
	return prefix + now.Format(DateLayout) + ext
}

// Encode writes d as JSON. A document made of one plain layer (visible,
// fully opaque, no shake) uses the single-layer layout.
func Encode(w io.Writer, d Document) error {
	if d.Width <= 0 || d.Height <= 0 || d.Width > MaxCanvas || d.Height > MaxCanvas {
		return fmt.Errorf("%w: canvas size %dx%d", ErrInvalidFormat, d.Width, d.Height)
	}
	f := file{
		Version: d.Version,
		Canvas:  &canvas{Width: float64(d.Width), Height: float64(d.Height)},
		Strokes: []wireStroke{},
	}
	if f.Version == "" {
		f.Version = Version
	}

	if single(d.Layers) {
		p := d.Layers[0].Animation
		f.Settings = &settings{
			JiggleIntensity:    p.Jiggle,
			JiggleSpeed:        effects.SliderFromSpeed(p.Speed),
			ThicknessIntensity: p.Thickness,
			FloatIntensity:     p.Float,
			SketchyIntensity:   p.Sketchy,
		}
		f.Strokes = encodeStrokes(d.Layers[0].Strokes)
	} else {
		f.Layers = make([]wireLayer, 0, len(d.Layers))
		for _, l := range d.Layers {
			wl, err := encodeLayer(l)
			if err != nil {
				return err
			}
			f.Layers = append(f.Layers, wl)
			f.Strokes = append(f.Strokes, wl.Strokes...)
		}
		f.ActiveLayerID = d.ActiveID
	}

	if err := json.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

func single(layers []state.Layer) bool {
	if len(layers) != 1 {
		return false
	}
	l := layers[0]
	return l.Visible && l.Opacity == 1 && l.Animation.Shake == 0
}

func encodeLayer(l state.Layer) (wireLayer, error) {
	anim, err := json.Marshal(l.Animation)
	if err != nil {
		return wireLayer{}, fmt.Errorf("encode layer %s: %w", l.ID, err)
	}
	visible, opacity := l.Visible, l.Opacity
	return wireLayer{
		ID:        l.ID,
		Name:      l.Name,
		Strokes:   encodeStrokes(l.Strokes),
		Animation: anim,
		Visible:   &visible,
		Opacity:   &opacity,
	}, nil
}

func encodeStrokes(strokes []state.Stroke) []wireStroke {
	out := make([]wireStroke, 0, len(strokes))
	for _, s := range strokes {
		phase, size := s.Phase, s.Size
		kind := s.Kind
		if kind == "" {
			kind = state.KindPath
		}
		out = append(out, wireStroke{
			ID:     s.ID,
			Points: geom.Clone(s.Points),
			Phase:  &phase,
			Color:  s.Color,
			Size:   &size,
			Type:   string(kind),
		})
	}
	return out
}

// Decode reads a document. Missing effect settings are zero, except the
// layered speed which is 1. Strokes without points are dropped and a
// missing phase is regenerated.
func Decode(r io.Reader) (Document, error) {
	var f file
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if err := validate(&f); err != nil {
		return Document{}, err
	}

	d := Document{
		Version: f.Version,
		Width:   int(math.Round(f.Canvas.Width)),
		Height:  int(math.Round(f.Canvas.Height)),
	}

	if f.Layers != nil {
		d.Layers = make([]state.Layer, 0, len(f.Layers))
		for i, wl := range f.Layers {
			l, err := decodeLayer(wl)
			if err != nil {
				return Document{}, fmt.Errorf("%w: layer %d: %w", ErrInvalidFormat, i, err)
			}
			d.Layers = append(d.Layers, l)
		}
		d.ActiveID = f.ActiveLayerID
		return d, nil
	}

	l := state.NewLayer("Layer 1")
	l.Animation = effects.Params{
		Jiggle:    f.Settings.JiggleIntensity,
		Float:     f.Settings.FloatIntensity,
		Thickness: f.Settings.ThicknessIntensity,
		Sketchy:   f.Settings.SketchyIntensity,
		Speed:     effects.SpeedFromSlider(f.Settings.JiggleSpeed),
	}
	l.Strokes = decodeStrokes(f.Strokes)
	d.Layers = []state.Layer{l}
	d.ActiveID = l.ID
	return d, nil
}

func validate(f *file) error {
	switch {
	case f.Version == "":
		return fmt.Errorf("%w: missing version", ErrInvalidFormat)
	case f.Strokes == nil:
		return fmt.Errorf("%w: missing strokes", ErrInvalidFormat)
	case f.Canvas == nil || f.Canvas.Width <= 0 || f.Canvas.Height <= 0:
		return fmt.Errorf("%w: missing canvas size", ErrInvalidFormat)
	case !canvasSide(f.Canvas.Width) || !canvasSide(f.Canvas.Height):
		return fmt.Errorf("%w: canvas size %gx%g", ErrInvalidFormat, f.Canvas.Width, f.Canvas.Height)
	case f.Settings == nil && f.Layers == nil:
		return fmt.Errorf("%w: missing settings or layers", ErrInvalidFormat)
	}
	return nil
}

// canvasSide reports whether v is a whole number of pixels within MaxCanvas.
func canvasSide(v float64) bool {
	return v >= 1 && v <= MaxCanvas && math.Trunc(v) == v
}

func decodeLayer(wl wireLayer) (state.Layer, error) {
	l := state.Layer{
		ID:        wl.ID,
		Name:      wl.Name,
		Animation: effects.DefaultParams(),
		Visible:   true,
		Opacity:   1,
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Name == "" {
		l.Name = loadedLayerName
	}
	if len(wl.Animation) > 0 {
		if err := json.Unmarshal(wl.Animation, &l.Animation); err != nil {
			return state.Layer{}, fmt.Errorf("animation settings: %w", err)
		}
	}
	if wl.Visible != nil {
		l.Visible = *wl.Visible
	}
	if wl.Opacity != nil {
		l.Opacity = math.Min(1, math.Max(0, *wl.Opacity))
	}
	l.Strokes = decodeStrokes(wl.Strokes)
	return l, nil
}

func decodeStrokes(in []wireStroke) []state.Stroke {
	out := make([]state.Stroke, 0, len(in))
	for _, ws := range in {
		if len(ws.Points) == 0 {
			continue
		}
		s := state.Stroke{
			ID:     ws.ID,
			Points: geom.Clone(ws.Points),
			Color:  ws.Color,
			Kind:   state.KindPath,
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Color == "" {
			s.Color = defaultColor
		}
		if ws.Type == string(state.KindFill) {
			s.Kind = state.KindFill
		}

		switch {
		case ws.Phase != nil:
			s.Phase = *ws.Phase
		case ws.BirthTime != nil:
			s.Phase = *ws.BirthTime
		default:
			s.Phase = rand.Float64() * state.MaxPhase
		}

		switch {
		case ws.Size != nil && *ws.Size > 0:
			s.Size = *ws.Size
		case ws.OriginalSize != nil && *ws.OriginalSize > 0:
			s.Size = *ws.OriginalSize
		default:
			s.Size = minSize
		}
		out = append(out, s)
	}
	return out
}

// SaveFile writes d to path. The file is replaced atomically, so a failed
// save leaves any previous file intact.
func SaveFile(path string, d Document) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".drawerz-*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, d); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// LoadFile reads the document stored at path.
func LoadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	d, err := Decode(f)
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	return d, nil
}
