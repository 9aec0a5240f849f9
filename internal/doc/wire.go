package doc

import (
	"encoding/json"

	"Drawerz/internal/geom"
)

// file is the on-disk shape of a .drz document. Exactly one of Settings and
// Layers is written. Strokes is always present; in the layered form it is
// every stroke in paint order so older readers still see the drawing.
type file struct {
	Version       string       `json:"version"`
	Canvas        *canvas      `json:"canvas"`
	Settings      *settings    `json:"settings,omitempty"`
	Layers        []wireLayer  `json:"layers,omitempty"`
	ActiveLayerID string       `json:"activeLayerId,omitempty"`
	Strokes       []wireStroke `json:"strokes"`
}

type canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// settings are the single-layer effect sliders. jiggle-speed is the raw
// slider position, see effects.SpeedFromSlider.
type settings struct {
	JiggleIntensity    float64 `json:"jiggle-intensity"`
	JiggleSpeed        float64 `json:"jiggle-speed"`
	ThicknessIntensity float64 `json:"thickness-intensity"`
	FloatIntensity     float64 `json:"float-intensity"`
	SketchyIntensity   float64 `json:"sketchy-intensity"`
}

type wireLayer struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Strokes   []wireStroke    `json:"strokes"`
	Animation json.RawMessage `json:"animationSettings,omitempty"`
	Visible   *bool           `json:"isVisible,omitempty"`
	Opacity   *float64        `json:"opacity,omitempty"`
}

type wireStroke struct {
	ID           string       `json:"id,omitempty"`
	Points       []geom.Point `json:"points"`
	Phase        *float64     `json:"phase,omitempty"`
	Color        string       `json:"color"`
	Size         *float64     `json:"size,omitempty"`
	OriginalSize *float64     `json:"originalSize,omitempty"`
	BirthTime    *float64     `json:"birthTime,omitempty"`
	Type         string       `json:"type,omitempty"`
}
