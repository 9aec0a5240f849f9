package doc

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Drawerz/internal/effects"
	"Drawerz/internal/geom"
	"Drawerz/internal/state"
)

func threePointDoc() Document {
	l := state.NewLayer("Layer 1")
	l.Strokes = []state.Stroke{{
		ID:     "s1",
		Points: []geom.Point{geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 10)},
		Phase:  321.5,
		Color:  "#ff8800",
		Size:   5,
		Kind:   state.KindPath,
	}}
	return Document{Width: 800, Height: 600, Layers: []state.Layer{l}, ActiveID: l.ID}
}

func roundTrip(t *testing.T, d Document) (Document, []byte) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, d))
	raw := append([]byte(nil), buf.Bytes()...)
	got, err := Decode(&buf)
	require.NoError(t, err)
	return got, raw
}

func TestRoundTripThreePointStroke(t *testing.T) {
	got, raw := roundTrip(t, threePointDoc())

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, Version, generic["version"])
	assert.Contains(t, generic, "settings")
	assert.NotContains(t, generic, "layers")

	assert.Equal(t, 800, got.Width)
	assert.Equal(t, 600, got.Height)
	require.Len(t, got.Layers, 1)
	require.Len(t, got.Layers[0].Strokes, 1)
	s := got.Layers[0].Strokes[0]
	require.Len(t, s.Points, 3)
	assert.Equal(t, []geom.Point{geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 10)}, s.Points)
	assert.Equal(t, 5.0, s.Size)
	assert.Equal(t, "#ff8800", s.Color)
	assert.Equal(t, 321.5, s.Phase)
	assert.Equal(t, got.Layers[0].ID, got.ActiveID)
}

func TestRoundTripSettingsEffects(t *testing.T) {
	d := threePointDoc()
	d.Layers[0].Animation = effects.Params{Jiggle: 4, Float: 2, Thickness: 3, Sketchy: 12, Speed: 1.6}

	got, _ := roundTrip(t, d)
	p := got.Layers[0].Animation
	assert.InDelta(t, 4, p.Jiggle, 1e-9)
	assert.InDelta(t, 2, p.Float, 1e-9)
	assert.InDelta(t, 3, p.Thickness, 1e-9)
	assert.InDelta(t, 12, p.Sketchy, 1e-9)
	assert.InDelta(t, 1.6, p.Speed, 1e-9)
}

func TestRoundTripLayers(t *testing.T) {
	d := threePointDoc()
	d.Layers[0].Animation.Shake = 2
	top := state.NewLayer("Ink")
	top.Visible = false
	top.Opacity = 0.5
	top.Animation = effects.Params{Jiggle: 1, Speed: 2}
	top.Strokes = []state.Stroke{{ID: "dot", Points: []geom.Point{geom.Pt(5, 5)}, Phase: 7, Color: "#000000", Size: 8, Kind: state.KindFill}}
	d.Layers = append(d.Layers, top)
	d.ActiveID = top.ID

	got, raw := roundTrip(t, d)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.NotContains(t, generic, "settings")
	assert.Len(t, generic["strokes"], 2)

	require.Len(t, got.Layers, 2)
	assert.Equal(t, top.ID, got.ActiveID)
	assert.Equal(t, d.Layers[0].ID, got.Layers[0].ID)
	assert.Equal(t, 2.0, got.Layers[0].Animation.Shake)
	assert.Equal(t, "Ink", got.Layers[1].Name)
	assert.False(t, got.Layers[1].Visible)
	assert.Equal(t, 0.5, got.Layers[1].Opacity)
	assert.Equal(t, top.Animation, got.Layers[1].Animation)
	assert.Equal(t, top.Strokes, got.Layers[1].Strokes)
}

func TestDecodeDefaults(t *testing.T) {
	in := `{
		"version": "1.0",
		"canvas": {"width": 640, "height": 480},
		"settings": {"jiggle-intensity": 3},
		"strokes":[
			{"points": [{"x": 1, "y": 2}], "color": "#123456", "originalSize": 7},
			{"points": [], "color": "#123456", "size": 4},
			{"points": [{"x": 3, "y": 4}]}
		]
	}`
	d, err := Decode(strings.NewReader(in))
	require.NoError(t, err)

	p := d.Layers[0].Animation
	assert.Equal(t, 3.0, p.Jiggle)
	assert.Zero(t, p.Float)
	assert.Zero(t, p.Sketchy)
	assert.Zero(t, p.Speed)

	strokes := d.Layers[0].Strokes
	require.Len(t, strokes, 2)
	assert.Equal(t, 7.0, strokes[0].Size)
	assert.NotEmpty(t, strokes[0].ID)
	assert.GreaterOrEqual(t, strokes[0].Phase, 0.0)
	assert.Less(t, strokes[0].Phase, state.MaxPhase)
	assert.Equal(t, "#000000", strokes[1].Color)
	assert.Equal(t, 1.0, strokes[1].Size)
	assert.Equal(t, state.KindPath, strokes[1].Kind)
}

func TestDecodeLayeredDefaults(t *testing.T) {
	in := `{
		"version": "1.0",
		"canvas": {"width": 100, "height": 100},
		"layers":[
			{"strokes": [{"points": [{"x": 1, "y": 1}], "color": "#ffffff", "size": 2, "birthTime": 42}],
			 "animationSettings": {"wiggleIntensity": 5}}
		],
		"activeLayerId": "gone",
		"strokes":[]
	}`
	d, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, d.Layers, 1)

	l := d.Layers[0]
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "Loaded Layer", l.Name)
	assert.True(t, l.Visible)
	assert.Equal(t, 1.0, l.Opacity)
	assert.Equal(t, effects.Params{Jiggle: 5, Speed: 1}, l.Animation)
	assert.Equal(t, 42.0, l.Strokes[0].Phase)
	assert.Equal(t, "gone", d.ActiveID)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"version": "1.0",`,
		"no version":    `{"canvas": {"width": 1, "height": 1}, "settings": {}, "strokes": []}`,
		"no strokes":    `{"version": "1.0", "canvas": {"width": 1, "height": 1}, "settings": {}}`,
		"null strokes":  `{"version": "1.0", "canvas": {"width": 1, "height": 1}, "settings": {}, "strokes": null}`,
		"no canvas":     `{"version": "1.0", "settings": {}, "strokes": []}`,
		"zero width":    `{"version": "1.0", "canvas": {"width": 0, "height": 1}, "settings": {}, "strokes": []}`,
		"huge canvas":   `{"version": "1.0", "canvas": {"width": 1e7, "height": 1e7}, "settings": {}, "strokes": []}`,
		"tall canvas":   `{"version": "1.0", "canvas": {"width": 10, "height": 16385}, "settings": {}, "strokes": []}`,
		"partial pixel": `{"version": "1.0", "canvas": {"width": 10.5, "height": 10}, "settings": {}, "strokes": []}`,
		"no settings":   `{"version": "1.0", "canvas": {"width": 1, "height": 1}, "strokes": []}`,
		"bad animation": `{"version": "1.0", "canvas": {"width": 1, "height": 1}, "layers": [{"animationSettings": "fast"}], "strokes": []}`,
		"wrong type":    `{"version": 1, "canvas": {"width": 1, "height": 1}, "settings": {}, "strokes": []}`,
		"not an object": `[1, 2, 3]`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestEncodeRejectsEmptyCanvas(t *testing.T) {
	d := threePointDoc()
	d.Width = 0
	assert.ErrorIs(t, Encode(&bytes.Buffer{}, d), ErrInvalidFormat)
}

func TestCanvasLimit(t *testing.T) {
	d := threePointDoc()
	d.Width, d.Height = MaxCanvas, MaxCanvas
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, d))
	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, MaxCanvas, got.Width)

	d.Width = MaxCanvas + 1
	assert.ErrorIs(t, Encode(&bytes.Buffer{}, d), ErrInvalidFormat)
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, time.March, 7, 22, 15, 0, 0, time.UTC)
	assert.Equal(t, "drawerz-illustration-2024-03-07.drz", Filename(IllustrationPrefix, Extension, now))
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sketch"+Extension)

	require.NoError(t, SaveFile(path, threePointDoc()))
	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, len(d.Layers[0].Strokes))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveFileFailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sketch"+Extension)
	require.NoError(t, SaveFile(path, threePointDoc()))

	bad := threePointDoc()
	bad.Height = 0
	assert.Error(t, SaveFile(path, bad))

	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 600, d.Height)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.drz"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
