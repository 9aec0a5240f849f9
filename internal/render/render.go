// Package render rasterizes layers of strokes at a point in animation time
// using the gg software renderer.
package render

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/gogpu/gg"

	"Drawerz/internal/effects"
	"Drawerz/internal/geom"
	"Drawerz/internal/state"
)

// DefaultBackground is the canvas colour behind every layer.
const DefaultBackground = "#ffffff"

// eraserColor marks the path of an eraser drag.
const eraserColor = "#ff0000"

// Overlay is interactive feedback drawn above the layers: the stroke being
// captured and the brush outline under the pointer.
type Overlay struct {
	Points     []geom.Point
	Color      string
	Size       float64
	Erasing    bool
	Cursor     geom.Point
	ShowCursor bool
}

// Options control a single frame.
type Options struct {
	// Export frames are reproducible: shake is skipped and no overlay is
	// drawn.
	Export bool
	// Rand drives shake. Nil disables shake.
	Rand *rand.Rand
	// Overlay is drawn on interactive frames only.
	Overlay *Overlay
}

// Renderer draws frames of a fixed size.
type Renderer struct {
	Width      int
	Height     int
	Background gg.RGBA
}

// New returns a renderer with a white background.
func New(width, height int) *Renderer {
	return &Renderer{Width: width, Height: height, Background: gg.Hex(DefaultBackground)}
}

// Frame paints the visible layers in order at time t (seconds).
func (r *Renderer) Frame(layers []state.Layer, t float64, opts Options) (image.Image, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("render: invalid size %dx%d", r.Width, r.Height)
	}
	dc := gg.NewContext(r.Width, r.Height)
	defer dc.Close()

	dc.ClearWithColor(r.Background)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, l := range layers {
		if !l.Visible || len(l.Strokes) == 0 || l.Opacity <= 0 {
			continue
		}
		if err := r.drawLayer(dc, l, t, opts); err != nil {
			return nil, fmt.Errorf("render layer %s: %w", l.ID, err)
		}
	}

	if !opts.Export && opts.Overlay != nil {
		if err := drawOverlay(dc, opts.Overlay); err != nil {
			return nil, fmt.Errorf("render overlay: %w", err)
		}
	}
	return dc.Image(), nil
}

func (r *Renderer) drawLayer(dc *gg.Context, l state.Layer, t float64, opts Options) error {
	p := l.Animation
	shakeOn := p.Shake > 0 && !opts.Export && opts.Rand != nil

	for _, s := range l.Strokes {
		c := gg.Hex(s.Color)
		dc.SetRGBA(c.R, c.G, c.B, c.A*l.Opacity)

		if s.Kind == state.KindFill {
			if err := drawPixels(dc, s.Points); err != nil {
				return err
			}
			continue
		}

		var shake geom.Point
		if shakeOn {
			shake = effects.Shake(opts.Rand, p.Shake, p.Speed)
		}
		f := effects.Deform(s.Points, s.Phase, s.Size, t, p, shake)
		if err := drawPath(dc, f.Points, f.Width); err != nil {
			return err
		}
	}
	return nil
}

// drawPath strokes pts as a smooth curve through the midpoints between
// samples. A single point is a dot of diameter width.
func drawPath(dc *gg.Context, pts []geom.Point, width float64) error {
	switch len(pts) {
	case 0:
		return nil
	case 1:
		dc.DrawCircle(pts[0].X, pts[0].Y, width/2)
		return dc.Fill()
	}

	dc.SetLineWidth(width)
	dc.MoveTo(pts[0].X, pts[0].Y)
	for i := 1; i < len(pts)-1; i++ {
		mid := geom.Lerp(pts[i], pts[i+1], 0.5)
		dc.QuadraticTo(pts[i].X, pts[i].Y, mid.X, mid.Y)
	}
	last := pts[len(pts)-1]
	dc.LineTo(last.X, last.Y)
	return dc.Stroke()
}

func drawPixels(dc *gg.Context, pts []geom.Point) error {
	for _, p := range pts {
		dc.DrawRectangle(p.X, p.Y, 1, 1)
	}
	return dc.Fill()
}

func drawOverlay(dc *gg.Context, o *Overlay) error {
	if len(o.Points) > 0 {
		hex := o.Color
		if o.Erasing {
			hex = eraserColor
		}
		c := gg.Hex(hex)
		dc.SetRGBA(c.R, c.G, c.B, c.A)
		if err := drawPath(dc, o.Points, o.Size); err != nil {
			return err
		}
	}
	if o.ShowCursor && o.Size > 0 {
		dc.SetRGBA(0, 0, 0, 0.5)
		dc.SetLineWidth(1)
		dc.DrawCircle(o.Cursor.X, o.Cursor.Y, o.Size/2)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}
