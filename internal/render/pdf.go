package render

import (
	"fmt"
	"io"

	"github.com/gogpu/gg"
	"github.com/jung-kurt/gofpdf"

	"Drawerz/internal/effects"
	"Drawerz/internal/geom"
	"Drawerz/internal/state"
)

// PDF writes the visible layers at time t as vector paths on one page the
// size of the canvas. Shake is never applied.
func (r *Renderer) PDF(w io.Writer, layers []state.Layer, t float64) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("render: invalid size %dx%d", r.Width, r.Height)
	}
	size := gofpdf.SizeType{Wd: float64(r.Width), Ht: float64(r.Height)}
	p := gofpdf.NewCustom(&gofpdf.InitType{OrientationStr: "P", UnitStr: "pt", Size: size})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.SetCreator("drawerz", true)
	p.AddPage()

	setFill(p, r.Background)
	p.Rect(0, 0, size.Wd, size.Ht, "F")

	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")
	for _, l := range layers {
		if !l.Visible || len(l.Strokes) == 0 || l.Opacity <= 0 {
			continue
		}
		p.SetAlpha(l.Opacity, "Normal")
		for _, s := range l.Strokes {
			c := gg.Hex(s.Color)
			setFill(p, c)
			setDraw(p, c)
			if s.Kind == state.KindFill {
				for _, pt := range s.Points {
					p.Rect(pt.X, pt.Y, 1, 1, "F")
				}
				continue
			}
			f := effects.Deform(s.Points, s.Phase, s.Size, t, l.Animation, geom.Point{})
			pdfPath(p, f.Points, f.Width)
		}
	}
	p.SetAlpha(1, "Normal")

	if err := p.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func pdfPath(p *gofpdf.Fpdf, pts []geom.Point, width float64) {
	switch len(pts) {
	case 0:
		return
	case 1:
		p.Circle(pts[0].X, pts[0].Y, width/2, "F")
		return
	}
	p.SetLineWidth(width)
	p.MoveTo(pts[0].X, pts[0].Y)
	for i := 1; i < len(pts)-1; i++ {
		mid := geom.Lerp(pts[i], pts[i+1], 0.5)
		p.CurveTo(pts[i].X, pts[i].Y, mid.X, mid.Y)
	}
	last := pts[len(pts)-1]
	p.LineTo(last.X, last.Y)
	p.DrawPath("D")
}

func setFill(p *gofpdf.Fpdf, c gg.RGBA) {
	p.SetFillColor(channel(c.R), channel(c.G), channel(c.B))
}

func setDraw(p *gofpdf.Fpdf, c gg.RGBA) {
	p.SetDrawColor(channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	return int(v*255 + 0.5)
}
