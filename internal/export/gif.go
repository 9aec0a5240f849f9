package export

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"math"

	xdraw "golang.org/x/image/draw"
)

// GIFSink encodes frames as a looping animated GIF. High quality dithers
// against the Plan 9 palette, the others map straight onto it and low
// uses the smaller web-safe palette.
type GIFSink struct {
	out     output
	opts    Options
	pal     color.Palette
	dither  bool
	delay   int
	anim    gif.GIF
	written int
}

// NewGIFSink writes to path once the export finishes.
func NewGIFSink(path string) *GIFSink {
	return &GIFSink{out: output{path: path}}
}

func (s *GIFSink) Begin(opts Options) error {
	s.opts = opts
	s.pal = palette.Plan9
	switch opts.Quality {
	case QualityLow:
		s.pal = palette.WebSafe
	case QualityHigh:
		s.dither = true
	}
	// GIF delays are in hundredths of a second.
	s.delay = max(1, int(math.Round(100/float64(opts.FPS))))
	s.anim = gif.GIF{
		Config: image.Config{ColorModel: s.pal, Width: opts.Width, Height: opts.Height},
	}
	return s.out.create()
}

func (s *GIFSink) WriteFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != s.opts.Width || b.Dy() != s.opts.Height {
		return fmt.Errorf("gif: frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), s.opts.Width, s.opts.Height)
	}
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), s.pal)
	if s.dither {
		xdraw.FloydSteinberg.Draw(p, p.Rect, img, b.Min)
	} else {
		xdraw.Draw(p, p.Rect, img, b.Min, xdraw.Src)
	}
	s.anim.Image = append(s.anim.Image, p)
	s.anim.Delay = append(s.anim.Delay, s.delay)
	s.written++
	return nil
}

func (s *GIFSink) Finish() error {
	if s.written == 0 {
		return fmt.Errorf("gif: no frames")
	}
	w := bufio.NewWriter(s.out.tmp)
	if err := gif.EncodeAll(w, &s.anim); err != nil {
		return fmt.Errorf("gif: encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("gif: write: %w", err)
	}
	s.anim = gif.GIF{}
	return s.out.commit()
}

func (s *GIFSink) Abort() error {
	s.anim = gif.GIF{}
	return s.out.discard()
}
