package export

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

type scaledSink struct {
	Sink
	width, height int
	interp        xdraw.Interpolator
}

// Scaled resizes every frame to width x height before passing it on. The
// interpolator follows the export quality.
func Scaled(inner Sink, width, height int) Sink {
	return &scaledSink{Sink: inner, width: width, height: height}
}

func (s *scaledSink) Begin(opts Options) error {
	opts.Width, opts.Height = s.width, s.height
	switch opts.Quality {
	case QualityLow:
		s.interp = xdraw.ApproxBiLinear
	case QualityHigh:
		s.interp = xdraw.CatmullRom
	default:
		s.interp = xdraw.BiLinear
	}
	return s.Sink.Begin(opts)
}

func (s *scaledSink) WriteFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() == s.width && b.Dy() == s.height {
		return s.Sink.WriteFrame(img)
	}
	dst := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	s.interp.Scale(dst, dst.Rect, img, b, xdraw.Src, nil)
	return s.Sink.WriteFrame(dst)
}
