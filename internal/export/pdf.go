package export

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/jung-kurt/gofpdf"
)

// PDFSink writes a flipbook: one page per frame, each page exactly the size
// of the frame at 72 dpi. High quality embeds lossless PNG pages, the other
// tiers JPEG.
type PDFSink struct {
	out     output
	opts    Options
	pdf     *gofpdf.Fpdf
	size    gofpdf.SizeType
	written int
}

// NewPDFSink writes to path once the export finishes.
func NewPDFSink(path string) *PDFSink {
	return &PDFSink{out: output{path: path}}
}

func (s *PDFSink) Begin(opts Options) error {
	s.opts = opts
	s.size = gofpdf.SizeType{Wd: float64(opts.Width), Ht: float64(opts.Height)}
	// Portrait keeps Wd and Ht as given; landscape would swap them.
	s.pdf = gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           s.size,
	})
	s.pdf.SetMargins(0, 0, 0)
	s.pdf.SetAutoPageBreak(false, 0)
	s.pdf.SetTitle("Drawerz animation", true)
	s.pdf.SetCreator("drawerz", true)
	return s.out.create()
}

func (s *PDFSink) WriteFrame(img image.Image) error {
	var buf bytes.Buffer
	imgType := "JPG"
	switch s.opts.Quality {
	case QualityHigh:
		imgType = "PNG"
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("pdf: encode frame: %w", err)
		}
	case QualityLow:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}); err != nil {
			return fmt.Errorf("pdf: encode frame: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("pdf: encode frame: %w", err)
		}
	}

	name := fmt.Sprintf("frame%05d", s.written)
	opts := gofpdf.ImageOptions{ImageType: imgType}
	s.pdf.RegisterImageOptionsReader(name, opts, &buf)
	s.pdf.AddPageFormat("P", s.size)
	s.pdf.ImageOptions(name, 0, 0, s.size.Wd, s.size.Ht, false, opts, 0, "")
	if err := s.pdf.Error(); err != nil {
		return fmt.Errorf("pdf: frame %d: %w", s.written, err)
	}
	s.written++
	return nil
}

func (s *PDFSink) Finish() error {
	if s.written == 0 {
		return fmt.Errorf("pdf: no frames")
	}
	w := bufio.NewWriter(s.out.tmp)
	if err := s.pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("pdf: write: %w", err)
	}
	s.pdf = nil
	return s.out.commit()
}

func (s *PDFSink) Abort() error {
	s.pdf = nil
	return s.out.discard()
}
