// Package export renders an animation at a fixed frame rate and hands the
// frames to a sink that encodes them into a file.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrEncoderUnavailable = errors.New("no encoder available for format")
	ErrInvalidOptions     = errors.New("invalid export options")
)

// AnimationPrefix starts the name of every exported clip.
const AnimationPrefix = "drawerz_animation_"

// Quality selects the bitrate tier and, for still-frame formats, the
// compression or dithering applied.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Bitrate is the target video bitrate in bits per second.
func (q Quality) Bitrate() int {
	switch q {
	case QualityLow:
		return 1_000_000
	case QualityHigh:
		return 2_500_000
	default:
		return 1_500_000
	}
}

// ParseQuality accepts low, medium or high. Empty means medium.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case "":
		return QualityMedium, nil
	case QualityLow, QualityMedium, QualityHigh:
		return q, nil
	}
	return "", fmt.Errorf("%w: quality %q", ErrInvalidOptions, s)
}

// Format is an output container.
type Format string

const (
	FormatGIF  Format = "gif"
	FormatPDF  Format = "pdf"
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
)

// Ext is the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ParseFormat maps a name or extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatGIF, FormatPDF, FormatMP4, FormatWebM:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Options describe one export.
type Options struct {
	FPS      int
	Duration time.Duration
	Quality  Quality
	Format   Format
	// Width and Height are the output size in pixels.
	Width  int
	Height int
}

// Frames is the number of frames the export will produce.
func (o Options) Frames() int {
	return int(math.Round(o.Duration.Seconds() * float64(o.FPS)))
}

func (o Options) validate() error {
	switch {
	case o.FPS <= 0:
		return fmt.Errorf("%w: fps %d", ErrInvalidOptions, o.FPS)
	case o.Frames() <= 0:
		return fmt.Errorf("%w: duration %s", ErrInvalidOptions, o.Duration)
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidOptions, o.Width, o.Height)
	}
	return nil
}

// Sink consumes rendered frames. Begin is called once before the first
// frame. Exactly one of Finish or Abort ends the sink; Abort removes any
// partial output.
type Sink interface {
	Begin(opts Options) error
	WriteFrame(img image.Image) error
	Finish() error
	Abort() error
}

// RenderFunc draws the frame at t seconds of animation time.
type RenderFunc func(t float64) (image.Image, error)

// Progress is told how many of total frames are done.
type Progress func(done, total int)

// Run renders opts.Frames() frames at t = i/fps and feeds them to sink.
// Cancelling ctx or any failure aborts the sink so no partial file is left.
func Run(ctx context.Context, render RenderFunc, sink Sink, opts Options, progress Progress) (err error) {
	if opts.Quality == "" {
		opts.Quality = QualityMedium
	}
	if err := opts.validate(); err != nil {
		return err
	}

	if err := sink.Begin(opts); err != nil {
		abort(sink)
		return fmt.Errorf("export begin: %w", err)
	}
	defer func() {
		if err != nil {
			abort(sink)
		}
	}()

	total := opts.Frames()
	logger().Info("export started", "format", opts.Format, "frames", total, "fps", opts.FPS, "quality", opts.Quality)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export cancelled at frame %d: %w", i, err)
		}
		img, err := render(float64(i) / float64(opts.FPS))
		if err != nil {
			return fmt.Errorf("render frame %d: %w", i, err)
		}
		if err := sink.WriteFrame(img); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	if err := sink.Finish(); err != nil {
		return fmt.Errorf("export finish: %w", err)
	}
	logger().Info("export finished", "format", opts.Format, "frames", total)
	return nil
}

func abort(sink Sink) {
	if err := sink.Abort(); err != nil {
		logger().Warn("export abort failed", "err", err)
	}
}
