package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// DefaultDir is where clips are written when no directory is configured.
const DefaultDir = "exports"

var ErrBusy = errors.New("an export is already running")

// NewSink picks the sink for format and a date-stamped file name in dir,
// such as drawerz_animation_2024-05-01.gif. An existing file is never
// overwritten; a numeric suffix is added instead.
func NewSink(format Format, dir string, now time.Time) (Sink, string, error) {
	base := AnimationPrefix + now.Format("2006-01-02")
	path := uniquePath(dir, base, format.Ext())
	switch format {
	case FormatGIF:
		return NewGIFSink(path), path, nil
	case FormatPDF:
		return NewPDFSink(path), path, nil
	case FormatMP4, FormatWebM:
		return NewFFmpegSink(path, format), path, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func uniquePath(dir, base, ext string) string {
	path := filepath.Join(dir, base+ext)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(dir, base+"-"+strconv.Itoa(i)+ext)
	}
}

// Config tunes an Exporter.
type Config struct {
	// Dir receives finished clips (default "exports").
	Dir string
	// FFmpeg overrides the encoder binary for mp4 and webm.
	FFmpeg string
	// Now stamps file names (default time.Now).
	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Dir == "" {
		c.Dir = DefaultDir
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Exporter runs one export at a time and can cancel it from another
// goroutine.
type Exporter struct {
	cfg    Config
	log    *slog.Logger
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewExporter returns an idle exporter.
func NewExporter(cfg Config) *Exporter {
	cfg.defaults()
	return &Exporter{cfg: cfg, log: cfg.Logger.With("component", "export")}
}

// Export renders opts to a new file and returns its path. Frames come from
// render at the canvas size and are scaled when opts asks for another
// output size. Zero output dimensions mean the canvas size.
func (e *Exporter) Export(ctx context.Context, render RenderFunc, canvasW, canvasH int, opts Options, progress Progress) (string, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = canvasW, canvasH
	}

	sink, path, err := NewSink(opts.Format, e.cfg.Dir, e.cfg.Now())
	if err != nil {
		return "", err
	}
	if ff, ok := sink.(*FFmpegSink); ok {
		ff.Bin = e.cfg.FFmpeg
	}
	if opts.Width != canvasW || opts.Height != canvasH {
		sink = Scaled(sink, opts.Width, opts.Height)
	}

	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return "", ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
		cancel()
	}()

	started := time.Now()
	if err := Run(ctx, render, sink, opts, progress); err != nil {
		e.log.Warn("export failed", "format", opts.Format, "err", err)
		return "", err
	}
	e.log.Info("export saved", "path", path, "took", time.Since(started).Round(time.Millisecond))
	return path, nil
}

// Cancel stops the running export. It reports whether one was running.
func (e *Exporter) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

// Running reports whether an export is in progress.
func (e *Exporter) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}
