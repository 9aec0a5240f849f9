// Package session is the interactive drawing controller. It turns pointer
// events into strokes, owns the current tool settings and keeps the
// animation loop armed only while something on screen can move.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math/rand"
	"regexp"
	"slices"
	"sync"
	"time"

	"Drawerz/internal/anim"
	"Drawerz/internal/capture"
	"Drawerz/internal/doc"
	"Drawerz/internal/effects"
	"Drawerz/internal/export"
	"Drawerz/internal/geom"
	"Drawerz/internal/render"
	"Drawerz/internal/state"
)

// Tool is what a pointer drag does.
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

const (
	DefaultColor = "#000000"
	DefaultSize  = 5.0
	MinSize      = 1.0
	MaxSize      = 100.0

	DefaultWidth  = 800
	DefaultHeight = 600
)

var (
	ErrInvalidColor    = errors.New("color must be #RRGGBB")
	ErrInvalidSize     = fmt.Errorf("size must be within [%g, %g]", MinSize, MaxSize)
	ErrInvalidTool     = errors.New("unknown tool")
	ErrNothingToExport = errors.New("no visible content to export")
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Config sets up a Session.
type Config struct {
	Width  int
	Height int
	// HistoryCap bounds undo (default state.DefaultHistoryCap).
	HistoryCap int
	// RefreshHz is the interactive frame rate.
	RefreshHz int
	// ExportDir and FFmpeg configure clip export.
	ExportDir string
	FFmpeg    string
	// Now stamps captured samples and export file names.
	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is one drawing surface. All methods are safe for concurrent use.
type Session struct {
	cfg      Config
	log      *slog.Logger
	board    *state.Board
	loop     *anim.Loop
	exporter *export.Exporter

	mu       sync.Mutex
	renderer *render.Renderer
	filter   capture.Filter
	tool     Tool
	color    string
	size     float64
	drawing  bool
	cursor   geom.Point
	hover    bool
	onChange []func(rev uint64)
	onFrame  []func(img image.Image)
}

// New returns a session with an empty board and the pen selected.
func New(cfg Config) *Session {
	cfg.defaults()
	s := &Session{
		cfg:   cfg,
		log:   cfg.Logger.With("component", "session"),
		board: state.NewBoard(state.Config{HistoryCap: cfg.HistoryCap, Logger: cfg.Logger}),
		exporter: export.NewExporter(export.Config{
			Dir:    cfg.ExportDir,
			FFmpeg: cfg.FFmpeg,
			Now:    cfg.Now,
			Logger: cfg.Logger,
		}),
		renderer: render.New(cfg.Width, cfg.Height),
		tool:     ToolPen,
		color:    DefaultColor,
		size:     DefaultSize,
	}
	s.loop = anim.New(anim.Config{RefreshHz: cfg.RefreshHz, Logger: cfg.Logger}, s.tick)
	return s
}

// Close stops the animation loop and cancels a running export.
func (s *Session) Close() {
	s.exporter.Cancel()
	s.loop.Close()
}

// Board exposes the stroke store.
func (s *Session) Board() *state.Board { return s.board }

// LoopState reports what the animation loop is doing.
func (s *Session) LoopState() anim.State { return s.loop.State() }

// Size returns the canvas size.
func (s *Session) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Width, s.renderer.Height
}

// OnChange registers fn to run after every change to the drawing or tool
// settings. fn must not block.
func (s *Session) OnChange(fn func(rev uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnFrame registers fn to receive every interactive frame while the
// animation loop runs.
func (s *Session) OnFrame(fn func(img image.Image)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = append(s.onFrame, fn)
}

func (s *Session) changed() {
	s.mu.Lock()
	hooks := slices.Clone(s.onChange)
	s.mu.Unlock()

	s.updateLoop()
	rev := s.board.Revision()
	for _, fn := range hooks {
		fn(rev)
	}
}

func (s *Session) updateLoop() {
	s.mu.Lock()
	c := anim.Conditions{Drawing: s.drawing, Hover: s.hover}
	s.mu.Unlock()
	c.Effects = s.board.Animated()
	s.loop.Update(c)
}

func (s *Session) tick(t float64) {
	s.mu.Lock()
	hooks := slices.Clone(s.onFrame)
	s.mu.Unlock()
	if len(hooks) == 0 {
		return
	}
	img, err := s.Frame(t)
	if err != nil {
		s.log.Warn("frame failed", "err", err)
		return
	}
	for _, fn := range hooks {
		fn(img)
	}
}

// Frame renders the drawing at t seconds with the in-progress stroke and
// brush outline on top.
func (s *Session) Frame(t float64) (image.Image, error) {
	s.mu.Lock()
	r := s.renderer
	o := &render.Overlay{
		Points:     s.filter.Points(),
		Color:      s.color,
		Size:       s.size,
		Erasing:    s.tool == ToolEraser,
		Cursor:     s.cursor,
		ShowCursor: s.hover,
	}
	s.mu.Unlock()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return r.Frame(s.board.Layers(), t, render.Options{Rand: rng, Overlay: o})
}

// Now is the interactive animation clock in seconds.
func (s *Session) Now() float64 { return s.loop.Elapsed() }

// SetTool selects the pen or the eraser.
func (s *Session) SetTool(t Tool) error {
	if t != ToolPen && t != ToolEraser {
		return fmt.Errorf("%w: %q", ErrInvalidTool, t)
	}
	s.mu.Lock()
	s.tool = t
	s.mu.Unlock()
	s.changed()
	return nil
}

// SetColor sets the pen colour, written as #RRGGBB.
func (s *Session) SetColor(c string) error {
	if !hexColor.MatchString(c) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c)
	}
	s.mu.Lock()
	s.color = c
	s.mu.Unlock()
	s.changed()
	return nil
}

// SetSize sets the brush diameter.
func (s *Session) SetSize(size float64) error {
	if size < MinSize || size > MaxSize {
		return fmt.Errorf("%w: %g", ErrInvalidSize, size)
	}
	s.mu.Lock()
	s.size = size
	s.mu.Unlock()
	s.changed()
	return nil
}

// Tool returns the current tool, colour and brush size.
func (s *Session) Tool() (Tool, string, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool, s.color, s.size
}

// Export renders the current drawing to a clip and returns its path. The
// interactive loop is suspended for the duration. Edits made meanwhile do
// not affect the clip.
func (s *Session) Export(ctx context.Context, opts export.Options, progress export.Progress) (string, error) {
	layers := s.board.Layers()
	if !hasVisibleContent(layers) {
		return "", ErrNothingToExport
	}
	if err := s.loop.BeginExport(); err != nil {
		return "", err
	}
	defer s.loop.EndExport()

	s.mu.Lock()
	r := *s.renderer
	s.mu.Unlock()

	frame := func(t float64) (image.Image, error) {
		return r.Frame(layers, t, render.Options{Export: true})
	}
	path, err := s.exporter.Export(ctx, frame, r.Width, r.Height, opts, progress)
	if err != nil {
		return "", err
	}
	s.log.Info("animation exported", "path", path)
	return path, nil
}

// CancelExport stops a running export. It reports whether one was running.
func (s *Session) CancelExport() bool { return s.exporter.Cancel() }

// Exporting reports whether an export is running.
func (s *Session) Exporting() bool { return s.exporter.Running() }

func hasVisibleContent(layers []state.Layer) bool {
	for _, l := range layers {
		if l.Visible && len(l.Strokes) > 0 {
			return true
		}
	}
	return false
}

// Document returns the drawing in file form.
func (s *Session) Document() doc.Document {
	w, h := s.Size()
	return doc.Document{
		Version:  doc.Version,
		Width:    w,
		Height:   h,
		Layers:   s.board.Layers(),
		ActiveID: s.board.ActiveID(),
	}
}

// Save writes the drawing as a .drz document.
func (s *Session) Save(w io.Writer) error {
	return doc.Encode(w, s.Document())
}

// Load replaces the drawing with the document read from r. On any error
// the current drawing is left untouched.
func (s *Session) Load(r io.Reader) error {
	d, err := doc.Decode(r)
	if err != nil {
		return err
	}
	s.apply(d)
	return nil
}

// SaveFile writes the drawing to path.
func (s *Session) SaveFile(path string) error {
	if err := doc.SaveFile(path, s.Document()); err != nil {
		return err
	}
	s.log.Info("drawing saved", "path", path)
	return nil
}

// LoadFile replaces the drawing with the document at path.
func (s *Session) LoadFile(path string) error {
	d, err := doc.LoadFile(path)
	if err != nil {
		return err
	}
	s.apply(d)
	s.log.Info("drawing loaded", "path", path, "layers", len(d.Layers))
	return nil
}

func (s *Session) apply(d doc.Document) {
	s.mu.Lock()
	s.filter.Reset()
	s.drawing = false
	s.renderer = render.New(d.Width, d.Height)
	s.mu.Unlock()

	s.board.Replace(d.Layers, d.ActiveID)
	s.changed()
}

// SetEffects replaces the animation settings of the active layer.
func (s *Session) SetEffects(p effects.Params) error {
	if err := s.board.SetAnimation(s.board.ActiveID(), p); err != nil {
		return err
	}
	s.changed()
	return nil
}
