// Package state owns the live stroke collection and its undo history.
package state

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"Drawerz/internal/geom"
)

// EraseThreshold is how close an eraser path must come to a stroke point
// to remove the stroke.
const EraseThreshold = 10.0

// MaxPhase bounds the random phase given to new strokes.
const MaxPhase = 1000.0

var (
	ErrEmptyStroke    = errors.New("stroke has no points")
	ErrNoActiveLayer  = errors.New("no active layer")
	ErrLayerHidden    = errors.New("active layer is hidden")
	ErrLayerNotFound  = errors.New("layer not found")
	ErrLastLayer      = errors.New("cannot delete the last layer")
	ErrInvalidOpacity = errors.New("opacity must be within [0, 1]")
)

// Config tunes a Board.
type Config struct {
	// HistoryCap bounds the undo stack (default DefaultHistoryCap).
	HistoryCap int
	// Rand returns values in [0, 1) used for stroke phases.
	Rand func() float64
	// Logger for state changes.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.HistoryCap <= 0 {
		c.HistoryCap = DefaultHistoryCap
	}
	if c.Rand == nil {
		c.Rand = rand.Float64
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Board is the stroke store: ordered layers, the active layer and the undo
// history. It is safe for concurrent use.
type Board struct {
	mu       sync.RWMutex
	layers   []Layer
	activeID string
	history  *History
	clock    Clock
	rand     func() float64
	log      *slog.Logger
}

// NewBoard returns a board with one empty layer. That state is the oldest
// undo entry.
func NewBoard(cfg Config) *Board {
	cfg.defaults()
	first := NewLayer(defaultLayerName(0))
	b := &Board{
		layers:   []Layer{first},
		activeID: first.ID,
		history:  NewHistory(cfg.HistoryCap),
		rand:     cfg.Rand,
		log:      cfg.Logger.With("component", "board"),
	}
	b.history.Push(b.snapshotLocked())
	return b
}

// CommitStroke appends a path stroke with a fresh phase to the active layer
// and records an undo entry.
func (b *Board) CommitStroke(points []geom.Point, color string, size float64) (Stroke, error) {
	return b.commit(Stroke{Points: points, Color: color, Size: size, Kind: KindPath}, true)
}

// Commit appends s to the active layer as given, phase included. Missing id
// and kind are filled in. The points are copied.
func (b *Board) Commit(s Stroke) (Stroke, error) {
	return b.commit(s, false)
}

func (b *Board) commit(s Stroke, seed bool) (Stroke, error) {
	if len(s.Points) == 0 {
		return Stroke{}, ErrEmptyStroke
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	l := b.activeLocked()
	if l == nil {
		return Stroke{}, ErrNoActiveLayer
	}
	if !l.Visible {
		return Stroke{}, ErrLayerHidden
	}

	s = s.Clone()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if seed {
		s.Phase = b.rand() * MaxPhase
	}
	if s.Kind == "" {
		s.Kind = KindPath
	}
	l.Strokes = append(l.Strokes, s)
	b.snapshotAndTickLocked()
	b.log.Debug("stroke committed", "stroke", s.ID, "layer", l.ID, "points", len(s.Points))
	return s.Clone(), nil
}

// EraseAt removes every stroke on the active layer that comes within
// EraseThreshold of any point of path. It returns how many were removed.
func (b *Board) EraseAt(path []geom.Point) int {
	if len(path) == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	l := b.activeLocked()
	if l == nil {
		return 0
	}

	reach := geom.Bounds(path).Pad(EraseThreshold)
	kept := l.Strokes[:0:0]
	removed := 0
	for _, s := range l.Strokes {
		if reach.Overlaps(geom.Bounds(s.Points)) && nearAny(s.Points, path, EraseThreshold) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	if removed == 0 {
		return 0
	}
	l.Strokes = kept
	b.snapshotAndTickLocked()
	b.log.Debug("strokes erased", "layer", l.ID, "removed", removed)
	return removed
}

func nearAny(a, b []geom.Point, threshold float64) bool {
	for _, p := range a {
		for _, q := range b {
			if geom.Distance(p, q) < threshold {
				return true
			}
		}
	}
	return false
}

// Snapshot records the current state as a new undo entry.
func (b *Board) Snapshot() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshotAndTickLocked()
}

// Undo restores the previous entry. It returns false at the oldest entry.
func (b *Board) Undo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.history.Undo()
	if !ok {
		return false
	}
	b.restoreLocked(s)
	return true
}

// Redo restores the next entry. It returns false at the newest entry.
func (b *Board) Redo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.history.Redo()
	if !ok {
		return false
	}
	b.restoreLocked(s)
	return true
}

// CanUndo reports whether Undo would act.
func (b *Board) CanUndo() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.history.CanUndo()
}

// CanRedo reports whether Redo would act.
func (b *Board) CanRedo() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.history.CanRedo()
}

// HistoryLen is the number of stored undo entries.
func (b *Board) HistoryLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.history.Len()
}

// Revision changes every time the board does.
func (b *Board) Revision() uint64 {
	return b.clock.Now()
}

// Layers returns a deep copy of all layers in paint order.
func (b *Board) Layers() []Layer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneLayers(b.layers)
}

// Layer returns a copy of the layer with the given id.
func (b *Board) Layer(id string) (Layer, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := b.indexLocked(id); i >= 0 {
		return b.layers[i].Clone(), true
	}
	return Layer{}, false
}

// ActiveID is the id of the layer new strokes go to.
func (b *Board) ActiveID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.activeID
}

// ActiveLayer returns a copy of the active layer.
func (b *Board) ActiveLayer() Layer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if l := b.activeLocked(); l != nil {
		return l.Clone()
	}
	return Layer{}
}

// Strokes returns a copy of the active layer's strokes.
func (b *Board) Strokes() []Stroke {
	return b.ActiveLayer().Strokes
}

// StrokeCount counts strokes across all layers.
func (b *Board) StrokeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, l := range b.layers {
		n += len(l.Strokes)
	}
	return n
}

// Animated reports whether any visible layer with strokes has an effect on.
func (b *Board) Animated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.layers {
		if l.Visible && len(l.Strokes) > 0 && l.Animation.Animated() {
			return true
		}
	}
	return false
}

// Replace swaps in a whole new set of layers, as after loading a file. The
// undo history restarts from the new state.
func (b *Board) Replace(layers []Layer, activeID string) {
	if len(layers) == 0 {
		layers = []Layer{NewLayer(defaultLayerName(0))}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.layers = cloneLayers(layers)
	for i := range b.layers {
		if b.layers[i].ID == "" {
			b.layers[i].ID = uuid.NewString()
		}
	}
	b.activeID = activeID
	b.fixActiveLocked()
	b.history.Reset(b.snapshotLocked())
	b.clock.Tick()
	b.log.Info("board replaced", "layers", len(b.layers))
}

func (b *Board) snapshotLocked() Snapshot {
	return Snapshot{Layers: cloneLayers(b.layers), ActiveID: b.activeID}
}

func (b *Board) snapshotAndTickLocked() {
	b.history.Push(b.snapshotLocked())
	b.clock.Tick()
}

func (b *Board) restoreLocked(s Snapshot) {
	b.layers = s.Layers
	if b.indexLocked(b.activeID) < 0 {
		b.activeID = s.ActiveID
	}
	b.fixActiveLocked()
	b.clock.Tick()
}

// fixActiveLocked points the active id at the topmost layer when the
// current one no longer exists.
func (b *Board) fixActiveLocked() {
	if b.indexLocked(b.activeID) >= 0 {
		return
	}
	b.activeID = ""
	if n := len(b.layers); n > 0 {
		b.activeID = b.layers[n-1].ID
	}
}

func (b *Board) indexLocked(id string) int {
	for i := range b.layers {
		if b.layers[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) activeLocked() *Layer {
	if i := b.indexLocked(b.activeID); i >= 0 {
		return &b.layers[i]
	}
	return nil
}

func (b *Board) layerLocked(id string) (*Layer, error) {
	if i := b.indexLocked(id); i >= 0 {
		return &b.layers[i], nil
	}
	return nil, ErrLayerNotFound
}
