package state

import (
	"strings"

	"Drawerz/internal/effects"
)

// AddLayer inserts an empty layer directly above the active one and makes
// it active. An empty name becomes "Layer N".
func (b *Board) AddLayer(name string) Layer {
	b.mu.Lock()
	defer b.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultLayerName(len(b.layers))
	}
	l := NewLayer(name)

	at := b.indexLocked(b.activeID)
	if at < 0 || at == len(b.layers)-1 {
		b.layers = append(b.layers, l)
	} else {
		b.layers = append(b.layers[:at+1], append([]Layer{l}, b.layers[at+1:]...)...)
	}
	b.activeID = l.ID
	b.snapshotAndTickLocked()
	b.log.Debug("layer added", "layer", l.ID, "name", l.Name)
	return l.Clone()
}

// RemoveLayer deletes a layer. The last remaining layer cannot be removed.
func (b *Board) RemoveLayer(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(id)
	if i < 0 {
		return ErrLayerNotFound
	}
	if len(b.layers) <= 1 {
		return ErrLastLayer
	}
	b.layers = append(b.layers[:i], b.layers[i+1:]...)
	b.fixActiveLocked()
	b.snapshotAndTickLocked()
	return nil
}

// MoveLayer shifts a layer up (delta > 0, toward the top of the paint
// order) or down by one position. Moving past either end is a no-op.
func (b *Board) MoveLayer(id string, delta int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(id)
	if i < 0 {
		return ErrLayerNotFound
	}
	j := i
	switch {
	case delta > 0:
		j = i + 1
	case delta < 0:
		j = i - 1
	}
	if j == i || j < 0 || j >= len(b.layers) {
		return nil
	}
	b.layers[i], b.layers[j] = b.layers[j], b.layers[i]
	b.snapshotAndTickLocked()
	return nil
}

// RenameLayer sets a layer's name. A blank name falls back to "Layer N".
func (b *Board) RenameLayer(id, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(id)
	if i < 0 {
		return ErrLayerNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultLayerName(i)
	}
	b.layers[i].Name = name
	b.snapshotAndTickLocked()
	return nil
}

// SetLayerVisible shows or hides a layer.
func (b *Board) SetLayerVisible(id string, visible bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, err := b.layerLocked(id)
	if err != nil {
		return err
	}
	if l.Visible == visible {
		return nil
	}
	l.Visible = visible
	b.snapshotAndTickLocked()
	return nil
}

// SetLayerOpacity changes how opaque a layer paints. It is not an undo step.
func (b *Board) SetLayerOpacity(id string, opacity float64) error {
	if opacity < 0 || opacity > 1 {
		return ErrInvalidOpacity
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	l, err := b.layerLocked(id)
	if err != nil {
		return err
	}
	l.Opacity = opacity
	b.clock.Tick()
	return nil
}

// SetActiveLayer selects the layer new strokes are appended to.
func (b *Board) SetActiveLayer(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexLocked(id) < 0 {
		return ErrLayerNotFound
	}
	if b.activeID != id {
		b.activeID = id
		b.clock.Tick()
	}
	return nil
}

// SetAnimation replaces a layer's effect settings. Slider drags arrive as a
// stream of updates, so this is not an undo step.
func (b *Board) SetAnimation(id string, p effects.Params) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, err := b.layerLocked(id)
	if err != nil {
		return err
	}
	l.Animation = p
	b.clock.Tick()
	return nil
}

// ClearLayer removes every stroke from one layer and returns the count.
func (b *Board) ClearLayer(id string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, err := b.layerLocked(id)
	if err != nil {
		return 0, err
	}
	n := len(l.Strokes)
	if n == 0 {
		return 0, nil
	}
	l.Strokes = nil
	b.snapshotAndTickLocked()
	return n, nil
}

// ClearAll removes every stroke from every layer and returns the count.
func (b *Board) ClearAll() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for i := range b.layers {
		n += len(b.layers[i].Strokes)
		b.layers[i].Strokes = nil
	}
	if n > 0 {
		b.snapshotAndTickLocked()
	}
	return n
}
