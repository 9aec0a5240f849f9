package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Drawerz/internal/geom"
)

func snap(names ...string) Snapshot {
	var s Snapshot
	for _, n := range names {
		s.Layers = append(s.Layers, Layer{ID: n, Name: n})
	}
	if len(s.Layers) > 0 {
		s.ActiveID = s.Layers[0].ID
	}
	return s
}

func TestHistoryUndoCount(t *testing.T) {
	h := NewHistory(10)
	h.Push(snap("a"))
	h.Push(snap("b"))
	h.Push(snap("c"))

	undos := 0
	for h.CanUndo() {
		_, ok := h.Undo()
		require.True(t, ok)
		undos++
	}
	assert.Equal(t, 2, undos)

	_, ok := h.Undo()
	assert.False(t, ok)
}

func TestHistoryRedoAfterUndo(t *testing.T) {
	h := NewHistory(10)
	h.Push(snap("a"))
	h.Push(snap("b"))

	s, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "a", s.ActiveID)

	s, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, "b", s.ActiveID)
	assert.False(t, h.CanRedo())
}

func TestHistoryPushTruncatesRedo(t *testing.T) {
	h := NewHistory(10)
	h.Push(snap("a"))
	h.Push(snap("b"))
	h.Push(snap("c"))
	h.Undo()
	h.Undo()
	require.True(t, h.CanRedo())

	h.Push(snap("d"))
	assert.False(t, h.CanRedo())
	assert.Equal(t, 2, h.Len())

	s, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "a", s.ActiveID)
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		h.Push(snap(n))
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())

	var seen []string
	for h.CanUndo() {
		s, _ := h.Undo()
		seen = append(seen, s.ActiveID)
	}
	assert.Equal(t, []string{"d", "c"}, seen)
}

func TestHistoryDefaultCap(t *testing.T) {
	assert.Equal(t, DefaultHistoryCap, NewHistory(0).Cap())
	assert.Equal(t, 50, NewHistory(50).Cap())
}

func TestHistoryEntriesAreCopies(t *testing.T) {
	h := NewHistory(5)
	s := Snapshot{Layers: []Layer{{ID: "l", Strokes: []Stroke{{ID: "s", Points: []geom.Point{{X: 1, Y: 1}}}}}}, ActiveID: "l"}
	h.Push(s)
	h.Push(snap("other"))

	// Mutating the pushed value must not reach the stored entry.
	s.Layers[0].Strokes[0].Points[0].X = 99

	got, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Layers[0].Strokes[0].Points[0].X)

	// Nor may mutating a returned entry.
	got.Layers[0].Strokes[0].Points[0].X = 42
	h.Redo()
	again, _ := h.Undo()
	assert.Equal(t, 1.0, again.Layers[0].Strokes[0].Points[0].X)
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory(5)
	h.Push(snap("a"))
	h.Push(snap("b"))
	h.Reset(snap("z"))
	assert.Equal(t, 1, h.Len())
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}
