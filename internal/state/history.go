package state

// DefaultHistoryCap bounds the undo stack when no cap is configured.
const DefaultHistoryCap = 30

// Snapshot is a frozen copy of every layer plus the active layer id.
type Snapshot struct {
	Layers   []Layer
	ActiveID string
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Layers: cloneLayers(s.Layers), ActiveID: s.ActiveID}
}

// History is a bounded linear undo stack. Entries are deep copies and are
// never handed out without copying again.
type History struct {
	entries []Snapshot
	index   int
	cap     int
}

// NewHistory returns an empty history holding at most limit entries.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = DefaultHistoryCap
	}
	return &History{index: -1, cap: limit}
}

// Push records s as the newest state. Any redo branch is discarded and the
// oldest entry is evicted when the cap is exceeded.
func (h *History) Push(s Snapshot) {
	h.entries = append(h.entries[:h.index+1], s.Clone())
	h.index++
	if len(h.entries) > h.cap {
		h.entries[0] = Snapshot{}
		h.entries = h.entries[1:]
		h.index--
	}
}

// Undo steps back one entry and returns a copy of it.
func (h *History) Undo() (Snapshot, bool) {
	if !h.CanUndo() {
		return Snapshot{}, false
	}
	h.index--
	return h.entries[h.index].Clone(), true
}

// Redo steps forward one entry and returns a copy of it.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return Snapshot{}, false
	}
	h.index++
	return h.entries[h.index].Clone(), true
}

// CanUndo reports whether an older entry exists.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether a newer entry exists.
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Len is the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Cap is the maximum number of stored entries.
func (h *History) Cap() int { return h.cap }

// Reset drops every entry and starts over from s.
func (h *History) Reset(s Snapshot) {
	h.entries = nil
	h.index = -1
	h.Push(s)
}
