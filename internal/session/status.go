package session

import (
	"Drawerz/internal/effects"
	"Drawerz/internal/state"
)

// LayerInfo summarises one layer for clients.
type LayerInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Visible   bool           `json:"visible"`
	Opacity   float64        `json:"opacity"`
	Strokes   int            `json:"strokes"`
	Animation effects.Params `json:"animation"`
}

// Status is the client-visible state of a session.
type Status struct {
	Session     string      `json:"session"`
	Revision    uint64      `json:"revision"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Tool        Tool        `json:"tool"`
	Color       string      `json:"color"`
	Size        float64     `json:"size"`
	CanUndo     bool        `json:"canUndo"`
	CanRedo     bool        `json:"canRedo"`
	Exporting   bool        `json:"exporting"`
	ActiveLayer string      `json:"activeLayer"`
	Layers      []LayerInfo `json:"layers"`
}

// Status returns a snapshot of the session for clients.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		Session: state.SessionID(),
		Width:   s.renderer.Width,
		Height:  s.renderer.Height,
		Tool:    s.tool,
		Color:   s.color,
		Size:    s.size,
	}
	s.mu.Unlock()

	st.Revision = s.board.Revision()
	st.CanUndo = s.board.CanUndo()
	st.CanRedo = s.board.CanRedo()
	st.Exporting = s.Exporting()
	st.ActiveLayer = s.board.ActiveID()
	st.Layers = layerInfos(s.board.Layers())
	return st
}

func layerInfos(layers []state.Layer) []LayerInfo {
	out := make([]LayerInfo, len(layers))
	for i, l := range layers {
		out[i] = LayerInfo{
			ID:        l.ID,
			Name:      l.Name,
			Visible:   l.Visible,
			Opacity:   l.Opacity,
			Strokes:   len(l.Strokes),
			Animation: l.Animation,
		}
	}
	return out
}
