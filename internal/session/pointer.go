package session

import (
	"Drawerz/internal/capture"
	"Drawerz/internal/geom"
	"Drawerz/internal/state"
)

// PointerDown starts a pen stroke or an eraser drag at p.
func (s *Session) PointerDown(p geom.Point) error {
	if !s.board.ActiveLayer().Visible {
		return state.ErrLayerHidden
	}
	s.mu.Lock()
	s.stamp(&p)
	s.filter.Reset()
	s.filter.Add(p)
	s.drawing = true
	s.cursor = p
	s.mu.Unlock()
	s.updateLoop()
	return nil
}

// PointerMove extends the current drag, or just moves the brush outline
// when nothing is being drawn.
func (s *Session) PointerMove(p geom.Point) {
	s.mu.Lock()
	s.stamp(&p)
	s.cursor = p
	if s.drawing {
		s.filter.Add(p)
	}
	s.mu.Unlock()
}

// PointerUp ends the drag. A pen drag is simplified, resampled when the
// active layer deforms strokes, and committed. An eraser drag removes every
// stroke it came near.
func (s *Session) PointerUp() error {
	s.mu.Lock()
	if !s.drawing {
		s.mu.Unlock()
		return nil
	}
	s.drawing = false
	pts := s.filter.Finish()
	tool, color, size := s.tool, s.color, s.size
	s.mu.Unlock()

	var err error
	switch tool {
	case ToolEraser:
		if n := s.board.EraseAt(pts); n > 0 {
			s.log.Debug("erased strokes", "count", n)
		}
	default:
		err = s.commit(pts, color, size)
	}
	s.changed()
	return err
}

func (s *Session) commit(pts []geom.Point, color string, size float64) error {
	if len(pts) == 0 {
		return nil
	}
	deforming := s.board.ActiveLayer().Animation.Deforming()
	pts = capture.Vectorize(capture.Simplify(pts), deforming, false)
	st, err := s.board.CommitStroke(pts, color, size)
	if err != nil {
		return err
	}
	s.log.Debug("stroke committed", "stroke", st.ID, "points", len(st.Points))
	return nil
}

// Hover shows the brush outline at p.
func (s *Session) Hover(p geom.Point) {
	s.mu.Lock()
	s.cursor = p
	s.hover = true
	s.mu.Unlock()
	s.updateLoop()
}

// Leave is the pointer leaving the canvas. A drag in progress is finished
// as if the pointer had been released.
func (s *Session) Leave() error {
	err := s.PointerUp()
	s.mu.Lock()
	s.hover = false
	s.mu.Unlock()
	s.updateLoop()
	return err
}

// Drawing reports whether a drag is in progress.
func (s *Session) Drawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawing
}

func (s *Session) stamp(p *geom.Point) {
	if p.Timestamp == 0 {
		p.Timestamp = s.cfg.Now().UnixMilli()
	}
}
