package session

import "Drawerz/internal/state"

// Undo steps back one change. It reports whether anything changed.
func (s *Session) Undo() bool {
	ok := s.board.Undo()
	if ok {
		s.changed()
	}
	return ok
}

// Redo reapplies an undone change. It reports whether anything changed.
func (s *Session) Redo() bool {
	ok := s.board.Redo()
	if ok {
		s.changed()
	}
	return ok
}

func (s *Session) AddLayer(name string) state.Layer {
	l := s.board.AddLayer(name)
	s.changed()
	return l
}

func (s *Session) RemoveLayer(id string) error {
	return s.after(s.board.RemoveLayer(id))
}

func (s *Session) MoveLayer(id string, delta int) error {
	return s.after(s.board.MoveLayer(id, delta))
}

func (s *Session) RenameLayer(id, name string) error {
	return s.after(s.board.RenameLayer(id, name))
}

func (s *Session) SetLayerVisible(id string, visible bool) error {
	return s.after(s.board.SetLayerVisible(id, visible))
}

func (s *Session) SetLayerOpacity(id string, opacity float64) error {
	return s.after(s.board.SetLayerOpacity(id, opacity))
}

func (s *Session) SetActiveLayer(id string) error {
	return s.after(s.board.SetActiveLayer(id))
}

// ClearLayer removes every stroke from one layer.
func (s *Session) ClearLayer(id string) error {
	n, err := s.board.ClearLayer(id)
	if err != nil {
		return err
	}
	if n > 0 {
		s.changed()
	}
	return nil
}

// ClearAll removes every stroke from every layer.
func (s *Session) ClearAll() {
	if s.board.ClearAll() > 0 {
		s.changed()
	}
}

func (s *Session) after(err error) error {
	if err != nil {
		return err
	}
	s.changed()
	return nil
}
