package share

import (
	"errors"
	"fmt"

	"Drawerz/internal/effects"
	"Drawerz/internal/geom"
	"Drawerz/internal/session"
)

// Message types sent by clients.
const (
	MsgPointerDown = "pointerdown"
	MsgPointerMove = "pointermove"
	MsgPointerUp   = "pointerup"
	MsgHover       = "hover"
	MsgLeave       = "leave"
	MsgUndo        = "undo"
	MsgRedo        = "redo"
	MsgTool        = "tool"
	MsgColor       = "color"
	MsgSize        = "size"
	MsgEffects     = "effects"
	MsgLayer       = "layer"
)

// Message types sent to clients. Frames go out as binary PNG messages.
const (
	MsgState    = "state"
	MsgProgress = "progress"
	MsgExported = "exported"
	MsgError    = "error"
)

// Layer operations carried by a MsgLayer message.
const (
	LayerAdd      = "add"
	LayerRemove   = "remove"
	LayerMove     = "move"
	LayerRename   = "rename"
	LayerVisible  = "visible"
	LayerOpacity  = "opacity"
	LayerSelect   = "select"
	LayerClear    = "clear"
	LayerClearAll = "clearall"
)

var errUnknownMessage = errors.New("unknown message type")

// Message is the JSON envelope for everything exchanged over the socket.
// Type selects which of the other fields are meaningful.
type Message struct {
	Type    string          `json:"type"`
	Point   *geom.Point     `json:"point,omitempty"`
	Tool    session.Tool    `json:"tool,omitempty"`
	Color   string          `json:"color,omitempty"`
	Size    float64         `json:"size,omitempty"`
	Effects *effects.Params `json:"effects,omitempty"`
	Layer   *LayerOp        `json:"layer,omitempty"`

	Status *session.Status `json:"status,omitempty"`
	Done   int             `json:"done,omitempty"`
	Total  int             `json:"total,omitempty"`
	Path   string          `json:"path,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// LayerOp is one layer panel action.
type LayerOp struct {
	Op      string   `json:"op"`
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Delta   int      `json:"delta,omitempty"`
	Visible *bool    `json:"visible,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
}

// apply performs one client message against the session.
func apply(s *session.Session, m Message) error {
	switch m.Type {
	case MsgPointerDown, MsgPointerMove, MsgHover:
		if m.Point == nil {
			return fmt.Errorf("%s: missing point", m.Type)
		}
		switch m.Type {
		case MsgPointerDown:
			return s.PointerDown(*m.Point)
		case MsgPointerMove:
			s.PointerMove(*m.Point)
		default:
			s.Hover(*m.Point)
		}
		return nil
	case MsgPointerUp:
		return s.PointerUp()
	case MsgLeave:
		return s.Leave()
	case MsgUndo:
		s.Undo()
		return nil
	case MsgRedo:
		s.Redo()
		return nil
	case MsgTool:
		return s.SetTool(m.Tool)
	case MsgColor:
		return s.SetColor(m.Color)
	case MsgSize:
		return s.SetSize(m.Size)
	case MsgEffects:
		if m.Effects == nil {
			return errors.New("effects: missing settings")
		}
		return s.SetEffects(*m.Effects)
	case MsgLayer:
		if m.Layer == nil {
			return errors.New("layer: missing operation")
		}
		return applyLayer(s, *m.Layer)
	}
	return fmt.Errorf("%w: %q", errUnknownMessage, m.Type)
}

func applyLayer(s *session.Session, op LayerOp) error {
	switch op.Op {
	case LayerAdd:
		s.AddLayer(op.Name)
		return nil
	case LayerRemove:
		return s.RemoveLayer(op.ID)
	case LayerMove:
		return s.MoveLayer(op.ID, op.Delta)
	case LayerRename:
		return s.RenameLayer(op.ID, op.Name)
	case LayerVisible:
		if op.Visible == nil {
			return errors.New("layer visible: missing value")
		}
		return s.SetLayerVisible(op.ID, *op.Visible)
	case LayerOpacity:
		if op.Opacity == nil {
			return errors.New("layer opacity: missing value")
		}
		return s.SetLayerOpacity(op.ID, *op.Opacity)
	case LayerSelect:
		return s.SetActiveLayer(op.ID)
	case LayerClear:
		return s.ClearLayer(op.ID)
	case LayerClearAll:
		s.ClearAll()
		return nil
	}
	return fmt.Errorf("%w: layer op %q", errUnknownMessage, op.Op)
}
