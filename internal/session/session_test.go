package session

import (
	"bytes"
	"context"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Drawerz/internal/anim"
	"Drawerz/internal/doc"
	"Drawerz/internal/effects"
	"Drawerz/internal/export"
	"Drawerz/internal/geom"
	"Drawerz/internal/state"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	s := New(Config{
		Width:     120,
		Height:    80,
		RefreshHz: 200,
		ExportDir: t.TempDir(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(s.Close)
	return s
}

func drag(t *testing.T, s *Session, pts ...geom.Point) {
	t.Helper()
	for i, p := range pts {
		p.Timestamp = int64(1 + i*16)
		if i == 0 {
			require.NoError(t, s.PointerDown(p))
			continue
		}
		s.PointerMove(p)
	}
	require.NoError(t, s.PointerUp())
}

func hline(x0, x1, y, step float64) []geom.Point {
	var pts []geom.Point
	for x := x0; x <= x1; x += step {
		pts = append(pts, geom.Pt(x, y))
	}
	return pts
}

func TestPenCommitsStroke(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.SetColor("#aa00ff"))
	require.NoError(t, s.SetSize(7))

	drag(t, s, hline(0, 100, 10, 10)...)

	strokes := s.Board().Strokes()
	require.Len(t, strokes, 1)
	st := strokes[0]
	assert.Equal(t, 0.0, st.Points[0].X)
	assert.Equal(t, 10.0, st.Points[0].Y)
	assert.Equal(t, "#aa00ff", st.Color)
	assert.Equal(t, 7.0, st.Size)
	assert.False(t, s.Drawing())
	assert.True(t, s.Board().CanUndo())
}

func TestPenResamplesWhenLayerDeforms(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.SetEffects(effects.Params{Jiggle: 3, Speed: 1}))

	drag(t, s, hline(0, 100, 10, 10)...)

	strokes := s.Board().Strokes()
	require.Len(t, strokes, 1)
	assert.GreaterOrEqual(t, len(strokes[0].Points), 30)
}

func TestSingleClickMakesDot(t *testing.T) {
	s := newSession(t)
	drag(t, s, geom.Pt(40, 40))
	strokes := s.Board().Strokes()
	require.Len(t, strokes, 1)
	assert.Len(t, strokes[0].Points, 1)
}

func TestEraserRemovesNearbyStroke(t *testing.T) {
	s := newSession(t)
	drag(t, s, hline(0, 50, 10, 10)...)
	drag(t, s, hline(0, 50, 60, 10)...)
	require.Equal(t, 2, s.Board().StrokeCount())

	require.NoError(t, s.SetTool(ToolEraser))
	drag(t, s, geom.Pt(25, 12), geom.Pt(28, 14))

	strokes := s.Board().Strokes()
	require.Len(t, strokes, 1)
	assert.Equal(t, 60.0, strokes[0].Points[0].Y)

	require.True(t, s.Undo())
	assert.Equal(t, 2, s.Board().StrokeCount())
	require.True(t, s.Redo())
	assert.Equal(t, 1, s.Board().StrokeCount())
}

func TestLeaveFinishesStroke(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.PointerDown(geom.Point{X: 0, Y: 0, Timestamp: 1}))
	s.PointerMove(geom.Point{X: 30, Y: 0, Timestamp: 20})
	require.NoError(t, s.Leave())

	assert.False(t, s.Drawing())
	assert.Equal(t, 1, s.Board().StrokeCount())
}

func TestPointerDownOnHiddenLayer(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.SetLayerVisible(s.Board().ActiveID(), false))
	assert.ErrorIs(t, s.PointerDown(geom.Pt(1, 1)), state.ErrLayerHidden)
	assert.False(t, s.Drawing())
	assert.NoError(t, s.PointerUp())
}

func TestToolValidation(t *testing.T) {
	s := newSession(t)
	assert.ErrorIs(t, s.SetColor("red"), ErrInvalidColor)
	assert.ErrorIs(t, s.SetColor("#12345"), ErrInvalidColor)
	assert.ErrorIs(t, s.SetSize(0.5), ErrInvalidSize)
	assert.ErrorIs(t, s.SetSize(101), ErrInvalidSize)
	assert.ErrorIs(t, s.SetTool("brush"), ErrInvalidTool)

	tool, color, size := s.Tool()
	assert.Equal(t, ToolPen, tool)
	assert.Equal(t, DefaultColor, color)
	assert.Equal(t, DefaultSize, size)
}

func TestOnChangeFires(t *testing.T) {
	s := newSession(t)
	var calls atomic.Int32
	var last atomic.Uint64
	s.OnChange(func(rev uint64) {
		calls.Add(1)
		last.Store(rev)
	})

	drag(t, s, hline(0, 40, 5, 10)...)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, s.Board().Revision(), last.Load())

	assert.False(t, s.Redo())
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoopFollowsConditions(t *testing.T) {
	s := newSession(t)
	assert.Equal(t, anim.Idle, s.LoopState())

	s.Hover(geom.Pt(10, 10))
	assert.Equal(t, anim.Animating, s.LoopState())
	require.NoError(t, s.Leave())
	assert.Equal(t, anim.Idle, s.LoopState())

	// Effects on an empty layer have nothing to move.
	require.NoError(t, s.SetEffects(effects.Params{Float: 2, Speed: 1}))
	assert.Equal(t, anim.Idle, s.LoopState())

	drag(t, s, hline(0, 40, 5, 10)...)
	assert.Equal(t, anim.Animating, s.LoopState())

	require.NoError(t, s.SetEffects(effects.DefaultParams()))
	assert.Equal(t, anim.Idle, s.LoopState())
}

func TestOnFrameReceivesFrames(t *testing.T) {
	s := newSession(t)
	frames := make(chan image.Image, 4)
	s.OnFrame(func(img image.Image) {
		select {
		case frames <- img:
		default:
		}
	})

	s.Hover(geom.Pt(10, 10))
	select {
	case img := <-frames:
		assert.Equal(t, image.Rect(0, 0, 120, 80), img.Bounds())
	case <-time.After(2 * time.Second):
		t.Fatal("no frame while hovering")
	}
}

func TestFrameShowsInProgressStroke(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.SetColor("#ff0000"))
	require.NoError(t, s.SetSize(10))
	require.NoError(t, s.PointerDown(geom.Point{X: 10, Y: 40, Timestamp: 1}))
	s.PointerMove(geom.Point{X: 110, Y: 40, Timestamp: 20})

	img, err := s.Frame(0)
	require.NoError(t, err)
	r, g, b, _ := img.At(40, 40).RGBA()
	assert.Greater(t, r, uint32(0xc000))
	assert.Less(t, g, uint32(0x4000))
	assert.Less(t, b, uint32(0x4000))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newSession(t)
	drag(t, s, hline(0, 60, 20, 10)...)
	s.AddLayer("Top")
	require.NoError(t, s.SetEffects(effects.Params{Jiggle: 1, Speed: 2}))
	drag(t, s, hline(0, 60, 50, 10)...)

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	other := newSession(t)
	require.NoError(t, other.Load(bytes.NewReader(buf.Bytes())))

	want, got := s.Board().Layers(), other.Board().Layers()
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Animation, got[i].Animation)
		assert.Equal(t, len(want[i].Strokes), len(got[i].Strokes))
	}
	assert.Equal(t, s.Board().ActiveID(), other.Board().ActiveID())
	assert.False(t, other.Board().CanUndo())
	assert.Equal(t, anim.Animating, other.LoopState())
}

func TestLoadResizesCanvas(t *testing.T) {
	s := newSession(t)
	src := `{"version":"1.0","canvas":{"width":320,"height":200},"layers":[{"id":"a","name":"A","strokes":[]}],"activeLayerId":"a","strokes":[]}`
	require.NoError(t, s.Load(strings.NewReader(src)))

	w, h := s.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
	img, err := s.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 200), img.Bounds())
}

func TestLoadInvalidKeepsDrawing(t *testing.T) {
	s := newSession(t)
	drag(t, s, hline(0, 60, 20, 10)...)
	rev := s.Board().Revision()

	err := s.Load(strings.NewReader("{not json"))
	assert.ErrorIs(t, err, doc.ErrInvalidFormat)
	assert.Equal(t, 1, s.Board().StrokeCount())
	assert.Equal(t, rev, s.Board().Revision())
}

func TestLoadRejectsOversizedCanvas(t *testing.T) {
	s := newSession(t)
	s.Hover(geom.Pt(10, 10))
	src := `{"version":"1.0","canvas":{"width":1e7,"height":1e7},"settings":{},"strokes":[]}`
	assert.ErrorIs(t, s.Load(strings.NewReader(src)), doc.ErrInvalidFormat)

	w, h := s.Size()
	assert.Equal(t, 120, w)
	assert.Equal(t, 80, h)
	img, err := s.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 80), img.Bounds())
}

func TestSaveFileLoadFile(t *testing.T) {
	s := newSession(t)
	drag(t, s, hline(0, 60, 20, 10)...)
	path := t.TempDir() + "/drawing" + doc.Extension
	require.NoError(t, s.SaveFile(path))

	other := newSession(t)
	require.NoError(t, other.LoadFile(path))
	assert.Equal(t, 1, other.Board().StrokeCount())
}

func TestExportGIF(t *testing.T) {
	s := newSession(t)
	drag(t, s, hline(0, 60, 20, 10)...)
	s.Hover(geom.Pt(5, 5))
	require.Equal(t, anim.Animating, s.LoopState())

	var last atomic.Int32
	path, err := s.Export(context.Background(), export.Options{
		FPS:      10,
		Duration: 500 * time.Millisecond,
		Quality:  export.QualityLow,
		Format:   export.FormatGIF,
	}, func(done, total int) { last.Store(int32(done)) })
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, strings.HasSuffix(path, ".gif"))
	assert.Equal(t, int32(5), last.Load())

	assert.Equal(t, anim.Animating, s.LoopState())
	assert.False(t, s.Exporting())
}

func TestCloseDuringExportStopsLoop(t *testing.T) {
	s := newSession(t)
	drag(t, s, hline(0, 60, 20, 10)...)
	s.Hover(geom.Pt(5, 5))
	require.Equal(t, anim.Animating, s.LoopState())

	var frames atomic.Int32
	s.OnFrame(func(image.Image) { frames.Add(1) })

	_, err := s.Export(context.Background(), export.Options{
		FPS:      10,
		Duration: 5 * time.Second,
		Quality:  export.QualityLow,
		Format:   export.FormatGIF,
	}, func(done, total int) {
		if done == 1 {
			s.Close()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, anim.Idle, s.LoopState())
	assert.False(t, s.Exporting())
	before := frames.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, frames.Load())
}

func TestExportNeedsVisibleContent(t *testing.T) {
	s := newSession(t)
	_, err := s.Export(context.Background(), export.Options{FPS: 10, Duration: time.Second, Format: export.FormatGIF}, nil)
	assert.ErrorIs(t, err, ErrNothingToExport)

	drag(t, s, hline(0, 60, 20, 10)...)
	require.NoError(t, s.SetLayerVisible(s.Board().ActiveID(), false))
	_, err = s.Export(context.Background(), export.Options{FPS: 10, Duration: time.Second, Format: export.FormatGIF}, nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Equal(t, anim.Idle, s.LoopState())
}

func TestLayerOpsNotify(t *testing.T) {
	s := newSession(t)
	var calls atomic.Int32
	s.OnChange(func(uint64) { calls.Add(1) })

	top := s.AddLayer("")
	require.NoError(t, s.RenameLayer(top.ID, "Ink"))
	require.NoError(t, s.SetLayerOpacity(top.ID, 0.5))
	require.NoError(t, s.MoveLayer(top.ID, -1))
	assert.Equal(t, int32(4), calls.Load())

	assert.ErrorIs(t, s.RemoveLayer("missing"), state.ErrLayerNotFound)
	assert.Equal(t, int32(4), calls.Load())

	require.NoError(t, s.RemoveLayer(top.ID))
	assert.ErrorIs(t, s.RemoveLayer(s.Board().ActiveID()), state.ErrLastLayer)

	s.ClearAll()
	assert.Equal(t, int32(5), calls.Load())
}

func TestStatus(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.SetTool(ToolEraser))
	drag(t, s, geom.Pt(1, 1))

	st := s.Status()
	assert.Equal(t, state.SessionID(), st.Session)
	assert.NotEmpty(t, st.Session)
	assert.Equal(t, 120, st.Width)
	assert.Equal(t, 80, st.Height)
	assert.Equal(t, ToolEraser, st.Tool)
	assert.Equal(t, DefaultColor, st.Color)
	assert.False(t, st.CanUndo)
	assert.False(t, st.Exporting)
	require.Len(t, st.Layers, 1)
	assert.Equal(t, st.ActiveLayer, st.Layers[0].ID)
	assert.Equal(t, 0, st.Layers[0].Strokes)
	assert.Equal(t, 1.0, st.Layers[0].Opacity)
}
