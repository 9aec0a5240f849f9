package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Drawerz/internal/doc"
	"Drawerz/internal/geom"
	"Drawerz/internal/state"
)

func writeDrawing(t *testing.T) string {
	t.Helper()
	l := state.NewLayer("Ink")
	l.Animation.Jiggle = 2
	l.Strokes = []state.Stroke{{
		ID:     "s1",
		Points: []geom.Point{geom.Pt(5, 5), geom.Pt(50, 30)},
		Color:  "#112233",
		Size:   4,
		Phase:  10,
		Kind:   state.KindPath,
	}}
	path := filepath.Join(t.TempDir(), "drawing"+doc.Extension)
	require.NoError(t, doc.SaveFile(path, doc.Document{
		Version:  doc.Version,
		Width:    64,
		Height:   48,
		Layers:   []state.Layer{l},
		ActiveID: l.ID,
	}))
	return path
}

func TestInfo(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runInfo(&out, []string{"-in", writeDrawing(t)}))
	assert.Contains(t, out.String(), "canvas   64x48")
	assert.Contains(t, out.String(), "layers   1")
	assert.Contains(t, out.String(), "jiggle 2")

	assert.Error(t, runInfo(&out, nil))
}

func TestRender(t *testing.T) {
	in := writeDrawing(t)
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "frame.png")
	require.NoError(t, runRender([]string{"-in", in, "-t", "0.5", "-out", pngPath}))
	f, err := os.Open(pngPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	pdfPath := filepath.Join(dir, "frame.pdf")
	require.NoError(t, runRender([]string{"-in", in, "-out", pdfPath}))
	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	bmpPath := filepath.Join(dir, "frame.bmp")
	assert.Error(t, runRender([]string{"-in", in, "-out", bmpPath}))
	assert.NoFileExists(t, bmpPath)
}

func TestExport(t *testing.T) {
	out := t.TempDir()
	err := runExport(context.Background(), []string{
		"-in", writeDrawing(t),
		"-out", out,
		"-duration", "5s",
		"-quality", "low",
		"-width", "32",
		"-height", "24",
	})
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(out, "drawerz_animation_*.gif"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	err = runExport(context.Background(), []string{"-in", writeDrawing(t), "-fps", "24"})
	assert.ErrorContains(t, err, "export.fps")
}
