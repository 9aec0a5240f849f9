package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Drawerz/internal/geom"
)

func sample(x, y float64, ts int64) geom.Point {
	return geom.Point{X: x, Y: y, Timestamp: ts}
}

func TestFilterFirstSampleUnchanged(t *testing.T) {
	var f Filter
	assert.False(t, f.Active())
	require.True(t, f.Add(sample(3, 4, 100)))
	assert.True(t, f.Active())
	assert.Equal(t, []geom.Point{sample(3, 4, 100)}, f.Points())
	assert.Zero(t, f.Velocity())
}

func TestFilterSmoothsTowardNewSample(t *testing.T) {
	var f Filter
	f.Add(sample(0, 0, 0))
	require.True(t, f.Add(sample(10, 0, 10)))

	pts := f.Points()
	require.Len(t, pts, 2)
	assert.InDelta(t, 6.5, pts[1].X, 1e-9)
	assert.InDelta(t, 0, pts[1].Y, 1e-9)
	assert.Equal(t, int64(10), pts[1].Timestamp)
	// 10 units over 10 ms blended with a zero previous velocity.
	assert.InDelta(t, 0.7, f.Velocity(), 1e-9)
}

func TestFilterRejectsJitter(t *testing.T) {
	var f Filter
	f.Add(sample(0, 0, 0))
	// 0.65 * 3 = 1.95, below the minimum travel.
	assert.False(t, f.Add(sample(3, 0, 5)))
	assert.Len(t, f.Points(), 1)
	assert.Zero(t, f.Velocity())

	// The rejected sample did not move the anchor.
	require.True(t, f.Add(sample(4, 0, 10)))
	assert.InDelta(t, 2.6, f.Points()[1].X, 1e-9)
}

func TestFilterZeroTimeDeltaUsesOneMillisecond(t *testing.T) {
	var f Filter
	f.Add(sample(0, 0, 50))
	require.True(t, f.Add(sample(0, 10, 50)))
	assert.InDelta(t, 7.0, f.Velocity(), 1e-9)
}

func TestFilterFinishResets(t *testing.T) {
	var f Filter
	f.Add(sample(0, 0, 0))
	f.Add(sample(10, 10, 16))
	pts := f.Finish()
	assert.Len(t, pts, 2)
	assert.False(t, f.Active())
	assert.Empty(t, f.Points())
	assert.Zero(t, f.Velocity())

	require.True(t, f.Add(sample(50, 50, 100)))
	assert.Equal(t, []geom.Point{sample(50, 50, 100)}, f.Points())
}
