package tetra_test

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/tetralab/tetra"
	"gonum.org/v1/gonum/spatial/r3"
)

// tetSurface is the boundary of the unit tetrahedron.
func tetSurface() tetra.SurfaceMesh {
	return tetra.SurfaceMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		Triangles: [][3]int{
			{0, 2, 1},
			{0, 1, 3},
			{0, 3, 2},
			{1, 2, 3},
		},
	}
}

// cubeSurface is the boundary of the unit cube with outward winding.
func cubeSurface() tetra.SurfaceMesh {
	return tetra.SurfaceMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
		},
		Triangles: [][3]int{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{3, 6, 2}, {3, 7, 6}, // back
			{0, 4, 7}, {0, 7, 3}, // left
			{1, 2, 6}, {1, 6, 5}, // right
		},
	}
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAnalyzeGlobal(t *testing.T) {
	var a tetra.Analyzer
	field, err := a.Analyze(tetSurface(), tetra.DefaultDensityOptions())
	require.NoError(t, err)
	require.Equal(t, tetra.DensityGlobal, field.Mode)
	require.Nil(t, field.Sizes)
	require.False(t, field.Degraded)

	require.Greater(t, field.AvgSize, 0.0)
	require.LessOrEqual(t, field.MinSize, field.MedianSize)
	require.LessOrEqual(t, field.MedianSize, field.MaxSize)
	// Unit tetrahedron edges are 1 and sqrt(2) only.
	require.InDelta(t, 1.0, field.MinSize, 1e-12)
	require.InDelta(t, 1.4142135623730951, field.MaxSize, 1e-12)
}

func TestAnalyzeEmptySurface(t *testing.T) {
	var a tetra.Analyzer
	_, err := a.Analyze(tetra.SurfaceMesh{}, tetra.DefaultDensityOptions())
	require.ErrorIs(t, err, tetra.ErrEmptyGeometry)

	_, err = a.Analyze(tetra.SurfaceMesh{Vertices: tetSurface().Vertices}, tetra.DefaultDensityOptions())
	require.ErrorIs(t, err, tetra.ErrEmptyGeometry)
}

func TestAnalyzeLocal(t *testing.T) {
	opts := tetra.DefaultDensityOptions()
	opts.Mode = tetra.DensityLocal
	var a tetra.Analyzer
	surface := cubeSurface()
	field, err := a.Analyze(surface, opts)
	require.NoError(t, err)
	require.Equal(t, tetra.DensityLocal, field.Mode)
	require.False(t, field.Degraded)
	require.Len(t, field.Sizes, len(surface.Vertices))

	lo := field.AvgSize / opts.ClampRatio
	hi := field.AvgSize * opts.ClampRatio
	for i, s := range field.Sizes {
		if s <= 0 {
			t.Fatalf("size %d is not positive: %g", i, s)
		}
		if s < lo || s > hi {
			t.Errorf("size %d = %g outside clamp range [%g, %g]", i, s, lo, hi)
		}
	}
	require.GreaterOrEqual(t, field.SizeRangeRatio, 1.0)
	require.InDelta(t, field.MaxSize/field.MinSize, field.SizeRangeRatio, 1e-12)
}

func TestAnalyzeLocalDegradesWithoutIndex(t *testing.T) {
	a := tetra.Analyzer{
		Log: quietLogger(),
		NewIndex: func([]r3.Vec) (tetra.NearestIndex, error) {
			return nil, errors.New("no spatial index on this build")
		},
	}
	opts := tetra.DefaultDensityOptions()
	opts.Mode = tetra.DensityLocal
	field, err := a.Analyze(cubeSurface(), opts)
	require.NoError(t, err)
	require.True(t, field.Degraded)
	require.Equal(t, tetra.DensityGlobal, field.Mode)
	require.Nil(t, field.Sizes)
}

func TestKDIndexNearest(t *testing.T) {
	surface := cubeSurface()
	index, err := tetra.NewKDIndex(surface.Vertices)
	require.NoError(t, err)

	idx, dist := index.Nearest(surface.Vertices[0], 3)
	require.Len(t, idx, 3)
	require.Equal(t, 0, idx[0], "self must be the nearest result")
	require.Equal(t, 0.0, dist[0])
	for i := 1; i < len(dist); i++ {
		require.GreaterOrEqual(t, dist[i], dist[i-1])
	}
	// Unit cube corner neighbors are at distance 1.
	require.InDelta(t, 1.0, dist[1], 1e-12)

	_, err = tetra.NewKDIndex(nil)
	require.Error(t, err)
}
