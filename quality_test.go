package tetra_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetralab/tetra"
	"gonum.org/v1/gonum/spatial/r3"
)

// unitTet returns the single-tetrahedron mesh over the unit tetrahedron
// vertices, positively oriented.
func unitTet() tetra.VolumeMesh {
	return tetra.VolumeMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		Tets: [][4]int{{0, 1, 2, 3}},
	}
}

func TestTetVolumeAntisymmetry(t *testing.T) {
	a := r3.Vec{X: 0.3, Y: -0.1, Z: 0.2}
	b := r3.Vec{X: 1.1, Y: 0.4, Z: -0.3}
	c := r3.Vec{X: -0.2, Y: 1.3, Z: 0.1}
	d := r3.Vec{X: 0.5, Y: 0.2, Z: 1.7}

	v := tetra.TetVolume(a, b, c, d)
	require.NotZero(t, v)
	require.InDelta(t, -v, tetra.TetVolume(b, a, c, d), 1e-15)
	require.InDelta(t, -v, tetra.TetVolume(a, c, b, d), 1e-15)
	require.InDelta(t, -v, tetra.TetVolume(a, b, d, c), 1e-15)
}

func TestTetQualityScore(t *testing.T) {
	// Regular tetrahedron, positively oriented. Quality must be 1.
	q := tetra.TetQualityScore(
		r3.Vec{X: 1, Y: 1, Z: 1},
		r3.Vec{X: 1, Y: -1, Z: -1},
		r3.Vec{X: -1, Y: -1, Z: 1},
		r3.Vec{X: -1, Y: 1, Z: -1},
	)
	require.InDelta(t, 1.0, q, 1e-12)

	// Unit tetrahedron is squashed relative to regular; strictly between.
	m := unitTet()
	q = tetra.TetQualityScore(m.Vertices[0], m.Vertices[1], m.Vertices[2], m.Vertices[3])
	require.Greater(t, q, 0.0)
	require.Less(t, q, 1.0)

	// Coplanar points are degenerate.
	q = tetra.TetQualityScore(
		r3.Vec{X: 0, Y: 0, Z: 0},
		r3.Vec{X: 1, Y: 0, Z: 0},
		r3.Vec{X: 0, Y: 1, Z: 0},
		r3.Vec{X: 1, Y: 1, Z: 0},
	)
	require.Equal(t, 0.0, q)
}

func TestValidate(t *testing.T) {
	stats, err := tetra.Validate(unitTet())
	require.NoError(t, err)
	require.True(t, stats.Ok())
	require.Equal(t, 1, stats.TetCount)
	require.Equal(t, 4, stats.VertexCount)
	require.InDelta(t, 1.0/6.0, stats.TotalVolume, 1e-12)
	require.Equal(t, stats.MinVolume, stats.MaxVolume)
	require.Greater(t, stats.AvgQuality, 0.0)
}

func TestValidateCountsInvertedElements(t *testing.T) {
	m := unitTet()
	m.Tets = append(m.Tets, [4]int{1, 0, 2, 3})
	stats, err := tetra.Validate(m)
	require.NoError(t, err)
	require.False(t, stats.Ok())
	require.Equal(t, 1, stats.InvalidCount)
	require.Equal(t, 2, stats.TetCount)
	require.Less(t, stats.MinVolume, 0.0)
	require.Equal(t, 0.0, stats.MinQuality)
}

func TestValidateMalformed(t *testing.T) {
	m := unitTet()
	m.Tets[0][3] = 17
	_, err := tetra.Validate(m)
	require.ErrorIs(t, err, tetra.ErrMalformedMesh)

	m = unitTet()
	m.Tets[0][0] = -1
	_, err = tetra.Validate(m)
	require.ErrorIs(t, err, tetra.ErrMalformedMesh)
}

func TestValidateEmptyMesh(t *testing.T) {
	stats, err := tetra.Validate(tetra.VolumeMesh{Vertices: unitTet().Vertices})
	require.NoError(t, err)
	require.True(t, stats.Ok())
	require.Equal(t, 0, stats.TetCount)
}
