package tetra_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetralab/tetra"
	"gonum.org/v1/gonum/spatial/r3"
)

// twoTets shares a face between two positively oriented tetrahedra.
func twoTets() tetra.VolumeMesh {
	return tetra.VolumeMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
			{X: 1, Y: 1, Z: 1},
		},
		Tets: [][4]int{
			{0, 1, 2, 3},
			{1, 2, 3, 4},
		},
	}
}

func allPositive(m tetra.VolumeMesh) bool {
	for _, v := range tetra.Volumes(m.Vertices, m.Tets) {
		if v <= 0 {
			return false
		}
	}
	return true
}

func TestRepairIdempotentOnValidMesh(t *testing.T) {
	m := twoTets()
	require.True(t, allPositive(m), "fixture must be valid")
	want := [][4]int{m.Tets[0], m.Tets[1]}

	residual := tetra.RepairOrientation(m.Vertices, m.Tets, 0)
	require.Zero(t, residual)
	require.Equal(t, want, m.Tets, "valid tetrahedra must pass through unchanged")
}

func TestRepairAllInverted(t *testing.T) {
	m := twoTets()
	for i := range m.Tets {
		m.Tets[i][0], m.Tets[i][1] = m.Tets[i][1], m.Tets[i][0]
	}
	require.False(t, allPositive(m))

	vertsBefore := append([]r3.Vec(nil), m.Vertices...)
	// A uniformly inverted mesh needs a single global flip; two attempts
	// leave room for the post-flip rescan.
	residual := tetra.RepairOrientation(m.Vertices, m.Tets, 2)
	require.Zero(t, residual)
	require.True(t, allPositive(m))
	require.Equal(t, vertsBefore, m.Vertices)
}

func TestRepairPartiallyInverted(t *testing.T) {
	m := twoTets()
	m.Tets[1][0], m.Tets[1][1] = m.Tets[1][1], m.Tets[1][0]
	require.False(t, allPositive(m))

	vertsBefore := append([]r3.Vec(nil), m.Vertices...)
	residual := tetra.RepairOrientation(m.Vertices, m.Tets, 0)
	require.Zero(t, residual)
	require.True(t, allPositive(m))
	require.Equal(t, vertsBefore, m.Vertices, "repair must never move vertices")
}

func TestRepairReportsUnfixableSliver(t *testing.T) {
	// A coplanar tetrahedron has zero volume under every permutation.
	m := tetra.VolumeMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		Tets: [][4]int{
			{0, 1, 2, 4},
			{0, 1, 2, 3},
		},
	}
	residual := tetra.RepairOrientation(m.Vertices, m.Tets, 0)
	require.Equal(t, 1, residual)
}
