// Package tetra converts a closed triangulated surface into a conformal
// tetrahedral volume mesh usable as input to a deformable-body physics
// solver. The pipeline derives a spatially varying target element size
// from the surface's own triangle geometry, translates it into sizing
// instructions for a volumetric mesher (the "oracle"), then repairs and
// validates the returned tetrahedra.
//
// The volumetric mesher itself is a black-box collaborator behind the
// Oracle interface. Package lattice ships a self-contained implementation
// meshing on a body-centered cubic lattice.
package tetra

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// Error taxonomy for a pipeline run. Degradable conditions (a missing
// spatial index capability) are not errors; they are reported on the
// returned DensityField instead.
var (
	// ErrEmptyGeometry reports a surface with no triangles. Fatal, raised
	// before the oracle is invoked.
	ErrEmptyGeometry = errors.New("tetra: surface has no triangles")
	// ErrNoVolume reports an oracle call that produced zero tetrahedra.
	ErrNoVolume = errors.New("tetra: oracle produced no volume elements")
	// ErrMalformedMesh reports shape or index invariant violations on a
	// volume mesh. Indicates an upstream bug, not a runtime condition.
	ErrMalformedMesh = errors.New("tetra: malformed volume mesh")
	// ErrInvalidConfiguration reports contradictory sizing parameters.
	ErrInvalidConfiguration = errors.New("tetra: invalid sizing configuration")
)

// SurfaceMesh is a triangulated 2D boundary embedded in 3D. It is
// read-only input to a pipeline run. Every triangle index must be in
// [0, len(Vertices)); the surface is assumed manifold enough for edge
// enumeration, which is not verified here.
type SurfaceMesh struct {
	Vertices  []r3.Vec
	Triangles [][3]int
}

// VolumeMesh is a tetrahedral decomposition of the interior bounded by a
// surface mesh. Orientation repair permutes tetrahedron index order in
// place; vertex positions are never modified after the oracle returns.
type VolumeMesh struct {
	Vertices []r3.Vec
	Tets     [][4]int
}

// Triangle returns the vertex positions of triangle i.
func (m SurfaceMesh) Triangle(i int) (a, b, c r3.Vec) {
	t := m.Triangles[i]
	return m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
}

// Tet returns the vertex positions of tetrahedron i.
func (m VolumeMesh) Tet(i int) (a, b, c, d r3.Vec) {
	t := m.Tets[i]
	return m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]], m.Vertices[t[3]]
}
