// Package lattice is a self-contained tetrahedral mesh oracle. It fills
// the interior of a closed triangulated surface with tetrahedra on a
// body-centered cubic lattice, classifying lattice nodes against a
// signed-distance field built from the surface.
//
// It implements the tetra.Oracle contract for test rigs and for
// deployments without an external volumetric mesher. The lattice is
// uniform: a boundary-layer sizing spec is meshed entirely at its
// boundary size, and per-vertex density fields and algorithm ids are
// ignored.
package lattice

import (
	"errors"
	"fmt"

	"github.com/tetralab/tetra"
)

// Oracle meshes surfaces on a BCC lattice. The zero value is ready to
// use.
type Oracle struct{}

var _ tetra.Oracle = Oracle{}

// Acquire returns a new session. Sessions hold no native resources; the
// method exists to satisfy the scoped-session oracle contract.
func (Oracle) Acquire() (tetra.OracleSession, error) {
	return &session{}, nil
}

type session struct {
	closed bool
}

func (s *session) Close() error {
	if s.closed {
		return errors.New("lattice: session already closed")
	}
	s.closed = true
	return nil
}

func (s *session) Tetrahedralize(req tetra.MeshRequest) (tetra.VolumeMesh, error) {
	if s.closed {
		return tetra.VolumeMesh{}, errors.New("lattice: session closed")
	}
	res, err := resolution(req.Sizing)
	if err != nil {
		return tetra.VolumeMesh{}, err
	}
	field, err := newDistField(req.Surface)
	if err != nil {
		return tetra.VolumeMesh{}, err
	}
	g, err := makeGrid(field.Bounds(), res)
	if err != nil {
		return tetra.VolumeMesh{}, err
	}
	nodes, tets := g.mesh()

	// Keep tetrahedra reaching inside the surface.
	kept := make([][4]int, 0, len(tets))
	for _, tet := range tets {
		if field.Evaluate(nodes[tet[0]]) < 0 || field.Evaluate(nodes[tet[1]]) < 0 ||
			field.Evaluate(nodes[tet[2]]) < 0 || field.Evaluate(nodes[tet[3]]) < 0 {
			kept = append(kept, tet)
		}
	}

	m := newNodeMesh(nodes, kept)
	for pass := 1; pass <= req.OptimizeIterations; pass++ {
		m.compressAndSmooth(float64(pass)/float64(req.OptimizeIterations), field)
	}
	vertices, compacted := m.compact()
	return tetra.VolumeMesh{Vertices: vertices, Tets: compacted}, nil
}

// resolution maps a sizing spec onto the lattice cell size. Grading is
// not supported, so the finer boundary size wins for two-zone specs.
func resolution(s tetra.SizingSpec) (float64, error) {
	var res float64
	switch s.Kind {
	case tetra.SizingUniform:
		res = s.Size
	case tetra.SizingBoundaryLayer:
		res = s.BoundarySize
	default:
		return 0, fmt.Errorf("lattice: unknown sizing kind %d", s.Kind)
	}
	if res <= 0 {
		return 0, fmt.Errorf("lattice: non-positive element size %g", res)
	}
	return res, nil
}
