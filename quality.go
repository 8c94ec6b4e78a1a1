package tetra

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Volumes below this threshold are treated as degenerate when scoring
// element quality.
const degenerateVolume = 1e-10

// TetVolume returns the signed volume of tetrahedron (a, b, c, d): the
// scalar triple product of the three edges from a, divided by 6. The sign
// encodes the vertex-order orientation; a valid element is strictly
// positive.
func TetVolume(a, b, c, d r3.Vec) float64 {
	return r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a))) / 6
}

// Volumes returns the signed volume of every tetrahedron.
func Volumes(vertices []r3.Vec, tets [][4]int) []float64 {
	vols := make([]float64, len(tets))
	for i, t := range tets {
		vols[i] = TetVolume(vertices[t[0]], vertices[t[1]], vertices[t[2]], vertices[t[3]])
	}
	return vols
}

// TetQualityScore returns a dimensionless shape score in [0, 1]:
// 12*(3V)^(2/3) / sum of squared edge lengths. A regular tetrahedron
// scores 1; degenerate or inverted elements score 0.
func TetQualityScore(a, b, c, d r3.Vec) float64 {
	v := TetVolume(a, b, c, d)
	if v <= degenerateVolume {
		return 0
	}
	edges := [6]r3.Vec{
		r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a),
		r3.Sub(c, b), r3.Sub(d, b), r3.Sub(d, c),
	}
	var sumSq float64
	for _, e := range edges {
		sumSq += r3.Norm2(e)
	}
	return 12 * math.Pow(3*v, 2.0/3.0) / sumSq
}

// TetQuality is the per-element signed volume and shape score.
type TetQuality struct {
	Volume  float64
	Quality float64
}

// Qualities returns the signed volume and shape score of every
// tetrahedron.
func Qualities(vertices []r3.Vec, tets [][4]int) []TetQuality {
	qs := make([]TetQuality, len(tets))
	for i, t := range tets {
		a, b, c, d := vertices[t[0]], vertices[t[1]], vertices[t[2]], vertices[t[3]]
		qs[i] = TetQuality{
			Volume:  TetVolume(a, b, c, d),
			Quality: TetQualityScore(a, b, c, d),
		}
	}
	return qs
}

// MeshStats aggregates per-element volume and quality over a volume mesh.
type MeshStats struct {
	VertexCount int
	TetCount    int

	TotalVolume float64
	AvgVolume   float64
	MinVolume   float64
	MaxVolume   float64

	AvgQuality float64
	MinQuality float64

	// InvalidCount is the number of non-positive-volume elements.
	InvalidCount int
}

// Ok reports whether every element has strictly positive volume.
func (s MeshStats) Ok() bool { return s.InvalidCount == 0 }

// Validate checks the structural invariants of a volume mesh and computes
// its aggregate statistics. Index violations fail with ErrMalformedMesh;
// inverted elements are not an error, they are counted in
// MeshStats.InvalidCount for the caller's accept/reject decision.
func Validate(m VolumeMesh) (MeshStats, error) {
	n := len(m.Vertices)
	for i, t := range m.Tets {
		for _, v := range t {
			if v < 0 || v >= n {
				return MeshStats{}, fmt.Errorf("%w: tetrahedron %d references vertex %d of %d", ErrMalformedMesh, i, v, n)
			}
		}
	}
	stats := MeshStats{VertexCount: n, TetCount: len(m.Tets)}
	if len(m.Tets) == 0 {
		return stats, nil
	}
	vols := make([]float64, len(m.Tets))
	quals := make([]float64, len(m.Tets))
	for i, q := range Qualities(m.Vertices, m.Tets) {
		vols[i] = q.Volume
		quals[i] = q.Quality
		if q.Volume <= 0 {
			stats.InvalidCount++
		}
	}
	stats.TotalVolume = floats.Sum(vols)
	stats.AvgVolume = stat.Mean(vols, nil)
	stats.MinVolume = floats.Min(vols)
	stats.MaxVolume = floats.Max(vols)
	stats.AvgQuality = stat.Mean(quals, nil)
	stats.MinQuality = floats.Min(quals)
	return stats, nil
}
