package lattice

import (
	"errors"
	"math"

	"github.com/tetralab/tetra"
	"github.com/tetralab/tetra/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// distField is the signed distance to a closed triangulated surface,
// negative inside. The sign comes from angle-weighted pseudo-normals
// (Baerentzen & Aanaes), so the surface must be closed and consistently
// wound for inside/outside classification to be meaningful.
type distField struct {
	verts []r3.Vec
	// vertN are angle-weighted vertex pseudo-normals, edgeN the
	// pi-weighted edge pseudo-normals keyed by the lower vertex index
	// first.
	vertN []r3.Vec
	edgeN map[[2]int]r3.Vec

	tris []fieldTriangle
	tree *kdtree.Tree
	bb   d3.Box
}

func newDistField(s tetra.SurfaceMesh) (*distField, error) {
	if len(s.Triangles) == 0 {
		return nil, errors.New("lattice: surface has no triangles")
	}
	f := &distField{
		verts: s.Vertices,
		vertN: make([]r3.Vec, len(s.Vertices)),
		edgeN: make(map[[2]int]r3.Vec, 3*len(s.Triangles)/2),
		tris:  make([]fieldTriangle, len(s.Triangles)),
		bb:    d3.Box{Min: d3.Elem(math.MaxFloat64), Max: d3.Elem(-math.MaxFloat64)},
	}
	for _, v := range s.Vertices {
		f.bb = f.bb.Include(v)
	}
	for i, tri := range s.Triangles {
		a, b, c := s.Triangle(i)
		n := triangleNormal(a, b, c)
		f.tris[i] = fieldTriangle{
			vi:       tri,
			centroid: r3.Scale(1./3., r3.Add(r3.Add(a, b), c)),
			faceN:    r3.Scale(2*math.Pi, n),
			f:        f,
		}
		v := [3]r3.Vec{a, b, c}
		for j := 0; j < 3; j++ {
			// Vertex pseudo-normal weighted by the opening angle at j.
			s1 := r3.Sub(v[j], v[(j+1)%3])
			s2 := r3.Sub(v[j], v[(j+2)%3])
			alpha := math.Acos(r3.Cos(s1, s2))
			f.vertN[tri[j]] = r3.Add(f.vertN[tri[j]], r3.Scale(alpha, n))

			key := edgeKey(tri[j], tri[(j+1)%3])
			f.edgeN[key] = r3.Add(f.edgeN[key], r3.Scale(math.Pi, n))
		}
	}
	f.tree = kdtree.New(triSet{f: f}, true)
	return f, nil
}

// Evaluate returns the signed distance from q to the surface, negative
// inside the bounded volume.
func (f *distField) Evaluate(q r3.Vec) float64 {
	nearest, dist2 := f.tree.Nearest(&fieldTriangle{centroid: q})
	tri := nearest.(*fieldTriangle)
	return tri.copySign(q, math.Sqrt(dist2))
}

func (f *distField) Bounds() d3.Box { return f.bb }

func triangleNormal(a, b, c r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// fieldTriangle is one surface triangle as stored in the kd-tree, sorted
// by centroid. A fieldTriangle with only the centroid set acts as a query
// point. Distance caches the closest point and its feature so the sign
// can be recovered for the winning triangle.
type fieldTriangle struct {
	centroid    r3.Vec
	vi          [3]int
	faceN       r3.Vec // face pseudo-normal, scaled by 2*pi
	f           *distField
	lastFeature triFeature
	lastClosest r3.Vec
}

func (t *fieldTriangle) isPoint() bool { return t.f == nil }

func (t *fieldTriangle) vertex(j int) r3.Vec { return t.f.verts[t.vi[j]] }

func (t *fieldTriangle) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*fieldTriangle)
	switch d {
	case 0:
		return t.centroid.X - q.centroid.X
	case 1:
		return t.centroid.Y - q.centroid.Y
	case 2:
		return t.centroid.Z - q.centroid.Z
	}
	panic("unreachable")
}

func (t *fieldTriangle) Dims() int { return 3 }

func (t *fieldTriangle) Distance(c kdtree.Comparable) float64 {
	point := c.(*fieldTriangle)
	if t.isPoint() {
		if point.isPoint() {
			return r3.Norm2(r3.Sub(t.centroid, point.centroid))
		}
		point, t = t, point // make sure t is the triangle.
	}
	closest, feat := closestOnTriangle(point.centroid, t.vertex(0), t.vertex(1), t.vertex(2))
	t.lastFeature = feat
	t.lastClosest = closest
	return r3.Norm2(r3.Sub(point.centroid, closest))
}

// copySign gives dist the sign of the pseudo-normal test at the closest
// feature found by the last Distance call, which must have been for the
// same query point q.
func (t *fieldTriangle) copySign(q r3.Vec, dist float64) float64 {
	var signed float64
	switch {
	case t.lastFeature <= featV2:
		vi := t.vi[t.lastFeature]
		signed = r3.Dot(t.f.vertN[vi], r3.Sub(q, t.f.verts[vi]))
	case t.lastFeature <= featE2:
		j := int(t.lastFeature - featE0)
		key := edgeKey(t.vi[j], t.vi[(j+1)%3])
		signed = r3.Dot(t.f.edgeN[key], r3.Sub(q, t.lastClosest))
	default:
		signed = r3.Dot(t.faceN, r3.Sub(q, t.lastClosest))
	}
	return math.Copysign(dist, signed)
}

// triSet adapts the field's triangle slice to kdtree.Interface.
type triSet struct {
	f    *distField
	tris []fieldTriangle
}

func (s triSet) slice() []fieldTriangle {
	if s.tris != nil {
		return s.tris
	}
	return s.f.tris
}

func (s triSet) Index(i int) kdtree.Comparable { return &s.slice()[i] }
func (s triSet) Len() int                      { return len(s.slice()) }

func (s triSet) Pivot(d kdtree.Dim) int {
	p := triPlane{dim: int(d), tris: s.slice()}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (s triSet) Slice(start, end int) kdtree.Interface {
	return triSet{f: s.f, tris: s.slice()[start:end]}
}

func (s triSet) Bounds() *kdtree.Bounding {
	min := fieldTriangle{centroid: d3.Elem(math.MaxFloat64)}
	max := fieldTriangle{centroid: d3.Elem(-math.MaxFloat64)}
	for i := range s.slice() {
		c := s.slice()[i].centroid
		min.centroid = d3.MinElem(min.centroid, c)
		max.centroid = d3.MaxElem(max.centroid, c)
	}
	return &kdtree.Bounding{Min: &min, Max: &max}
}

type triPlane struct {
	dim  int
	tris []fieldTriangle
}

func (p triPlane) Less(i, j int) bool {
	return p.tris[i].Compare(&p.tris[j], kdtree.Dim(p.dim)) < 0
}
func (p triPlane) Swap(i, j int) { p.tris[i], p.tris[j] = p.tris[j], p.tris[i] }
func (p triPlane) Len() int      { return len(p.tris) }
func (p triPlane) Slice(start, end int) kdtree.SortSlicer {
	p.tris = p.tris[start:end]
	return p
}

type triFeature int

const (
	featV0 triFeature = iota
	featV1
	featV2
	featE0 // edge v0-v1
	featE1 // edge v1-v2
	featE2 // edge v2-v0
	featFace
)

// closestOnTriangle returns the point on triangle (a, b, c) closest to p
// and the feature (vertex, edge or face) it lies on. Barycentric region
// tests per Ericson, Real-Time Collision Detection §5.1.5.
func closestOnTriangle(p, a, b, c r3.Vec) (r3.Vec, triFeature) {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)
	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a, featV0
	}
	bp := r3.Sub(p, b)
	d3v := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3v >= 0 && d4 <= d3v {
		return b, featV1
	}
	vc := d1*d4 - d3v*d2
	if vc <= 0 && d1 >= 0 && d3v <= 0 {
		v := d1 / (d1 - d3v)
		return r3.Add(a, r3.Scale(v, ab)), featE0
	}
	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c, featV2
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(w, ac)), featE2
	}
	va := d3v*d6 - d5*d4
	if va <= 0 && d4-d3v >= 0 && d5-d6 >= 0 {
		w := (d4 - d3v) / ((d4 - d3v) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b))), featE1
	}
	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac))), featFace
}

// gradient estimates the spatial gradient of f at p by central
// differences with step h.
func gradient(p r3.Vec, h float64, f func(r3.Vec) float64) r3.Vec {
	dx := r3.Vec{X: h}
	dy := r3.Vec{Y: h}
	dz := r3.Vec{Z: h}
	return r3.Scale(1/(2*h), r3.Vec{
		X: f(r3.Add(p, dx)) - f(r3.Sub(p, dx)),
		Y: f(r3.Add(p, dy)) - f(r3.Sub(p, dy)),
		Z: f(r3.Add(p, dz)) - f(r3.Sub(p, dz)),
	})
}
