package tetra

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// NearestIndex answers k-nearest-neighbor queries over an immutable point
// set. Queries are independent and safe for concurrent use.
type NearestIndex interface {
	// Nearest returns the indices of the k points nearest to q and their
	// Euclidean distances, both sorted by increasing distance. Fewer than
	// k results are returned when the set is smaller than k.
	Nearest(q r3.Vec, k int) (idx []int, dist []float64)
}

// NewKDIndex builds the default kd-tree backed NearestIndex.
func NewKDIndex(pts []r3.Vec) (NearestIndex, error) {
	if len(pts) == 0 {
		return nil, errors.New("tetra: empty point set")
	}
	vp := make(vpoints, len(pts))
	for i, p := range pts {
		vp[i] = vpoint{Vec: p, id: i}
	}
	return &kdIndex{tree: kdtree.New(vp, false)}, nil
}

type kdIndex struct {
	tree *kdtree.Tree
}

func (x *kdIndex) Nearest(q r3.Vec, k int) ([]int, []float64) {
	if k < 1 {
		return nil, nil
	}
	keep := kdtree.NewNKeeper(k)
	x.tree.NearestSet(keep, vpoint{Vec: q, id: -1})
	idx := make([]int, 0, k)
	dist := make([]float64, 0, k)
	for _, cd := range keep.Heap {
		if cd.Comparable == nil || math.IsInf(cd.Dist, 1) {
			continue
		}
		idx = append(idx, cd.Comparable.(vpoint).id)
		dist = append(dist, math.Sqrt(cd.Dist))
	}
	// The keeper is a max-heap; put results in increasing distance order.
	sort.Sort(byDistance{idx: idx, dist: dist})
	return idx, dist
}

type byDistance struct {
	idx  []int
	dist []float64
}

func (s byDistance) Len() int           { return len(s.idx) }
func (s byDistance) Less(i, j int) bool { return s.dist[i] < s.dist[j] }
func (s byDistance) Swap(i, j int) {
	s.idx[i], s.idx[j] = s.idx[j], s.idx[i]
	s.dist[i], s.dist[j] = s.dist[j], s.dist[i]
}

type vpoint struct {
	r3.Vec
	id int
}

func (p vpoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vpoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	}
	panic("unreachable")
}

func (p vpoint) Dims() int { return 3 }

func (p vpoint) Distance(c kdtree.Comparable) float64 {
	q := c.(vpoint)
	return r3.Norm2(r3.Sub(p.Vec, q.Vec))
}

type vpoints []vpoint

func (v vpoints) Index(i int) kdtree.Comparable { return v[i] }

func (v vpoints) Len() int { return len(v) }

func (v vpoints) Pivot(d kdtree.Dim) int {
	p := pointPlane{dim: int(d), points: v}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (v vpoints) Slice(start, end int) kdtree.Interface { return v[start:end] }

type pointPlane struct {
	dim    int
	points vpoints
}

func (p pointPlane) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], kdtree.Dim(p.dim)) < 0
}
func (p pointPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p pointPlane) Len() int { return len(p.points) }
func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
