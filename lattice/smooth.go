package lattice

import "gonum.org/v1/gonum/spatial/r3"

// nodeMesh carries per-node connectivity for the smoothing passes.
type nodeMesh struct {
	pos  []r3.Vec
	tets [][4]int
	// neighbors holds the unique incident node ids per node. Empty for
	// lattice nodes no kept tetrahedron references.
	neighbors [][]int
}

func newNodeMesh(pos []r3.Vec, tets [][4]int) *nodeMesh {
	m := &nodeMesh{
		pos:       pos,
		tets:      tets,
		neighbors: make([][]int, len(pos)),
	}
	for _, tet := range tets {
		for i, n := range tet {
			for j := 1; j < 4; j++ {
				m.addNeighbor(n, tet[(i+j)%4])
			}
		}
	}
	return m
}

func (m *nodeMesh) addNeighbor(n, c int) {
	for _, existing := range m.neighbors[n] {
		if existing == c {
			return
		}
	}
	m.neighbors[n] = append(m.neighbors[n], c)
}

// compressAndSmooth pulls nodes outside the surface onto it by compress
// times their signed distance, then Laplacian-smooths the interior
// nodes. Called with compress ramping to 1 over the optimization passes.
func (m *nodeMesh) compressAndSmooth(compress float64, f *distField) {
	boundary := make([]bool, len(m.pos))
	for i, p := range m.pos {
		if len(m.neighbors[i]) == 0 {
			continue
		}
		d := f.Evaluate(p)
		if d > 0 {
			boundary[i] = true
			step := r3.Scale(compress*d, r3.Unit(gradient(p, 1e-6, f.Evaluate)))
			m.pos[i] = r3.Sub(p, step)
		}
	}
	for i := range m.pos {
		if boundary[i] || len(m.neighbors[i]) == 0 {
			continue
		}
		var sum r3.Vec
		for _, c := range m.neighbors[i] {
			sum = r3.Add(sum, m.pos[c])
		}
		m.pos[i] = r3.Scale(1/float64(len(m.neighbors[i])), sum)
	}
}

// compact renumbers nodes so only those referenced by a tetrahedron
// remain, preserving order.
func (m *nodeMesh) compact() (nodes []r3.Vec, tets [][4]int) {
	remap := make([]int, len(m.pos))
	for i := range remap {
		remap[i] = -1
	}
	for _, tet := range m.tets {
		for _, n := range tet {
			if remap[n] < 0 {
				remap[n] = len(nodes)
				nodes = append(nodes, m.pos[n])
			}
		}
	}
	tets = make([][4]int, len(m.tets))
	for i, tet := range m.tets {
		tets[i] = [4]int{remap[tet[0]], remap[tet[1]], remap[tet[2]], remap[tet[3]]}
	}
	return nodes, tets
}
