package lattice

import (
	"fmt"
	"math"

	"github.com/tetralab/tetra/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Body-centered cubic lattice for isotropic tetrahedron generation.
// After Tetrahedral Mesh Generation for Deformable Bodies,
// Molino, Bridson, Fedkiw.

// Cell node slots: the 8 cube corners followed by the central node.
const (
	c000 = iota
	cx00
	cxy0
	c0y0
	c00z
	cx0z
	cxyz
	c0yz
	cctr // central node
	nCellNodes
)

// cornerShare lists, for every corner slot, the three face-adjacent
// cells sharing that corner and the slot it occupies there. Cells are
// meshed in raster order, so reading these is enough to deduplicate
// corner nodes across cells.
var cornerShare = [8][3]struct {
	di, dj, dk int
	slot       int
}{
	c000: {{-1, 0, 0, cx00}, {0, -1, 0, c0y0}, {0, 0, -1, c00z}},
	cx00: {{1, 0, 0, c000}, {0, -1, 0, cxy0}, {0, 0, -1, cx0z}},
	cxy0: {{1, 0, 0, c0y0}, {0, 1, 0, cx00}, {0, 0, -1, cxyz}},
	c0y0: {{-1, 0, 0, cxy0}, {0, 1, 0, c000}, {0, 0, -1, c0yz}},
	c00z: {{-1, 0, 0, cx0z}, {0, -1, 0, c0yz}, {0, 0, 1, c000}},
	cx0z: {{1, 0, 0, c00z}, {0, -1, 0, cxyz}, {0, 0, 1, cx00}},
	cxyz: {{1, 0, 0, c0yz}, {0, 1, 0, cx0z}, {0, 0, 1, cxy0}},
	c0yz: {{-1, 0, 0, cxyz}, {0, 1, 0, c00z}, {0, 0, 1, c0y0}},
}

type cell struct {
	pos r3.Vec // cell center
	nod [nCellNodes]int
}

type grid struct {
	cells []cell
	div   [3]int
	res   float64
}

// makeGrid covers box b with cubic cells of side res. Fewer than 3 cells
// on any axis cannot produce a useful volume and is rejected.
func makeGrid(b d3.Box, res float64) (*grid, error) {
	sz := b.Size()
	div := [3]int{
		int(math.Ceil(sz.X / res)),
		int(math.Ceil(sz.Y / res)),
		int(math.Ceil(sz.Z / res)),
	}
	if div[0] < 3 || div[1] < 3 || div[2] < 3 {
		return nil, fmt.Errorf("lattice: element size %g too coarse for bounds %v (%dx%dx%d cells)", res, sz, div[0], div[1], div[2])
	}
	g := &grid{cells: make([]cell, div[0]*div[1]*div[2]), div: div, res: res}
	for i := 0; i < div[0]; i++ {
		x := (float64(i)+0.5)*res + b.Min.X
		for j := 0; j < div[1]; j++ {
			y := (float64(j)+0.5)*res + b.Min.Y
			for k := 0; k < div[2]; k++ {
				z := (float64(k)+0.5)*res + b.Min.Z
				c := g.at(i, j, k)
				c.pos = r3.Vec{X: x, Y: y, Z: z}
				for n := range c.nod {
					c.nod[n] = -1
				}
			}
		}
	}
	return g, nil
}

func (g *grid) at(i, j, k int) *cell {
	if i < 0 || j < 0 || k < 0 || i >= g.div[0] || j >= g.div[1] || k >= g.div[2] {
		return nil
	}
	return &g.cells[i*g.div[1]*g.div[2]+j*g.div[2]+k]
}

// sharedCorner returns the node id a face-adjacent cell already assigned
// to corner slot of cell (i, j, k), or -1.
func (g *grid) sharedCorner(i, j, k, slot int) int {
	id := -1
	for _, s := range cornerShare[slot] {
		n := g.at(i+s.di, j+s.dj, k+s.dk)
		if n == nil {
			continue
		}
		if v := n.nod[s.slot]; v >= 0 {
			if id >= 0 && v != id {
				panic("lattice: inconsistent corner assignment")
			}
			id = v
		}
	}
	return id
}

// mesh assigns node ids across the lattice and emits the BCC tetrahedra.
func (g *grid) mesh() (nodes []r3.Vec, tets [][4]int) {
	tets = make([][4]int, 0, len(g.cells))
	half := 0.5 * g.res
	for i := 0; i < g.div[0]; i++ {
		for j := 0; j < g.div[1]; j++ {
			for k := 0; k < g.div[2]; k++ {
				c := g.at(i, j, k)
				c.nod[cctr] = len(nodes)
				nodes = append(nodes, c.pos)
				corners := cellCorners(c.pos, half)
				for slot := 0; slot < 8; slot++ {
					if id := g.sharedCorner(i, j, k, slot); id >= 0 {
						c.nod[slot] = id
						continue
					}
					c.nod[slot] = len(nodes)
					nodes = append(nodes, corners[slot])
				}
				tets = append(tets, g.cellTets(i, j, k)...)
			}
		}
	}
	return nodes, tets
}

func cellCorners(center r3.Vec, half float64) [8]r3.Vec {
	min := r3.Sub(center, d3.Elem(half))
	max := r3.Add(center, d3.Elem(half))
	return [8]r3.Vec{
		c000: min,
		cx00: {X: max.X, Y: min.Y, Z: min.Z},
		cxy0: {X: max.X, Y: max.Y, Z: min.Z},
		c0y0: {X: min.X, Y: max.Y, Z: min.Z},
		c00z: {X: min.X, Y: min.Y, Z: max.Z},
		cx0z: {X: max.X, Y: min.Y, Z: max.Z},
		cxyz: max,
		c0yz: {X: min.X, Y: max.Y, Z: max.Z},
	}
}

// cellTets joins the cell center to each already-meshed minor-side
// neighbor center through the four corners of the shared face, giving
// the isotropic BCC connectivity.
func (g *grid) cellTets(i, j, k int) (tets [][4]int) {
	c := g.at(i, j, k)
	ctr := c.nod[cctr]
	if zm := g.at(i, j, k-1); zm != nil && zm.nod[cctr] >= 0 {
		zc := zm.nod[cctr]
		tets = append(tets,
			[4]int{ctr, c.nod[c000], c.nod[cx00], zc},
			[4]int{ctr, c.nod[cx00], c.nod[cxy0], zc},
			[4]int{ctr, c.nod[cxy0], c.nod[c0y0], zc},
			[4]int{ctr, c.nod[c0y0], c.nod[c000], zc},
		)
	}
	if ym := g.at(i, j-1, k); ym != nil && ym.nod[cctr] >= 0 {
		yc := ym.nod[cctr]
		tets = append(tets,
			[4]int{ctr, c.nod[cx00], c.nod[c000], yc},
			[4]int{ctr, c.nod[cx0z], c.nod[cx00], yc},
			[4]int{ctr, c.nod[c00z], c.nod[cx0z], yc},
			[4]int{ctr, c.nod[c000], c.nod[c00z], yc},
		)
	}
	if xm := g.at(i-1, j, k); xm != nil && xm.nod[cctr] >= 0 {
		xc := xm.nod[cctr]
		tets = append(tets,
			[4]int{ctr, c.nod[c000], c.nod[c0y0], xc},
			[4]int{ctr, c.nod[c00z], c.nod[c000], xc},
			[4]int{ctr, c.nod[c0yz], c.nod[c00z], xc},
			[4]int{ctr, c.nod[c0y0], c.nod[c0yz], xc},
		)
	}
	return tets
}
