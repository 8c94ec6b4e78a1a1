package tetra

import "gonum.org/v1/gonum/spatial/r3"

// DefaultRepairAttempts bounds the orientation repair loop.
const DefaultRepairAttempts = 10

// The six index reorderings tried on invalid tetrahedra. A single swap
// does not fix every degenerate case (an exactly-zero-volume sliver may
// need a different remap), so attempts cycle through all of them.
var tetPermutations = [6][4]int{
	{0, 1, 2, 3}, // identity
	{1, 0, 2, 3}, // swap 0-1
	{0, 2, 1, 3}, // swap 1-2
	{0, 1, 3, 2}, // swap 2-3
	{2, 1, 0, 3}, // swap 0-2
	{1, 2, 0, 3}, // 3-cycle
}

// RepairOrientation fixes inverted and degenerate tetrahedra by permuting
// their vertex index order in place. Vertex positions are never modified.
// An element is valid iff its signed volume is strictly positive.
//
// Each attempt rescans all signed volumes. When every element is invalid
// a single consistent 0-1 swap is applied to the whole mesh, since a
// uniformly inverted mesh only needs one global flip. Otherwise the
// invalid elements get the attempt's permutation from the cycle above.
//
// The returned count is the number of elements still non-positive after
// maxAttempts; a non-zero residual is a diagnostic for the caller, not a
// failure. maxAttempts <= 0 means DefaultRepairAttempts.
func RepairOrientation(vertices []r3.Vec, tets [][4]int, maxAttempts int) (residual int) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRepairAttempts
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		invalid := invalidTets(vertices, tets)
		if len(invalid) == 0 {
			return 0
		}
		if len(invalid) == len(tets) {
			for i := range tets {
				tets[i][0], tets[i][1] = tets[i][1], tets[i][0]
			}
			continue
		}
		permuteTets(tets, invalid, tetPermutations[attempt%6])
	}
	return len(invalidTets(vertices, tets))
}

// invalidTets returns the indices of tetrahedra with volume <= 0.
func invalidTets(vertices []r3.Vec, tets [][4]int) []int {
	var invalid []int
	for i, v := range Volumes(vertices, tets) {
		if v <= 0 {
			invalid = append(invalid, i)
		}
	}
	return invalid
}

func permuteTets(tets [][4]int, which []int, perm [4]int) {
	for _, i := range which {
		t := tets[i]
		tets[i] = [4]int{t[perm[0]], t[perm[1]], t[perm[2]], t[perm[3]]}
	}
}
