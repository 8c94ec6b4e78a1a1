package tetra

import "fmt"

// SizingKind discriminates the sizing specifications understood by mesh
// oracles.
type SizingKind int

const (
	// SizingUniform requests a single target element size everywhere.
	SizingUniform SizingKind = iota
	// SizingBoundaryLayer requests a thin fine zone near the surface
	// graded into a coarse interior core.
	SizingBoundaryLayer
)

// Default sizing parameters, matching the reference tuning.
const (
	DefaultBoundaryMultiplier = 1.0
	DefaultCoreMultiplier     = 8.0
	DefaultBoundaryThickness  = 0.3
)

// SizingSpec is the policy-level sizing description consumed by a mesh
// oracle. For boundary-layer specs the element size is held at
// BoundarySize within TransitionMin distance of the surface, graded
// linearly to CoreSize by TransitionMax, and held at CoreSize beyond.
// Oracles typically map this onto a distance/threshold field.
type SizingSpec struct {
	Kind SizingKind
	// Size is the uniform target element size. SizingUniform only.
	Size float64
	// BoundarySize and CoreSize are the near-surface and interior target
	// sizes, BoundarySize <= CoreSize. SizingBoundaryLayer only.
	BoundarySize  float64
	CoreSize      float64
	TransitionMin float64
	TransitionMax float64
}

// SizingParms configures BuildSizing. See DefaultSizingParms.
type SizingParms struct {
	// BoundaryLayer enables the two-zone specification.
	BoundaryLayer bool
	// BoundaryMultiplier scales the average surface size into the
	// boundary-layer size. Non-positive means DefaultBoundaryMultiplier.
	BoundaryMultiplier float64
	// CoreMultiplier scales the average surface size into the interior
	// core size. Non-positive means DefaultCoreMultiplier.
	CoreMultiplier float64
	// Thickness is the boundary-layer thickness. The grading band ends
	// at 1.5x this distance.
	Thickness float64
}

// DefaultSizingParms returns the reference tuning: boundary layer on,
// boundary at the surface average, core 8x coarser, thickness 0.3.
func DefaultSizingParms() SizingParms {
	return SizingParms{
		BoundaryLayer:      true,
		BoundaryMultiplier: DefaultBoundaryMultiplier,
		CoreMultiplier:     DefaultCoreMultiplier,
		Thickness:          DefaultBoundaryThickness,
	}
}

// BuildSizing turns a density field into a sizing specification.
//
// With the boundary layer disabled the spec is uniform: the core-scaled
// average for global fields, the plain average for local fields whose
// per-vertex sizes already carry the detail. With it enabled the average
// is split into boundary and core sizes by the two multipliers.
//
// Contradictory parameters (boundary size above core size, non-positive
// thickness) fail with ErrInvalidConfiguration rather than producing a
// visibly wrong mesh.
func BuildSizing(field DensityField, p SizingParms) (SizingSpec, error) {
	if p.BoundaryMultiplier <= 0 {
		p.BoundaryMultiplier = DefaultBoundaryMultiplier
	}
	if p.CoreMultiplier <= 0 {
		p.CoreMultiplier = DefaultCoreMultiplier
	}
	if !p.BoundaryLayer {
		size := field.AvgSize
		if field.Mode == DensityGlobal {
			size *= p.CoreMultiplier
		}
		return SizingSpec{Kind: SizingUniform, Size: size}, nil
	}
	if p.Thickness <= 0 {
		return SizingSpec{}, fmt.Errorf("%w: boundary layer thickness %g must be positive", ErrInvalidConfiguration, p.Thickness)
	}
	bl := field.AvgSize * p.BoundaryMultiplier
	core := field.AvgSize * p.CoreMultiplier
	if bl > core {
		return SizingSpec{}, fmt.Errorf("%w: boundary size %g exceeds core size %g", ErrInvalidConfiguration, bl, core)
	}
	return SizingSpec{
		Kind:          SizingBoundaryLayer,
		BoundarySize:  bl,
		CoreSize:      core,
		TransitionMin: p.Thickness,
		TransitionMax: p.Thickness * 1.5,
	}, nil
}
