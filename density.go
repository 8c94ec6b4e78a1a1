package tetra

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// DensityMode selects how the target element size is derived from the
// surface triangulation.
type DensityMode int

const (
	// DensityGlobal derives a single size from all triangle edge lengths.
	DensityGlobal DensityMode = iota
	// DensityLocal derives one size per surface vertex, smoothed over
	// spatial neighbors.
	DensityLocal
)

func (m DensityMode) String() string {
	if m == DensityLocal {
		return "local"
	}
	return "global"
}

const (
	// DefaultBlurRadius controls the Gaussian smoothing neighborhood in
	// local mode. The neighbor count per query is 5x this value.
	DefaultBlurRadius = 3
	// DefaultClampRatio bounds local sizes to [avg/ratio, avg*ratio].
	DefaultClampRatio = 3.0

	// Local size assigned to a vertex no triangle edge touches.
	isolatedVertexSize = 0.1
)

// DensityOptions configures Analyzer.Analyze. The zero value requests
// global mode with defaults; see DefaultDensityOptions.
type DensityOptions struct {
	Mode DensityMode
	// BlurRadius is the Gaussian smoothing radius for local mode, in
	// units of 5 nearest neighbors. Non-positive means DefaultBlurRadius.
	BlurRadius int
	// RemoveOutliers clips raw per-vertex sizes to the Tukey fences
	// (1.5 IQR) before smoothing.
	RemoveOutliers bool
	// ClampRatio bounds final local sizes relative to their mean.
	// Non-positive means DefaultClampRatio.
	ClampRatio float64
}

// DefaultDensityOptions returns the options used by the original tuning:
// local mode off, outlier suppression on, blur radius 3, clamp ratio 3.
func DefaultDensityOptions() DensityOptions {
	return DensityOptions{
		Mode:           DensityGlobal,
		BlurRadius:     DefaultBlurRadius,
		RemoveOutliers: true,
		ClampRatio:     DefaultClampRatio,
	}
}

// DensityField is the spatially varying target element size derived from
// a surface mesh, with aggregate statistics over the size distribution.
type DensityField struct {
	// Mode is the mode actually used, which differs from the requested
	// mode when the spatial index capability is unavailable.
	Mode DensityMode
	// Degraded is true when local mode was requested but the analyzer
	// fell back to global mode.
	Degraded bool
	// Sizes holds one target size per surface vertex in local mode.
	// Nil in global mode.
	Sizes []float64

	AvgSize    float64
	MinSize    float64
	MaxSize    float64
	MedianSize float64
	StdSize    float64
	// SizeRangeRatio is MaxSize/MinSize. Local mode only.
	SizeRangeRatio float64
}

// Analyzer computes density fields from surface geometry. The zero value
// is ready to use and builds kd-tree indices via NewKDIndex.
type Analyzer struct {
	// Log receives informational messages such as mode downgrades.
	// Nil means the logrus standard logger.
	Log logrus.FieldLogger
	// NewIndex builds the nearest-neighbor index required by local mode.
	// Nil means NewKDIndex. A constructor error downgrades the run to
	// global mode rather than failing it.
	NewIndex func(pts []r3.Vec) (NearestIndex, error)
}

// Analyze derives a density field from the surface triangulation.
// A surface with no triangles fails with ErrEmptyGeometry.
func (a Analyzer) Analyze(m SurfaceMesh, opts DensityOptions) (DensityField, error) {
	if len(m.Triangles) == 0 {
		return DensityField{}, fmt.Errorf("%w (%d vertices)", ErrEmptyGeometry, len(m.Vertices))
	}
	if opts.BlurRadius <= 0 {
		opts.BlurRadius = DefaultBlurRadius
	}
	if opts.ClampRatio <= 0 {
		opts.ClampRatio = DefaultClampRatio
	}
	if opts.Mode == DensityLocal {
		index, err := a.buildIndex(m.Vertices)
		if err != nil {
			a.logger().WithError(err).Info("spatial index unavailable, using global density")
			field := analyzeGlobal(m)
			field.Degraded = true
			return field, nil
		}
		return analyzeLocal(m, index, opts), nil
	}
	return analyzeGlobal(m), nil
}

func (a Analyzer) buildIndex(pts []r3.Vec) (NearestIndex, error) {
	newIndex := a.NewIndex
	if newIndex == nil {
		newIndex = NewKDIndex
	}
	return newIndex(pts)
}

func (a Analyzer) logger() logrus.FieldLogger {
	if a.Log != nil {
		return a.Log
	}
	return logrus.StandardLogger()
}

// analyzeGlobal computes statistics over the multiset of triangle edge
// lengths. Shared edges are counted once per incident triangle, which
// weights the estimate by local triangle density.
func analyzeGlobal(m SurfaceMesh) DensityField {
	lengths := make([]float64, 0, 3*len(m.Triangles))
	for i := range m.Triangles {
		v0, v1, v2 := m.Triangle(i)
		lengths = append(lengths,
			r3.Norm(r3.Sub(v1, v0)),
			r3.Norm(r3.Sub(v2, v1)),
			r3.Norm(r3.Sub(v0, v2)),
		)
	}
	field := DensityField{Mode: DensityGlobal}
	field.AvgSize, field.MinSize, field.MaxSize, field.MedianSize, field.StdSize = sizeStats(lengths)
	return field
}

func analyzeLocal(m SurfaceMesh, index NearestIndex, opts DensityOptions) DensityField {
	raw := localEdgeSizes(m)
	if opts.RemoveOutliers {
		clipOutliers(raw)
	}
	sizes := gaussianBlur(m.Vertices, raw, index, opts.BlurRadius)

	// Final range clamp about the post-smoothing mean. The reported
	// AvgSize is this clamp center so callers can rely on every size
	// lying within [AvgSize/ClampRatio, AvgSize*ClampRatio].
	avg := stat.Mean(sizes, nil)
	lo, hi := avg/opts.ClampRatio, avg*opts.ClampRatio
	for i, s := range sizes {
		sizes[i] = clamp(s, lo, hi)
	}

	field := DensityField{Mode: DensityLocal, Sizes: sizes}
	_, field.MinSize, field.MaxSize, field.MedianSize, field.StdSize = sizeStats(sizes)
	field.AvgSize = avg
	field.SizeRangeRatio = field.MaxSize / field.MinSize
	return field
}

// localEdgeSizes returns the mean length of the incident triangle edges
// touching each vertex. Vertices with no incident edges get a fixed
// deterministic default.
func localEdgeSizes(m SurfaceMesh) []float64 {
	sum := make([]float64, len(m.Vertices))
	count := make([]int, len(m.Vertices))
	for i, tri := range m.Triangles {
		v0, v1, v2 := m.Triangle(i)
		e0 := r3.Norm(r3.Sub(v1, v0))
		e1 := r3.Norm(r3.Sub(v2, v1))
		e2 := r3.Norm(r3.Sub(v0, v2))
		sum[tri[0]] += e0 + e2
		sum[tri[1]] += e0 + e1
		sum[tri[2]] += e1 + e2
		count[tri[0]] += 2
		count[tri[1]] += 2
		count[tri[2]] += 2
	}
	sizes := make([]float64, len(m.Vertices))
	for i := range sizes {
		if count[i] == 0 {
			sizes[i] = isolatedVertexSize
			continue
		}
		sizes[i] = sum[i] / float64(count[i])
	}
	return sizes
}

// clipOutliers clips sizes in place to the Tukey fences
// [max(q1-1.5*iqr, min), min(q3+1.5*iqr, max)].
func clipOutliers(sizes []float64) {
	sorted := make([]float64, len(sizes))
	copy(sorted, sizes)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	iqr := q3 - q1
	lo := math.Max(q1-1.5*iqr, sorted[0])
	hi := math.Min(q3+1.5*iqr, sorted[len(sorted)-1])
	for i, s := range sizes {
		sizes[i] = clamp(s, lo, hi)
	}
}

// gaussianBlur smooths raw per-vertex sizes over each vertex's
// blurRadius*5 nearest neighbors. The kernel width per vertex is the
// median neighbor distance, self excluded. Queries are independent; raw
// is only read.
func gaussianBlur(pts []r3.Vec, raw []float64, index NearestIndex, blurRadius int) []float64 {
	k := blurRadius * 5
	if k > len(pts) {
		k = len(pts)
	}
	smoothed := make([]float64, len(pts))
	for i, p := range pts {
		idx, dist := index.Nearest(p, k)
		if len(idx) < 2 {
			smoothed[i] = raw[i]
			continue
		}
		sigma := medianSorted(dist[1:]) // dist[0] is the vertex itself.
		if sigma < 1e-10 {
			smoothed[i] = raw[i]
			continue
		}
		var wsum, acc float64
		for j, d := range dist {
			w := math.Exp(-(d * d) / (2 * sigma * sigma))
			wsum += w
			acc += w * raw[idx[j]]
		}
		smoothed[i] = acc / wsum
	}
	return smoothed
}

func sizeStats(sizes []float64) (avg, min, max, median, std float64) {
	sorted := make([]float64, len(sizes))
	copy(sorted, sizes)
	sort.Float64s(sorted)
	avg = stat.Mean(sizes, nil)
	min = floats.Min(sizes)
	max = floats.Max(sizes)
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	std = stat.PopStdDev(sizes, nil)
	return avg, min, max, median, std
}

func medianSorted(sorted []float64) float64 {
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
