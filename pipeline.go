package tetra

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Oracle algorithm identifiers recognized by gmsh-style meshers.
const (
	AlgorithmDelaunay = 1
	AlgorithmMMG3D    = 7
)

// DefaultOptimizeIterations is the reference number of post-generation
// optimization passes when optimization is wanted.
const DefaultOptimizeIterations = 3

// MeshRequest is the narrow request handed to an oracle session.
type MeshRequest struct {
	Surface SurfaceMesh
	Sizing  SizingSpec
	// VertexSizes carries the per-vertex target size when the density
	// field was computed in local mode, one entry per surface vertex.
	// Nil for global fields.
	VertexSizes []float64
	// Algorithm selects the oracle's volume meshing algorithm.
	Algorithm int
	// OptimizeIterations is the number of mesh optimization passes the
	// oracle should run after generation. Zero disables optimization.
	OptimizeIterations int
}

// OracleSession is one acquired session of an external volumetric mesher.
// Sessions hold oracle-native resources; Close must be called on every
// exit path.
type OracleSession interface {
	Tetrahedralize(req MeshRequest) (VolumeMesh, error)
	Close() error
}

// Oracle generates tetrahedral volume meshes from closed surfaces. It is
// a black-box collaborator: this package specifies its request/response
// contract and nothing about its internals.
type Oracle interface {
	Acquire() (OracleSession, error)
}

// OracleError reports a failed oracle invocation with enough context to
// diagnose it. It wraps the oracle's own error.
type OracleError struct {
	// Stage is "acquire" or "tetrahedralize".
	Stage            string
	SurfaceVertices  int
	SurfaceTriangles int
	Err              error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("tetra: oracle %s failed (surface: %d vertices, %d triangles): %v",
		e.Stage, e.SurfaceVertices, e.SurfaceTriangles, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// Result is the output of one pipeline run, transferred by value to the
// physics-engine collaborator once the caller accepts it.
type Result struct {
	Mesh    VolumeMesh
	Stats   MeshStats
	Density DensityField
	Sizing  SizingSpec
	// Residual is the number of elements still non-positive after
	// bounded repair. Non-zero residuals are returned as data so the
	// caller can reject or accept against its own quality threshold.
	Residual int
}

// Pipeline converts surfaces into validated volume meshes. Each Generate
// call owns its intermediates; no state persists across runs. The
// pipeline is synchronous, each stage blocks until complete.
type Pipeline struct {
	// Oracle performs the volumetric meshing. Required.
	Oracle Oracle
	// Analyzer computes the density field. The zero value is usable.
	Analyzer Analyzer
	Density  DensityOptions
	Sizing   SizingParms
	// Algorithm is the oracle algorithm id. Zero means AlgorithmDelaunay.
	Algorithm int
	// OptimizeIterations requests oracle optimization passes.
	OptimizeIterations int
	// RepairAttempts bounds orientation repair. Zero means
	// DefaultRepairAttempts.
	RepairAttempts int
	// Log receives run diagnostics. Nil means the logrus standard logger.
	Log logrus.FieldLogger
}

// Generate runs the full pipeline on one surface: density analysis,
// sizing policy, oracle invocation, orientation repair and validation.
//
// Structural failures (ErrEmptyGeometry, *OracleError, ErrNoVolume,
// ErrMalformedMesh, ErrInvalidConfiguration) abort the run. Residual
// invalid elements after repair do not: they are reported on the Result.
func (p *Pipeline) Generate(surface SurfaceMesh) (*Result, error) {
	if p.Oracle == nil {
		return nil, errors.New("tetra: pipeline has no oracle")
	}
	log := p.logger()

	analyzer := p.Analyzer
	if analyzer.Log == nil {
		analyzer.Log = log
	}
	field, err := analyzer.Analyze(surface, p.Density)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"mode":     field.Mode.String(),
		"degraded": field.Degraded,
		"avg_size": field.AvgSize,
	}).Info("density analysis complete")

	spec, err := BuildSizing(field, p.Sizing)
	if err != nil {
		return nil, err
	}

	mesh, err := p.invokeOracle(surface, spec, field.Sizes, log)
	if err != nil {
		return nil, err
	}

	residual := RepairOrientation(mesh.Vertices, mesh.Tets, p.RepairAttempts)
	if residual > 0 {
		log.WithField("residual", residual).Warn("inverted tetrahedra remain after repair")
	}

	stats, err := Validate(mesh)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"vertices":    stats.VertexCount,
		"tets":        stats.TetCount,
		"avg_quality": stats.AvgQuality,
	}).Info("volume mesh generated")

	return &Result{
		Mesh:     mesh,
		Stats:    stats,
		Density:  field,
		Sizing:   spec,
		Residual: residual,
	}, nil
}

// invokeOracle runs one scoped oracle session. The session is released on
// every exit path.
func (p *Pipeline) invokeOracle(surface SurfaceMesh, spec SizingSpec, vertexSizes []float64, log logrus.FieldLogger) (VolumeMesh, error) {
	algorithm := p.Algorithm
	if algorithm == 0 {
		algorithm = AlgorithmDelaunay
	}
	session, err := p.Oracle.Acquire()
	if err != nil {
		return VolumeMesh{}, &OracleError{
			Stage:            "acquire",
			SurfaceVertices:  len(surface.Vertices),
			SurfaceTriangles: len(surface.Triangles),
			Err:              err,
		}
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.WithError(cerr).Warn("oracle session close failed")
		}
	}()

	mesh, err := session.Tetrahedralize(MeshRequest{
		Surface:            surface,
		Sizing:             spec,
		VertexSizes:        vertexSizes,
		Algorithm:          algorithm,
		OptimizeIterations: p.OptimizeIterations,
	})
	if err != nil {
		return VolumeMesh{}, &OracleError{
			Stage:            "tetrahedralize",
			SurfaceVertices:  len(surface.Vertices),
			SurfaceTriangles: len(surface.Triangles),
			Err:              err,
		}
	}
	if len(mesh.Tets) == 0 {
		return VolumeMesh{}, fmt.Errorf("%w (surface: %d vertices, %d triangles)",
			ErrNoVolume, len(surface.Vertices), len(surface.Triangles))
	}
	return mesh, nil
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Log != nil {
		return p.Log
	}
	return logrus.StandardLogger()
}
