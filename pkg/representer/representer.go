// Package representer defines the abstract capability the model core
// consumes to lift application objects (meshes, images, ...) into flat
// sample vectors and back. Concrete representers (mesh/image/polydata
// adapters) are external collaborators; this package carries only the
// contract plus one reference implementation used to exercise the rest
// of the module.
package representer

import (
	"fmt"

	"github.com/go-pdm/statismo/pkg/domain"
	"github.com/go-pdm/statismo/pkg/statismoerr"
)

// Representer lifts application objects into sample vectors of length
// Dimensions()*NumberOfPoints() and back, and supplies the identifier
// and version used to gate persisted-model compatibility.
type Representer interface {
	// Identifier names the representer kind (e.g. "MeshRepresenter").
	Identifier() string
	// Version names the representer's on-disk format version.
	Version() string
	// Dimensions is the number of scalar values stored per point.
	Dimensions() int
	// NumberOfPoints is the number of points in the domain.
	NumberOfPoints() int
	// Domain returns the ordered point sequence.
	Domain() domain.Domain
	// PointToIndex maps a domain point to its 0-based position.
	PointToIndex(pt domain.Point) (int, error)
	// SampleToVector flattens an application object into a sample vector.
	SampleToVector(sample interface{}) ([]float64, error)
	// VectorToSample lifts a sample vector back into an application object.
	VectorToSample(v []float64) (interface{}, error)
}

// VectorRepresenter is a reference Representer whose "application
// object" is simply the sample vector itself and whose points are
// scalar coordinates (Dimensions()==1). It exists so the rest of this
// module and its tests have a concrete collaborator to drive against,
// the same role a mesh or image adapter plays outside this module.
type VectorRepresenter struct {
	numPoints int
	dom       domain.Domain
}

// NewVectorRepresenter builds a VectorRepresenter over numPoints scalar
// coordinates.
func NewVectorRepresenter(numPoints int) *VectorRepresenter {
	return &VectorRepresenter{numPoints: numPoints, dom: domain.NewDomain(numPoints)}
}

// Identifier implements Representer.
func (r *VectorRepresenter) Identifier() string { return "VectorRepresenter" }

// Version implements Representer.
func (r *VectorRepresenter) Version() string { return "1.0" }

// Dimensions implements Representer.
func (r *VectorRepresenter) Dimensions() int { return 1 }

// NumberOfPoints implements Representer.
func (r *VectorRepresenter) NumberOfPoints() int { return r.numPoints }

// Domain implements Representer.
func (r *VectorRepresenter) Domain() domain.Domain { return r.dom }

// PointToIndex implements Representer.
func (r *VectorRepresenter) PointToIndex(pt domain.Point) (int, error) {
	idx := int(pt)
	if idx < 0 || idx >= r.numPoints {
		return 0, statismoerr.NewOutOfRange(fmt.Sprintf("point %d out of range", idx), idx, r.numPoints)
	}
	return idx, nil
}

// SampleToVector implements Representer. sample must be a []float64 of
// length numPoints.
func (r *VectorRepresenter) SampleToVector(sample interface{}) ([]float64, error) {
	v, ok := sample.([]float64)
	if !ok {
		return nil, statismoerr.NewBadInput("VectorRepresenter.SampleToVector expects a []float64 sample")
	}
	if len(v) != r.numPoints {
		return nil, statismoerr.NewDimensionMismatch("sample length mismatch", r.numPoints, len(v))
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, nil
}

// VectorToSample implements Representer.
func (r *VectorRepresenter) VectorToSample(v []float64) (interface{}, error) {
	if len(v) != r.numPoints {
		return nil, statismoerr.NewDimensionMismatch("vector length mismatch", r.numPoints, len(v))
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, nil
}
