package model

import (
	"math"

	"github.com/go-pdm/statismo/internal/linalg"
	"github.com/go-pdm/statismo/pkg/representer"
	"github.com/go-pdm/statismo/pkg/statismoerr"
)

// Record is the logical model record that forms the boundary an
// external I/O layer (HDF5 persistence, etc.) consumes and produces.
// This module performs no I/O itself; Record exists purely as the
// serialization-ready shape (scaled PCABasis, not the orthonormal one,
// matching the persisted schema).
type Record struct {
	RepresenterName    string
	RepresenterVersion string
	Mean               []float64
	PCABasis           [][]float64 // p x k, scaled by sqrt(sigma2)
	PCAVariance        []float64
	NoiseVariance      float64
	Info               ModelInfo
}

// ToRecord converts a StatisticalModel into its logical record form.
func (m *StatisticalModel) ToRecord() Record {
	return Record{
		RepresenterName:    m.rep.Identifier(),
		RepresenterVersion: m.rep.Version(),
		Mean:               m.GetMeanVector(),
		PCABasis:           linalg.RowsFromDense(m.GetPCABasisMatrix()),
		PCAVariance:        m.GetPCAVarianceVector(),
		NoiseVariance:      m.noiseVar,
		Info:               m.info,
	}
}

// NewStatisticalModelFromRecord rebuilds a StatisticalModel from a
// logical record and the representer it was built against. The caller
// is responsible for having already checked RepresenterVersion
// compatibility; version mismatches are an I/O-layer concern, not
// something this constructor can detect.
func NewStatisticalModelFromRecord(rep representer.Representer, r Record) (*StatisticalModel, error) {
	if len(r.PCAVariance) == 0 {
		basis := linalg.DenseFromRows(r.PCABasis)
		return New(rep, r.Mean, basis, nil, r.NoiseVariance, r.Info)
	}
	scaledBasis := linalg.DenseFromRows(r.PCABasis)
	invSqrt := make([]float64, len(r.PCAVariance))
	for i, v := range r.PCAVariance {
		if v <= 0 {
			return nil, statismoerr.NewInvalidData("persisted PCA variance must be strictly positive")
		}
		invSqrt[i] = 1.0 / math.Sqrt(v)
	}
	orthonormal := linalg.ScaleColumns(scaledBasis, invSqrt)
	return New(rep, r.Mean, orthonormal, r.PCAVariance, r.NoiseVariance, r.Info)
}
