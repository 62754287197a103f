package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/go-pdm/statismo/pkg/domain"
	"github.com/go-pdm/statismo/pkg/statismoerr"
)

// PointCovarianceConstraint binds a domain point to an observed value
// with its own d x d observation covariance, the general shape both
// ComputeCoefficientsForPointCovariances and PosteriorModelBuilder
// condition on.
type PointCovarianceConstraint struct {
	Point      domain.Point
	Value      []float64
	Covariance *mat.Dense // d x d, SPD
}

// TrivialUniform maps a list of uniform-noise (point, value)
// constraints to the general per-point shape, each given an isotropic
// observation covariance sigma2Obs*I.
func TrivialUniform(constraints []PointValueConstraint, sigma2Obs float64) []PointCovarianceConstraint {
	out := make([]PointCovarianceConstraint, len(constraints))
	for i, c := range constraints {
		d := len(c.Value)
		cov := mat.NewDense(d, d, nil)
		for j := 0; j < d; j++ {
			cov.Set(j, j, sigma2Obs)
		}
		out[i] = PointCovarianceConstraint{Point: c.Point, Value: c.Value, Covariance: cov}
	}
	return out
}

// SolveMAPCoefficients is the general closed-form MAP coefficient
// solve that both ComputeCoefficientsForPointCovariances and
// PosteriorModelBuilder.BuildNewModel reduce to. Given a row-selected,
// generally non-orthonormal observation basis Us, the per-component
// shortcut valid for the full orthonormal U no longer applies; instead
// it solves the k x k system
//
//	W    = (diag(1/sigma2) + Us^T * SigmaObs^-1 * Us)^-1
//	alpha* = W * Us^T * SigmaObs^-1 * r
//
// and returns both alpha* and W, since posterior covariance
// propagation needs W beyond the coefficient estimate itself.
func (m *StatisticalModel) SolveMAPCoefficients(constraints []PointCovarianceConstraint) (alphaStar *mat.VecDense, w *mat.Dense, err error) {
	k := len(m.variance)
	if k == 0 {
		return nil, nil, statismoerr.NewBadInput("model has zero principal components")
	}

	pointConstraints := make([]PointValueConstraint, len(constraints))
	for i, c := range constraints {
		pointConstraints[i] = PointValueConstraint{Point: c.Point, Value: c.Value}
	}
	us, muSel, yVals, err := m.SelectConstraintRows(pointConstraints)
	if err != nil {
		return nil, nil, err
	}

	obs := len(yVals)
	r := make([]float64, obs)
	copy(r, yVals)
	floats.Sub(r, muSel)

	sigmaObsInv, err := blockDiagInverse(constraints)
	if err != nil {
		return nil, nil, err
	}

	var sigmaObsInvUs mat.Dense
	sigmaObsInvUs.Mul(sigmaObsInv, us) // obs x k

	var usTSigmaInvUs mat.Dense
	usTSigmaInvUs.Mul(us.T(), &sigmaObsInvUs) // k x k

	wInvData := make([]float64, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			wInvData[i*k+j] = usTSigmaInvUs.At(i, j)
		}
		wInvData[i*k+i] += 1.0 / m.variance[i]
	}
	wInv := mat.NewDense(k, k, wInvData)

	var wDense mat.Dense
	if err := wDense.Inverse(wInv); err != nil {
		return nil, nil, statismoerr.NewInternal("coefficient-space precision matrix is singular", err)
	}

	rv := mat.NewVecDense(obs, r)
	var sigmaInvR mat.VecDense
	sigmaInvR.MulVec(sigmaObsInv, rv)
	var usTSigmaInvR mat.VecDense
	usTSigmaInvR.MulVec(us.T(), &sigmaInvR)
	var alpha mat.VecDense
	alpha.MulVec(&wDense, &usTSigmaInvR)

	return &alpha, &wDense, nil
}

// blockDiagInverse inverts the block-diagonal observation covariance
// matrix one point-block at a time, never materializing the full
// m x m matrix off its block-diagonal entries.
func blockDiagInverse(constraints []PointCovarianceConstraint) (*mat.Dense, error) {
	total := 0
	for _, c := range constraints {
		total += len(c.Value)
	}
	out := mat.NewDense(total, total, nil)
	offset := 0
	for _, c := range constraints {
		d := len(c.Value)
		var blockInv mat.Dense
		if err := blockInv.Inverse(c.Covariance); err != nil {
			return nil, statismoerr.NewInvalidData(fmt.Sprintf("observation covariance at point %v is singular", c.Point))
		}
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				out.Set(offset+i, offset+j, blockInv.At(i, j))
			}
		}
		offset += d
	}
	return out, nil
}
