// Package model implements StatisticalModel, the multivariate Gaussian
// N(mu, U*diag(sigma2)*U^T + sigma0sq*I) every builder in this module
// produces and every client queries. A StatisticalModel is fully built
// then treated as immutable; every method here is a pure function of
// that state and is safe for concurrent callers.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/go-pdm/statismo/internal/linalg"
	"github.com/go-pdm/statismo/pkg/domain"
	"github.com/go-pdm/statismo/pkg/representer"
	"github.com/go-pdm/statismo/pkg/statismoerr"
)

// StatisticalModel is the central entity: mean mu (length p), an
// orthonormal basis U (p x k), a strictly-positive, descending variance
// vector sigma2 (length k), and an isotropic noise variance sigma0sq.
type StatisticalModel struct {
	rep      representer.Representer
	mean     []float64
	basis    *mat.Dense // p x k, orthonormal columns
	variance []float64  // length k, descending
	noiseVar float64
	info     ModelInfo
}

// New builds a StatisticalModel, validating its invariants: k >= 0,
// consistent dimensions, positive noise-free variances, descending
// order. Orthonormality is the builder's responsibility to establish;
// New only checks shapes, not numerically re-verifying orthonormality
// on every construction.
func New(rep representer.Representer, mean []float64, basis *mat.Dense, variance []float64, noiseVar float64, info ModelInfo) (*StatisticalModel, error) {
	p := rep.Dimensions() * rep.NumberOfPoints()
	if len(mean) != p {
		return nil, statismoerr.NewDimensionMismatch("mean vector length mismatch", p, len(mean))
	}
	rows, k := basis.Dims()
	if rows != p {
		return nil, statismoerr.NewDimensionMismatch("basis row count mismatch", p, rows)
	}
	if len(variance) != k {
		return nil, statismoerr.NewDimensionMismatch("variance vector length mismatch", k, len(variance))
	}
	for i, v := range variance {
		if v <= 0 {
			return nil, statismoerr.NewInvalidData(fmt.Sprintf("variance[%d] must be strictly positive, got %v", i, v))
		}
		if i > 0 && variance[i-1] < v-1e-6 {
			return nil, statismoerr.NewInvalidData("variance vector must be sorted descending")
		}
	}
	if noiseVar < 0 {
		return nil, statismoerr.NewInvalidData("noise variance must be non-negative")
	}
	meanCopy := make([]float64, len(mean))
	copy(meanCopy, mean)
	varCopy := make([]float64, len(variance))
	copy(varCopy, variance)
	return &StatisticalModel{
		rep:      rep,
		mean:     meanCopy,
		basis:    basis,
		variance: varCopy,
		noiseVar: noiseVar,
		info:     info,
	}, nil
}

// GetNumberOfPrincipalComponents returns k.
func (m *StatisticalModel) GetNumberOfPrincipalComponents() int {
	return len(m.variance)
}

// GetPCAVarianceVector returns sigma2, descending.
func (m *StatisticalModel) GetPCAVarianceVector() []float64 {
	out := make([]float64, len(m.variance))
	copy(out, m.variance)
	return out
}

// GetNoiseVariance returns sigma0sq.
func (m *StatisticalModel) GetNoiseVariance() float64 {
	return m.noiseVar
}

// GetMeanVector returns mu.
func (m *StatisticalModel) GetMeanVector() []float64 {
	out := make([]float64, len(m.mean))
	copy(out, m.mean)
	return out
}

// GetOrthonormalPCABasisMatrix returns U itself.
func (m *StatisticalModel) GetOrthonormalPCABasisMatrix() *mat.Dense {
	return m.robustlyComputePCABasisMatrix()
}

// GetPCABasisMatrix returns the scaled basis U*diag(sqrt(sigma2)).
func (m *StatisticalModel) GetPCABasisMatrix() *mat.Dense {
	return linalg.ScaleColumns(m.basis, linalg.SqrtVector(m.variance))
}

// Representer returns the model's Representer.
func (m *StatisticalModel) Representer() representer.Representer {
	return m.rep
}

// Info returns the model's provenance record.
func (m *StatisticalModel) Info() ModelInfo {
	return m.info
}

// robustlyComputePCABasisMatrix returns the orthonormal basis,
// defensively copied so callers cannot mutate model state through the
// returned matrix.
func (m *StatisticalModel) robustlyComputePCABasisMatrix() *mat.Dense {
	p, k := m.basis.Dims()
	out := mat.NewDense(p, k, nil)
	out.Copy(m.basis)
	return out
}

// DrawMean returns mu.
func (m *StatisticalModel) DrawMean() []float64 {
	return m.GetMeanVector()
}

// DrawMeanAtPoint returns mu restricted to the d entries for pt.
func (m *StatisticalModel) DrawMeanAtPoint(pt domain.Point) ([]float64, error) {
	start, d, err := m.pointRange(pt)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), m.mean[start:start+d]...), nil
}

// DrawSample returns mu + U*diag(sqrt(sigma2))*alpha, optionally adding
// zero-mean Gaussian noise of variance sigma0sq per entry.
func (m *StatisticalModel) DrawSample(alpha []float64, addNoise bool) ([]float64, error) {
	x, err := m.sampleFromCoefficients(alpha)
	if err != nil {
		return nil, err
	}
	if addNoise && m.noiseVar > 0 {
		noise := distuv.Normal{Mu: 0, Sigma: math.Sqrt(m.noiseVar), Src: rand.NewSource(rand.Int63())}
		for i := range x {
			x[i] += noise.Rand()
		}
	}
	return x, nil
}

// DrawSampleAtPoint restricts DrawSample to a single domain point.
func (m *StatisticalModel) DrawSampleAtPoint(alpha []float64, pt domain.Point) ([]float64, error) {
	x, err := m.DrawSample(alpha, false)
	if err != nil {
		return nil, err
	}
	start, d, err := m.pointRange(pt)
	if err != nil {
		return nil, err
	}
	return x[start : start+d], nil
}

// DrawPCABasisSample returns the j-th basis direction scaled by
// sqrt(sigma2[j]).
func (m *StatisticalModel) DrawPCABasisSample(j int) ([]float64, error) {
	k := len(m.variance)
	if j < 0 || j >= k {
		return nil, statismoerr.NewOutOfRange("component index out of range", j, k)
	}
	p, _ := m.basis.Dims()
	scale := math.Sqrt(m.variance[j])
	out := make([]float64, p)
	for i := 0; i < p; i++ {
		out[i] = m.basis.At(i, j) * scale
	}
	return out, nil
}

// sampleFromCoefficients computes mu + U*diag(sqrt(sigma2))*alpha
// without noise.
func (m *StatisticalModel) sampleFromCoefficients(alpha []float64) ([]float64, error) {
	k := len(m.variance)
	if len(alpha) != k {
		return nil, statismoerr.NewDimensionMismatch("coefficient vector length mismatch", k, len(alpha))
	}
	p, _ := m.basis.Dims()
	scaled := make([]float64, k)
	for i, a := range alpha {
		scaled[i] = a * math.Sqrt(m.variance[i])
	}
	av := mat.NewVecDense(k, scaled)
	var delta mat.VecDense
	delta.MulVec(m.basis, av)
	x := make([]float64, p)
	for i := 0; i < p; i++ {
		x[i] = m.mean[i] + delta.AtVec(i)
	}
	return x, nil
}

// ComputeCoefficients returns the MAP coefficients of x under the
// model's noise variance.
func (m *StatisticalModel) ComputeCoefficients(x []float64) ([]float64, error) {
	if len(x) != len(m.mean) {
		return nil, statismoerr.NewDimensionMismatch("sample vector length mismatch", len(m.mean), len(x))
	}
	if len(m.variance) == 0 {
		return nil, statismoerr.NewBadInput("model has zero principal components")
	}
	r := make([]float64, len(x))
	copy(r, x)
	floats.Sub(r, m.mean)
	rv := mat.NewVecDense(len(r), r)
	var t mat.VecDense
	t.MulVec(m.basis.T(), rv) // U^T * r

	alpha := make([]float64, len(m.variance))
	for i, sigma2 := range m.variance {
		if m.noiseVar > 0 {
			alpha[i] = math.Sqrt(sigma2) / (sigma2 + m.noiseVar) * t.AtVec(i)
		} else {
			alpha[i] = t.AtVec(i) / math.Sqrt(sigma2)
		}
	}
	return alpha, nil
}

// PointValueConstraint binds a single domain point to an observed
// value.
type PointValueConstraint struct {
	Point domain.Point
	Value []float64
}

// ComputeCoefficientsForPointValues computes the MAP coefficients from
// only a subset of observed points, under a single isotropic
// observation noise variance applied to every constraint. Unlike
// ComputeCoefficients, the row-selected Us is generally not
// orthonormal, so this cannot use the full-basis per-component
// shortcut; it delegates to the general k x k closed-form solve in
// SolveMAPCoefficients.
func (m *StatisticalModel) ComputeCoefficientsForPointValues(constraints []PointValueConstraint, noiseVar float64) ([]float64, error) {
	if noiseVar <= 0 {
		return nil, statismoerr.NewInvalidData("observation noise variance must be strictly positive")
	}
	cov := make([]PointCovarianceConstraint, len(constraints))
	for i, c := range constraints {
		d := len(c.Value)
		sigma := mat.NewDense(d, d, nil)
		for j := 0; j < d; j++ {
			sigma.Set(j, j, noiseVar)
		}
		cov[i] = PointCovarianceConstraint{Point: c.Point, Value: c.Value, Covariance: sigma}
	}
	return m.ComputeCoefficientsForPointCovariances(cov)
}

// ComputeCoefficientsForPointCovariances is the general form of
// ComputeCoefficientsForPointValues: each constraint carries its own
// d x d observation covariance instead of sharing one scalar noise
// variance across every point.
func (m *StatisticalModel) ComputeCoefficientsForPointCovariances(constraints []PointCovarianceConstraint) ([]float64, error) {
	if len(m.variance) == 0 {
		return nil, statismoerr.NewBadInput("model has zero principal components")
	}
	alphaStar, _, err := m.SolveMAPCoefficients(constraints)
	if err != nil {
		return nil, err
	}
	alpha := make([]float64, alphaStar.Len())
	for i := range alpha {
		alpha[i] = alphaStar.AtVec(i)
	}
	return alpha, nil
}

// SelectConstraintRows gathers the rows of U and mu (and the stacked
// observed values) selected by constraints. SolveMAPCoefficients calls
// it, so ComputeCoefficientsForPointValues and PosteriorModelBuilder
// share the same point-range bookkeeping.
func (m *StatisticalModel) SelectConstraintRows(constraints []PointValueConstraint) (us *mat.Dense, muSel []float64, yVals []float64, err error) {
	_, k := m.basis.Dims()
	var rows []int
	for _, c := range constraints {
		start, d, perr := m.pointRange(c.Point)
		if perr != nil {
			return nil, nil, nil, perr
		}
		if len(c.Value) != d {
			return nil, nil, nil, statismoerr.NewDimensionMismatch("constraint value length mismatch", d, len(c.Value))
		}
		for j := 0; j < d; j++ {
			rows = append(rows, start+j)
			yVals = append(yVals, c.Value[j])
			muSel = append(muSel, m.mean[start+j])
		}
	}
	us = linalg.RowSlice(m.basis, rows)
	_ = k
	return us, muSel, yVals, nil
}

// ComputeProbability returns the Gaussian log-density of x under the
// model's factored covariance U*diag(sigma2)*U^T + sigma0sq*I.
func (m *StatisticalModel) ComputeProbability(x []float64) (float64, error) {
	if len(x) != len(m.mean) {
		return 0, statismoerr.NewDimensionMismatch("sample vector length mismatch", len(m.mean), len(x))
	}
	p := len(m.mean)
	k := len(m.variance)
	r := make([]float64, p)
	copy(r, x)
	floats.Sub(r, m.mean)
	rv := mat.NewVecDense(p, r)
	var t mat.VecDense
	t.MulVec(m.basis.T(), rv) // U^T * r, length k

	if m.noiseVar <= 0 {
		// Degenerate Gaussian supported on span(U): density is zero
		// (log -Inf) off the subspace.
		var proj mat.VecDense
		proj.MulVec(m.basis, &t)
		residual := 0.0
		for i := 0; i < p; i++ {
			d := r[i] - proj.AtVec(i)
			residual += d * d
		}
		if math.Sqrt(residual) > 1e-6 {
			return math.Inf(-1), nil
		}
		logDensity := -0.5 * float64(k) * math.Log(2*math.Pi)
		for i, sigma2 := range m.variance {
			logDensity -= 0.5 * math.Log(sigma2)
			logDensity -= 0.5 * t.AtVec(i) * t.AtVec(i) / sigma2
		}
		return logDensity, nil
	}

	// Full p-dimensional Gaussian, evaluated via the Woodbury identity
	// so neither inversion nor determinant ever touches a p x p matrix.
	quadForm := floats.Dot(r, r)
	logDet := float64(p-k) * math.Log(m.noiseVar)
	for i, sigma2 := range m.variance {
		w := sigma2 / (sigma2 + m.noiseVar)
		quadForm -= w * t.AtVec(i) * t.AtVec(i)
		logDet += math.Log(m.noiseVar + sigma2)
	}
	quadForm /= m.noiseVar

	logDensity := -0.5 * (float64(p)*math.Log(2*math.Pi) + logDet + quadForm)
	return logDensity, nil
}

// ComputeMahalanobisDistance returns sqrt(r^T * C^-1 * r) under the
// model's factored covariance.
func (m *StatisticalModel) ComputeMahalanobisDistance(x []float64) (float64, error) {
	if len(x) != len(m.mean) {
		return 0, statismoerr.NewDimensionMismatch("sample vector length mismatch", len(m.mean), len(x))
	}
	p := len(m.mean)
	r := make([]float64, p)
	copy(r, x)
	floats.Sub(r, m.mean)
	rv := mat.NewVecDense(p, r)
	var t mat.VecDense
	t.MulVec(m.basis.T(), rv)

	if m.noiseVar <= 0 {
		sum := 0.0
		for i, sigma2 := range m.variance {
			sum += t.AtVec(i) * t.AtVec(i) / sigma2
		}
		return math.Sqrt(sum), nil
	}

	quadForm := floats.Dot(r, r)
	for i, sigma2 := range m.variance {
		w := sigma2 / (sigma2 + m.noiseVar)
		quadForm -= w * t.AtVec(i) * t.AtVec(i)
	}
	quadForm /= m.noiseVar
	if quadForm < 0 {
		quadForm = 0
	}
	return math.Sqrt(quadForm), nil
}

// GetCovarianceAtPoint returns the d x d covariance block between two
// domain points: U_i*diag(sigma2)*U_j^T, plus sigma0sq*I on the
// diagonal block.
func (m *StatisticalModel) GetCovarianceAtPoint(ptI, ptJ domain.Point) (*mat.Dense, error) {
	startI, dI, err := m.pointRange(ptI)
	if err != nil {
		return nil, err
	}
	startJ, dJ, err := m.pointRange(ptJ)
	if err != nil {
		return nil, err
	}
	cov := m.getProjectedCovarianceMatrix(startI, dI, startJ, dJ)
	if ptI == ptJ {
		for d := 0; d < dI; d++ {
			cov.Set(d, d, cov.At(d, d)+m.noiseVar)
		}
	}
	return cov, nil
}

// getProjectedCovarianceMatrix forms U_i*diag(sigma2)*U_j^T for the row
// ranges [startI,startI+dI) and [startJ,startJ+dJ) without ever
// materializing the full p x p covariance.
func (m *StatisticalModel) getProjectedCovarianceMatrix(startI, dI, startJ, dJ int) *mat.Dense {
	k := len(m.variance)
	out := mat.NewDense(dI, dJ, nil)
	for a := 0; a < dI; a++ {
		for b := 0; b < dJ; b++ {
			sum := 0.0
			for c := 0; c < k; c++ {
				sum += m.basis.At(startI+a, c) * m.variance[c] * m.basis.At(startJ+b, c)
			}
			out.Set(a, b, sum)
		}
	}
	return out
}

// ComputeCoefficientsCovariance returns, per component, the shrinkage
// factor sigma2/(sigma2+sigma0sq) that both ComputeProbability and
// ComputeMahalanobisDistance use internally. Exposed so callers
// conditioning further downstream (e.g. a custom posterior step) do not
// need to re-derive it.
func (m *StatisticalModel) ComputeCoefficientsCovariance() []float64 {
	out := make([]float64, len(m.variance))
	for i, sigma2 := range m.variance {
		if m.noiseVar > 0 {
			out[i] = sigma2 / (sigma2 + m.noiseVar)
		} else {
			out[i] = 1
		}
	}
	return out
}

// pointRange returns the [start, start+d) row range of mu/U that
// corresponds to domain point pt.
func (m *StatisticalModel) pointRange(pt domain.Point) (start, d int, err error) {
	idx, err := m.rep.PointToIndex(pt)
	if err != nil {
		return 0, 0, err
	}
	d = m.rep.Dimensions()
	start = idx * d
	if start+d > len(m.mean) {
		return 0, 0, statismoerr.NewOutOfRange("point index out of range", idx, m.rep.NumberOfPoints())
	}
	return start, d, nil
}
