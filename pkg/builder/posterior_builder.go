package builder

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/go-pdm/statismo/internal/linalg"
	"github.com/go-pdm/statismo/pkg/dataset"
	"github.com/go-pdm/statismo/pkg/model"
	"github.com/go-pdm/statismo/pkg/representer"
	"github.com/go-pdm/statismo/pkg/statismoerr"
)

// PointCovarianceConstraint and TrivialUniform are owned by pkg/model
// (SolveMAPCoefficients needs them too, and pkg/model cannot import
// pkg/builder); these are aliases so existing callers in this package
// keep working unqualified.
type PointCovarianceConstraint = model.PointCovarianceConstraint

var TrivialUniform = model.TrivialUniform

// PosteriorModelBuilder conditions a StatisticalModel on point
// observations, producing a new, still-Gaussian StatisticalModel.
type PosteriorModelBuilder struct {
	opts options
}

// NewPosteriorModelBuilder creates a PosteriorModelBuilder.
func NewPosteriorModelBuilder(opts ...Option) *PosteriorModelBuilder {
	return &PosteriorModelBuilder{opts: newOptions(opts)}
}

// BuildNewModelFromData fits a prior with PCAModelBuilder and
// conditions it in one step.
func (b *PosteriorModelBuilder) BuildNewModelFromData(rep representer.Representer, items []dataset.DataItem, pcaCfg PCAModelBuilderConfig, constraints []PointCovarianceConstraint) (*model.StatisticalModel, error) {
	prior, err := NewPCAModelBuilder(WithLogger(b.opts.sink)).BuildNewModel(rep, items, pcaCfg)
	if err != nil {
		return nil, err
	}
	return b.BuildNewModel(prior, constraints)
}

// BuildNewModel conditions prior on constraints. An empty constraint
// list returns a model with mean/basis/variance bit-identical to
// prior's.
func (b *PosteriorModelBuilder) BuildNewModel(prior *model.StatisticalModel, constraints []PointCovarianceConstraint) (*model.StatisticalModel, error) {
	k := prior.GetNumberOfPrincipalComponents()
	variance := prior.GetPCAVarianceVector()
	basis := prior.GetOrthonormalPCABasisMatrix()
	mean := prior.GetMeanVector()

	info := prior.Info().Extend(model.BuilderInfo{
		BuilderName: "PosteriorModelBuilder",
		Parameters:  map[string]string{"constraints": fmt.Sprintf("%d", len(constraints))},
	}, nil)

	if len(constraints) == 0 {
		b.opts.sink.Infof("posterior model: no constraints, returning prior unchanged")
		return model.New(prior.Representer(), mean, basis, variance, prior.GetNoiseVariance(), info)
	}

	// alpha* and W are the general k x k closed-form MAP solve shared
	// with StatisticalModel.ComputeCoefficientsForPointCovariances: Us
	// is a row-selected, generally non-orthonormal submatrix of the
	// prior's orthonormal basis, so the full-basis per-component
	// shortcut does not apply here.
	alphaStar, w, err := prior.SolveMAPCoefficients(constraints)
	if err != nil {
		return nil, err
	}

	// New mean: mu + U * diag(sqrt(sigma2)) * alpha*
	sqrtVar := linalg.SqrtVector(variance)
	p, _ := basis.Dims()
	newMean := make([]float64, p)
	copy(newMean, mean)
	for j := 0; j < k; j++ {
		scaled := alphaStar.AtVec(j) * sqrtVar[j]
		for i := 0; i < p; i++ {
			newMean[i] += basis.At(i, j) * scaled
		}
	}

	// New basis: eigendecompose diag(sqrt(sigma2)) * W * diag(sqrt(sigma2)).
	scaledW := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			scaledW.Set(i, j, sqrtVar[i]*w.At(i, j)*sqrtVar[j])
		}
	}
	sym := linalg.ToSymmetric(scaledW)
	q, lambda, ok := linalg.SymEigenDescending(sym)
	if !ok {
		return nil, statismoerr.NewInternal("posterior covariance eigendecomposition failed to converge", nil)
	}

	// Only non-positive eigenvalues (rounding noise) are dropped: a tight
	// observation legitimately shrinks posterior variances below
	// linalg.Epsilon, so keepCount's tolerance does not apply here.
	keep := 0
	for keep < k && lambda[keep] > 0 {
		keep++
	}
	if keep == 0 {
		return nil, statismoerr.NewInternal("no posterior component has a positive variance", nil)
	}
	qTrunc := q.Slice(0, k, 0, keep).(*mat.Dense)
	var newBasis mat.Dense
	newBasis.Mul(basis, qTrunc) // p x keep
	newBasisCopy := denseCopy(&newBasis)
	newVariance := append([]float64(nil), lambda[:keep]...)

	return model.New(prior.Representer(), newMean, newBasisCopy, newVariance, prior.GetNoiseVariance(), info)
}
