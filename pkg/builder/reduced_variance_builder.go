package builder

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/go-pdm/statismo/pkg/model"
	"github.com/go-pdm/statismo/pkg/statismoerr"
)

// ReducedVarianceModelBuilder truncates a model's leading components
// without rotating the basis: mean, noise variance and the retained
// columns of U are carried over untouched.
type ReducedVarianceModelBuilder struct {
	opts options
}

// NewReducedVarianceModelBuilder creates a ReducedVarianceModelBuilder.
func NewReducedVarianceModelBuilder(opts ...Option) *ReducedVarianceModelBuilder {
	return &ReducedVarianceModelBuilder{opts: newOptions(opts)}
}

// BuildNewModelWithVariance keeps the smallest prefix of components
// whose cumulative variance reaches fraction of the total. Ties at the
// threshold are broken conservatively, by keeping the extra component.
func (b *ReducedVarianceModelBuilder) BuildNewModelWithVariance(prior *model.StatisticalModel, fraction float64) (*model.StatisticalModel, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, statismoerr.NewBadInput(fmt.Sprintf("variance fraction must be in (0, 1], got %v", fraction))
	}
	variance := prior.GetPCAVarianceVector()
	total := 0.0
	for _, v := range variance {
		total += v
	}
	target := fraction * total
	keep := len(variance)
	cumulative := 0.0
	for i, v := range variance {
		cumulative += v
		if cumulative >= target {
			keep = i + 1
			break
		}
	}
	return b.truncate(prior, keep)
}

// BuildNewModelWithNumberOfComponents truncates to min(k, current k).
func (b *ReducedVarianceModelBuilder) BuildNewModelWithNumberOfComponents(prior *model.StatisticalModel, k int) (*model.StatisticalModel, error) {
	if k < 0 {
		return nil, statismoerr.NewBadInput("component count must be non-negative")
	}
	if k > prior.GetNumberOfPrincipalComponents() {
		k = prior.GetNumberOfPrincipalComponents()
	}
	return b.truncate(prior, k)
}

// BuildNewModelWithLeadingComponents is an alias for
// BuildNewModelWithNumberOfComponents.
func (b *ReducedVarianceModelBuilder) BuildNewModelWithLeadingComponents(prior *model.StatisticalModel, k int) (*model.StatisticalModel, error) {
	return b.BuildNewModelWithNumberOfComponents(prior, k)
}

func (b *ReducedVarianceModelBuilder) truncate(prior *model.StatisticalModel, keep int) (*model.StatisticalModel, error) {
	if keep == 0 {
		return nil, statismoerr.NewBadInput("reduced model would have zero components")
	}
	b.opts.sink.Infof("reducing model from %d to %d components", prior.GetNumberOfPrincipalComponents(), keep)

	basis := prior.GetOrthonormalPCABasisMatrix()
	p, _ := basis.Dims()
	truncatedBasis := mat.NewDense(p, keep, nil)
	truncatedBasis.Copy(basis.Slice(0, p, 0, keep))

	variance := prior.GetPCAVarianceVector()[:keep]

	info := prior.Info().Extend(model.BuilderInfo{
		BuilderName: "ReducedVarianceModelBuilder",
		Parameters:  map[string]string{"components": fmt.Sprintf("%d", keep)},
	}, nil)

	return model.New(prior.Representer(), prior.GetMeanVector(), truncatedBasis, variance, prior.GetNoiseVariance(), info)
}
