package builder

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/go-pdm/statismo/pkg/model"
	"github.com/go-pdm/statismo/pkg/representer"
)

func threeComponentPrior(t *testing.T) *model.StatisticalModel {
	t.Helper()
	rep := representer.NewVectorRepresenter(3)
	basis := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	m, err := model.New(rep, []float64{0, 0, 0}, basis, []float64{4, 2, 1}, 0, model.ModelInfo{})
	if err != nil {
		t.Fatalf("model.New failed: %v", err)
	}
	return m
}

// TestS3ReducedVarianceKeepsLeadingComponents reproduces the documented
// scenario: sigma2=[4,2,1], fraction 0.85 keeps 2 components (6/7=0.857
// clears the 0.85 threshold, 4/7=0.571 does not).
func TestS3ReducedVarianceKeepsLeadingComponents(t *testing.T) {
	prior := threeComponentPrior(t)
	b := NewReducedVarianceModelBuilder()
	reduced, err := b.BuildNewModelWithVariance(prior, 0.85)
	if err != nil {
		t.Fatalf("BuildNewModelWithVariance failed: %v", err)
	}
	want := []float64{4, 2}
	got := reduced.GetPCAVarianceVector()
	if len(got) != len(want) {
		t.Fatalf("k = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("sigma2[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestReducedVarianceMonotonicity is property 7: cumulative variance
// never increases and the mean is unchanged.
func TestReducedVarianceMonotonicity(t *testing.T) {
	prior := threeComponentPrior(t)
	b := NewReducedVarianceModelBuilder()
	reduced, err := b.BuildNewModelWithNumberOfComponents(prior, 2)
	if err != nil {
		t.Fatalf("BuildNewModelWithNumberOfComponents failed: %v", err)
	}
	sum := func(v []float64) float64 {
		s := 0.0
		for _, x := range v {
			s += x
		}
		return s
	}
	if sum(reduced.GetPCAVarianceVector()) > sum(prior.GetPCAVarianceVector()) {
		t.Errorf("reduced variance sum %v exceeds prior sum %v", sum(reduced.GetPCAVarianceVector()), sum(prior.GetPCAVarianceVector()))
	}
	for i, v := range prior.GetMeanVector() {
		if reduced.GetMeanVector()[i] != v {
			t.Errorf("mean[%d] changed: %v != %v", i, reduced.GetMeanVector()[i], v)
		}
	}
}

func TestBuildNewModelWithNumberOfComponentsClampsToAvailable(t *testing.T) {
	prior := threeComponentPrior(t)
	b := NewReducedVarianceModelBuilder()
	reduced, err := b.BuildNewModelWithNumberOfComponents(prior, 10)
	if err != nil {
		t.Fatalf("BuildNewModelWithNumberOfComponents failed: %v", err)
	}
	if reduced.GetNumberOfPrincipalComponents() != 3 {
		t.Errorf("k = %d, want 3 (clamped)", reduced.GetNumberOfPrincipalComponents())
	}
}

func TestBuildNewModelWithLeadingComponentsIsAliasForNumberOfComponents(t *testing.T) {
	prior := threeComponentPrior(t)
	b := NewReducedVarianceModelBuilder()
	a, err := b.BuildNewModelWithLeadingComponents(prior, 2)
	if err != nil {
		t.Fatalf("BuildNewModelWithLeadingComponents failed: %v", err)
	}
	c, err := b.BuildNewModelWithNumberOfComponents(prior, 2)
	if err != nil {
		t.Fatalf("BuildNewModelWithNumberOfComponents failed: %v", err)
	}
	for i := range a.GetPCAVarianceVector() {
		if a.GetPCAVarianceVector()[i] != c.GetPCAVarianceVector()[i] {
			t.Errorf("alias mismatch at %d: %v != %v", i, a.GetPCAVarianceVector()[i], c.GetPCAVarianceVector()[i])
		}
	}
}

func TestBuildNewModelWithVarianceRejectsOutOfRangeFraction(t *testing.T) {
	prior := threeComponentPrior(t)
	b := NewReducedVarianceModelBuilder()
	if _, err := b.BuildNewModelWithVariance(prior, 0); err == nil {
		t.Fatalf("expected error for fraction 0")
	}
	if _, err := b.BuildNewModelWithVariance(prior, 1.5); err == nil {
		t.Fatalf("expected error for fraction > 1")
	}
}
