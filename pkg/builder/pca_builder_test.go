package builder

import (
	"math"
	"testing"

	"github.com/go-pdm/statismo/pkg/dataset"
	"github.com/go-pdm/statismo/pkg/representer"
)

func threeSampleItems() []dataset.DataItem {
	return []dataset.DataItem{
		{URI: "a", Vector: []float64{1, 2, 3}},
		{URI: "b", Vector: []float64{2, 3, 4}},
		{URI: "c", Vector: []float64{3, 4, 5}},
	}
}

// TestS1PCAOnThreeOneDSamples reproduces the documented fixed point:
// mean [2,3,4], one component, U = [1,1,1]/sqrt(3), variance 3.
func TestS1PCAOnThreeOneDSamples(t *testing.T) {
	rep := representer.NewVectorRepresenter(3)
	b := NewPCAModelBuilder()
	m, err := b.BuildNewModel(rep, threeSampleItems(), PCAModelBuilderConfig{Method: JacobiSVD})
	if err != nil {
		t.Fatalf("BuildNewModel failed: %v", err)
	}
	wantMean := []float64{2, 3, 4}
	for i, v := range m.GetMeanVector() {
		if math.Abs(v-wantMean[i]) > 1e-9 {
			t.Errorf("mean[%d] = %v, want %v", i, v, wantMean[i])
		}
	}
	if m.GetNumberOfPrincipalComponents() != 1 {
		t.Fatalf("k = %d, want 1", m.GetNumberOfPrincipalComponents())
	}
	if math.Abs(m.GetPCAVarianceVector()[0]-3) > 1e-9 {
		t.Errorf("sigma2[0] = %v, want 3", m.GetPCAVarianceVector()[0])
	}
	basis := m.GetOrthonormalPCABasisMatrix()
	want := 1 / math.Sqrt(3)
	for i := 0; i < 3; i++ {
		if math.Abs(math.Abs(basis.At(i, 0))-want) > 1e-9 {
			t.Errorf("basis[%d,0] = %v, want +/- %v", i, basis.At(i, 0), want)
		}
	}
}

// TestWideTallRegimeEquivalence is property 8: for the same centered
// data matrix, the wide-regime and tall-regime branches of the same
// method yield identical variance and the same subspace up to column
// sign, regardless of which branch n-vs-p would actually select.
func TestWideTallRegimeEquivalence(t *testing.T) {
	b := NewPCAModelBuilder()
	mean := []float64{2, 3, 4}
	rows := [][]float64{{1, 2, 3}, {2, 3, 4}, {3, 4, 5}}
	X0 := centeredMatrix(rows, mean)

	wideBasis, wideVar, err := b.fitJacobiSVDWide(X0, 3, 0)
	if err != nil {
		t.Fatalf("wide branch failed: %v", err)
	}
	tallBasis, tallVar, err := b.fitJacobiSVDTall(X0, 3, 0)
	if err != nil {
		t.Fatalf("tall branch failed: %v", err)
	}
	if len(wideVar) != len(tallVar) {
		t.Fatalf("component count mismatch: wide %d, tall %d", len(wideVar), len(tallVar))
	}
	for i := range wideVar {
		if math.Abs(wideVar[i]-tallVar[i]) > 1e-6 {
			t.Errorf("variance[%d]: wide %v != tall %v", i, wideVar[i], tallVar[i])
		}
	}
	wr, wc := wideBasis.Dims()
	tr, tc := tallBasis.Dims()
	if wr != tr || wc != tc {
		t.Fatalf("basis shape mismatch: wide %dx%d, tall %dx%d", wr, wc, tr, tc)
	}
	for j := 0; j < wc; j++ {
		sign := 1.0
		if (wideBasis.At(0, j) > 0) != (tallBasis.At(0, j) > 0) {
			sign = -1.0
		}
		for i := 0; i < wr; i++ {
			if math.Abs(wideBasis.At(i, j)-sign*tallBasis.At(i, j)) > 1e-6 {
				t.Errorf("basis[%d,%d]: wide %v != tall %v (sign %v)", i, j, wideBasis.At(i, j), tallBasis.At(i, j), sign)
			}
		}
	}
}

func TestBuildNewModelRejectsEmptyData(t *testing.T) {
	rep := representer.NewVectorRepresenter(3)
	b := NewPCAModelBuilder()
	if _, err := b.BuildNewModel(rep, nil, PCAModelBuilderConfig{}); err == nil {
		t.Fatalf("expected error for empty data")
	}
}

func TestBuildNewModelRejectsDimensionMismatch(t *testing.T) {
	rep := representer.NewVectorRepresenter(3)
	b := NewPCAModelBuilder()
	items := []dataset.DataItem{{URI: "a", Vector: []float64{1, 2}}}
	if _, err := b.BuildNewModel(rep, items, PCAModelBuilderConfig{}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestBuildNewModelRejectsNaN(t *testing.T) {
	rep := representer.NewVectorRepresenter(3)
	b := NewPCAModelBuilder()
	items := []dataset.DataItem{
		{URI: "a", Vector: []float64{1, math.NaN(), 3}},
		{URI: "b", Vector: []float64{2, 3, 4}},
	}
	if _, err := b.BuildNewModel(rep, items, PCAModelBuilderConfig{}); err == nil {
		t.Fatalf("expected error for NaN input")
	}
}

func TestBuildNewModelWithScoresAssignsScoreMatrix(t *testing.T) {
	rep := representer.NewVectorRepresenter(3)
	b := NewPCAModelBuilder()
	m, err := b.BuildNewModel(rep, threeSampleItems(), PCAModelBuilderConfig{ComputeScores: true})
	if err != nil {
		t.Fatalf("BuildNewModel failed: %v", err)
	}
	scores := m.Info().ScoreMatrix
	if len(scores) != 1 || len(scores[0]) != 3 {
		t.Fatalf("score matrix shape = %dx%d, want 1x3", len(scores), len(scores[0]))
	}
}

func TestSelfAdjointEigenMatchesJacobiSVD(t *testing.T) {
	rep := representer.NewVectorRepresenter(3)
	eigModel, err := NewPCAModelBuilder().BuildNewModel(rep, threeSampleItems(), PCAModelBuilderConfig{Method: SelfAdjointEigen})
	if err != nil {
		t.Fatalf("eigen build failed: %v", err)
	}
	svdModel, err := NewPCAModelBuilder().BuildNewModel(rep, threeSampleItems(), PCAModelBuilderConfig{Method: JacobiSVD})
	if err != nil {
		t.Fatalf("svd build failed: %v", err)
	}
	if math.Abs(eigModel.GetPCAVarianceVector()[0]-svdModel.GetPCAVarianceVector()[0]) > 1e-6 {
		t.Errorf("eigen variance %v != svd variance %v", eigModel.GetPCAVarianceVector()[0], svdModel.GetPCAVarianceVector()[0])
	}
}
