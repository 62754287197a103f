package builder

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/go-pdm/statismo/internal/linalg"
	"github.com/go-pdm/statismo/pkg/dataset"
	"github.com/go-pdm/statismo/pkg/model"
	"github.com/go-pdm/statismo/pkg/representer"
	"github.com/go-pdm/statismo/pkg/statismoerr"
)

// Method selects the eigen-solver branch PCAModelBuilder uses.
type Method string

const (
	// JacobiSVD branches on n vs p, using gonum's thin SVD.
	JacobiSVD Method = "jacobi_svd"
	// SelfAdjointEigen always eigendecomposes X0^T*X0.
	SelfAdjointEigen Method = "self_adjoint_eigen"
)

// parallelScoreThreshold is the smallest sample count at which
// score-matrix columns are projected concurrently. Below it the goroutine overhead
// would dwarf the work being parallelized.
const parallelScoreThreshold = 64

// PCAModelBuilderConfig configures PCAModelBuilder.BuildNewModel.
type PCAModelBuilderConfig struct {
	NoiseVariance float64
	ComputeScores bool
	Method        Method
}

// PCAModelBuilder fits a StatisticalModel to a list of DataItems.
type PCAModelBuilder struct {
	opts options
}

// NewPCAModelBuilder creates a PCAModelBuilder.
func NewPCAModelBuilder(opts ...Option) *PCAModelBuilder {
	return &PCAModelBuilder{opts: newOptions(opts)}
}

// BuildNewModel fits a PCA model to items, all of which must share rep
// and vector length p = rep.Dimensions()*rep.NumberOfPoints().
func (b *PCAModelBuilder) BuildNewModel(rep representer.Representer, items []dataset.DataItem, cfg PCAModelBuilderConfig) (*model.StatisticalModel, error) {
	n := len(items)
	if n == 0 {
		return nil, statismoerr.NewBadInput("PCAModelBuilder requires at least one data item")
	}
	p := rep.Dimensions() * rep.NumberOfPoints()
	rows := make([][]float64, n)
	uris := make([]string, n)
	for i, item := range items {
		if len(item.Vector) != p {
			return nil, statismoerr.NewDimensionMismatch(fmt.Sprintf("data item %d vector length mismatch", i), p, len(item.Vector))
		}
		for _, v := range item.Vector {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, statismoerr.NewInvalidData(fmt.Sprintf("data item %d contains NaN/Inf", i))
			}
		}
		rows[i] = item.Vector
		uris[i] = item.URI
	}

	b.opts.sink.Infof("fitting PCA model: n=%d p=%d method=%s", n, p, cfg.Method)

	mean := computeMean(rows, p)
	X0 := centeredMatrix(rows, mean)

	var basis *mat.Dense
	var variance []float64
	var err error

	switch cfg.Method {
	case SelfAdjointEigen:
		basis, variance, err = b.fitSelfAdjointEigen(X0, n, cfg.NoiseVariance)
	case JacobiSVD, "":
		if n < p {
			b.opts.sink.Infof("PCA branch: JacobiSVD wide regime (n=%d < p=%d)", n, p)
			basis, variance, err = b.fitJacobiSVDWide(X0, n, cfg.NoiseVariance)
		} else {
			b.opts.sink.Infof("PCA branch: JacobiSVD tall regime (n=%d >= p=%d)", n, p)
			basis, variance, err = b.fitJacobiSVDTall(X0, n, cfg.NoiseVariance)
		}
	default:
		return nil, statismoerr.NewBadInput(fmt.Sprintf("unknown PCA method %q", cfg.Method))
	}
	if err != nil {
		b.opts.sink.Errorf("PCA fit failed: %v", err)
		return nil, err
	}

	var scores [][]float64
	if cfg.ComputeScores {
		scores, err = computeScoreMatrix(X0, basis, variance, cfg.NoiseVariance)
		if err != nil {
			return nil, err
		}
	}

	info := model.NewModelInfo(model.BuilderInfo{
		BuilderName: "PCAModelBuilder",
		DataInfo:    urisToDataInfo(uris),
		Parameters:  map[string]string{"NoiseVariance": fmt.Sprintf("%v", cfg.NoiseVariance)},
	}, scores)

	return model.New(rep, mean, basis, variance, cfg.NoiseVariance, info)
}

func (b *PCAModelBuilder) fitSelfAdjointEigen(X0 *mat.Dense, n int, sigma0sq float64) (*mat.Dense, []float64, error) {
	var cov mat.Dense
	cov.Mul(X0.T(), X0)
	sym := linalg.ToSymmetric(&cov)
	vecs, vals, ok := linalg.SymEigenDescending(sym)
	if !ok {
		return nil, nil, statismoerr.NewInternal("eigendecomposition failed to converge", nil)
	}
	for i := range vals {
		vals[i] /= float64(n - 1)
	}
	keep := keepCount(vals, sigma0sq, n-1)
	if keep == 0 {
		return nil, nil, statismoerr.NewInternal("no principal component survived the numerical tolerance", nil)
	}
	p, _ := vecs.Dims()
	basis := vecs.Slice(0, p, 0, keep).(*mat.Dense)
	variance := make([]float64, keep)
	for i := 0; i < keep; i++ {
		variance[i] = vals[i] - sigma0sq
	}
	return denseCopy(basis), variance, nil
}

func (b *PCAModelBuilder) fitJacobiSVDTall(X0 *mat.Dense, n int, sigma0sq float64) (*mat.Dense, []float64, error) {
	var cov mat.Dense
	cov.Mul(X0.T(), X0)
	_, v, s, ok := linalg.ThinSVD(&cov)
	if !ok {
		return nil, nil, statismoerr.NewInternal("SVD failed to converge", nil)
	}
	vals := make([]float64, len(s))
	for i, sv := range s {
		vals[i] = sv / float64(n-1)
	}
	keep := keepCount(vals, sigma0sq, n-1)
	if keep == 0 {
		return nil, nil, statismoerr.NewInternal("no principal component survived the numerical tolerance", nil)
	}
	p, _ := v.Dims()
	basis := v.Slice(0, p, 0, keep).(*mat.Dense)
	variance := make([]float64, keep)
	for i := 0; i < keep; i++ {
		variance[i] = vals[i] - sigma0sq
	}
	return denseCopy(basis), variance, nil
}

func (b *PCAModelBuilder) fitJacobiSVDWide(X0 *mat.Dense, n int, sigma0sq float64) (*mat.Dense, []float64, error) {
	var cov mat.Dense
	cov.Mul(X0, X0.T())
	cov.Scale(1.0/float64(n-1), &cov)
	_, v, s, ok := linalg.ThinSVD(&cov)
	if !ok {
		return nil, nil, statismoerr.NewInternal("SVD failed to converge", nil)
	}
	keep := keepCount(s, sigma0sq, n-1)
	if keep == 0 {
		return nil, nil, statismoerr.NewInternal("no principal component survived the numerical tolerance", nil)
	}

	vTrunc := v.Slice(0, n, 0, keep).(*mat.Dense)
	var xtV mat.Dense
	xtV.Mul(X0.T(), vTrunc) // p x keep

	invSqrtS := make([]float64, keep)
	for i := 0; i < keep; i++ {
		invSqrtS[i] = 1.0 / math.Sqrt(s[i])
	}
	basis := linalg.ScaleColumns(&xtV, invSqrtS)
	invSqrtNMinus1 := 1.0 / math.Sqrt(float64(n-1))
	p, _ := basis.Dims()
	for i := 0; i < p; i++ {
		for j := 0; j < keep; j++ {
			basis.Set(i, j, basis.At(i, j)*invSqrtNMinus1)
		}
	}

	variance := make([]float64, keep)
	for i := 0; i < keep; i++ {
		variance[i] = s[i] - sigma0sq
	}
	return basis, variance, nil
}

// keepCount implements the uniform retention rule shared by every
// eigen-solver branch: keep = min(count(s - sigma0sq - epsilon > 0), maxKeep).
func keepCount(values []float64, sigma0sq float64, maxKeep int) int {
	count := 0
	for _, v := range values {
		if v-sigma0sq-linalg.Epsilon > 0 {
			count++
		}
	}
	if count > maxKeep {
		count = maxKeep
	}
	if count < 0 {
		count = 0
	}
	return count
}

func computeMean(rows [][]float64, p int) []float64 {
	n := len(rows)
	mean := make([]float64, p)
	column := make([]float64, n)
	for j := 0; j < p; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		mean[j] = stat.Mean(column, nil)
	}
	return mean
}

func centeredMatrix(rows [][]float64, mean []float64) *mat.Dense {
	n, p := len(rows), len(mean)
	data := make([]float64, n*p)
	for i, row := range rows {
		dst := data[i*p : (i+1)*p]
		copy(dst, row)
		floats.Sub(dst, mean)
	}
	return mat.NewDense(n, p, data)
}

// computeScoreMatrix projects each centered sample onto the basis,
// yielding a k x n score matrix (one row per component, one column per
// training sample, matching ModelInfo.ScoreMatrix's layout). Column
// projections are independent, so for large sample counts they are
// computed concurrently with errgroup.
func computeScoreMatrix(X0, basis *mat.Dense, variance []float64, sigma0sq float64) ([][]float64, error) {
	n, _ := X0.Dims()
	k := len(variance)
	scores := make([][]float64, k)
	for i := range scores {
		scores[i] = make([]float64, n)
	}

	project := func(row int) {
		r := mat.Row(nil, row, X0)
		rv := mat.NewVecDense(len(r), r)
		var t mat.VecDense
		t.MulVec(basis.T(), rv)
		for c := 0; c < k; c++ {
			sigma2 := variance[c]
			if sigma0sq > 0 {
				scores[c][row] = math.Sqrt(sigma2) / (sigma2 + sigma0sq) * t.AtVec(c)
			} else {
				scores[c][row] = t.AtVec(c) / math.Sqrt(sigma2)
			}
		}
	}

	if n < parallelScoreThreshold {
		for i := 0; i < n; i++ {
			project(i)
		}
		return scores, nil
	}

	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			project(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, statismoerr.NewInternal("failed to compute score matrix", err)
	}
	return scores, nil
}

func urisToDataInfo(uris []string) map[string]string {
	info := make(map[string]string, len(uris))
	for i, uri := range uris {
		info[fmt.Sprintf("uri_%d", i)] = uri
	}
	return info
}

func denseCopy(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Copy(m)
	return out
}
