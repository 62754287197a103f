// Package linalg is the thin linear-algebra kernel every higher
// component builds on: thin SVD, descending symmetric
// eigendecomposition, and diagonal pseudo-inverse/scaling helpers over
// gonum. It owns no domain semantics, only generic matrix plumbing.
package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Epsilon is the global numerical tolerance below which singular
// values/eigenvalues are treated as zero.
const Epsilon = 1e-5

// ThinSVD factorizes m = U * diag(s) * V^T using gonum's thin SVD and
// returns U, V and the singular values in descending order (gonum
// already returns them descending). ok is false if the factorization
// failed to converge.
func ThinSVD(m *mat.Dense) (u, v *mat.Dense, s []float64, ok bool) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		return nil, nil, nil, false
	}
	u = &mat.Dense{}
	v = &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)
	s = svd.Values(nil)
	return u, v, s, true
}

// SymEigenDescending eigendecomposes a symmetric matrix and returns the
// eigenvectors and eigenvalues sorted descending (gonum's EigenSym
// returns them ascending; this reverses both in lockstep so eigenvector
// columns stay paired with their eigenvalue).
func SymEigenDescending(m *mat.SymDense) (vecs *mat.Dense, vals []float64, ok bool) {
	var eig mat.EigenSym
	if !eig.Factorize(m, true) {
		return nil, nil, false
	}
	ascVals := eig.Values(nil)
	var ascVecs mat.Dense
	eig.VectorsTo(&ascVecs)

	n := len(ascVals)
	vals = make([]float64, n)
	vecs = mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		src := n - 1 - i
		vals[i] = ascVals[src]
		for r := 0; r < n; r++ {
			vecs.Set(r, i, ascVecs.At(r, src))
		}
	}
	return vecs, vals, true
}

// ToSymmetric copies the square matrix m into a mat.SymDense, assuming
// it is symmetric up to floating point noise (the caller is responsible
// for having built m that way, e.g. X^T*X).
func ToSymmetric(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m.At(i, j))
		}
	}
	return sym
}

// PseudoInverseDiag inverts every entry of values whose magnitude
// exceeds eps and zeroes the rest, implementing a diagonal
// pseudo-inverse.
func PseudoInverseDiag(values []float64, eps float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.Abs(v) > eps {
			out[i] = 1.0 / v
		}
	}
	return out
}

// ScaleColumns returns a copy of m with column j scaled by scales[j].
func ScaleColumns(m *mat.Dense, scales []float64) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c && j < len(scales); j++ {
		for i := 0; i < r; i++ {
			out.Set(i, j, m.At(i, j)*scales[j])
		}
	}
	return out
}

// SqrtVector returns the element-wise square root of a non-negative
// vector, clamping tiny negative noise to zero before taking the root.
func SqrtVector(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if x < 0 {
			x = 0
		}
		out[i] = math.Sqrt(x)
	}
	return out
}

// RowSlice extracts the rows listed in indices from m into a new dense
// matrix, preserving column count.
func RowSlice(m *mat.Dense, indices []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for newRow, oldRow := range indices {
		for j := 0; j < c; j++ {
			out.Set(newRow, j, m.At(oldRow, j))
		}
	}
	return out
}

// DenseFromRows builds a *mat.Dense from row-major [][]float64 data.
func DenseFromRows(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return mat.NewDense(0, 0, nil)
	}
	n, p := len(rows), len(rows[0])
	data := make([]float64, n*p)
	for i, row := range rows {
		copy(data[i*p:(i+1)*p], row)
	}
	return mat.NewDense(n, p, data)
}

// RowsFromDense converts a *mat.Dense back to row-major [][]float64.
func RowsFromDense(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}
