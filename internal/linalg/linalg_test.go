package linalg

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestThinSVDReconstructs(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	u, v, s, ok := ThinSVD(m)
	if !ok {
		t.Fatalf("ThinSVD failed to factorize")
	}
	sigma := mat.NewDiagDense(len(s), s)
	var us mat.Dense
	us.Mul(u, sigma)
	var recon mat.Dense
	recon.Mul(&us, v.T())

	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.Abs(recon.At(i, j)-m.At(i, j)) > 1e-9 {
				t.Errorf("reconstruction mismatch at [%d,%d]: got %v want %v", i, j, recon.At(i, j), m.At(i, j))
			}
		}
	}
}

func TestSymEigenDescendingOrdersValues(t *testing.T) {
	sym := mat.NewSymDense(3, []float64{
		4, 0, 0,
		0, 1, 0,
		0, 0, 2,
	})
	_, vals, ok := SymEigenDescending(sym)
	if !ok {
		t.Fatalf("SymEigenDescending failed to factorize")
	}
	want := []float64{4, 2, 1}
	for i := range want {
		if math.Abs(vals[i]-want[i]) > 1e-9 {
			t.Errorf("vals[%d] = %v, want %v", i, vals[i], want[i])
		}
	}
}

func TestPseudoInverseDiag(t *testing.T) {
	got := PseudoInverseDiag([]float64{4, 0, 1e-10, 0.5}, Epsilon)
	want := []float64{0.25, 0, 0, 2}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("PseudoInverseDiag[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRowSliceAndDenseRoundTrip(t *testing.T) {
	rows := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	dense := DenseFromRows(rows)
	sliced := RowSlice(dense, []int{2, 0})
	if sliced.At(0, 0) != 5 || sliced.At(1, 0) != 1 {
		t.Errorf("RowSlice picked wrong rows: %v", RowsFromDense(sliced))
	}

	back := RowsFromDense(dense)
	for i := range rows {
		for j := range rows[i] {
			if back[i][j] != rows[i][j] {
				t.Errorf("round trip mismatch at [%d,%d]", i, j)
			}
		}
	}
}
