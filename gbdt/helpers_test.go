package gbdt

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// stepData returns the 100-row, single-feature set with x = i/100 and
// label = round(x).
func stepData(t testing.TB) *Matrix {
	t.Helper()
	b := NewMatrixBuilder(1)
	labels := make([]float64, 100)
	for i := 0; i < 100; i++ {
		x := float64(i) / 100
		require.NoError(t, b.AppendDense([]float64{x}))
		labels[i] = math.Round(x)
	}
	b.SetLabels(labels)
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func stepDataDense() *mat.Dense {
	x := mat.NewDense(100, 1, nil)
	for i := 0; i < 100; i++ {
		x.Set(i, 0, float64(i)/100)
	}
	return x
}

// synthetic returns n rows of f features drawn from a seeded PCG with a label
// produced by fn. Roughly missingRate of the cells are NaN.
func synthetic(t testing.TB, n, f int, seed uint64, missingRate float64, fn func(row []float64) float64) (*mat.Dense, []float64) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	x := mat.NewDense(n, f, nil)
	y := make([]float64, n)
	row := make([]float64, f)
	for i := 0; i < n; i++ {
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		y[i] = fn(row)
		for j := range row {
			if missingRate > 0 && rng.Float64() < missingRate {
				row[j] = math.NaN()
			}
		}
		x.SetRow(i, row)
	}
	return x, y
}

func mustMatrix(t testing.TB, x mat.Matrix, labels, weights []float64, opts ...MatrixOption) *Matrix {
	t.Helper()
	m, err := FromDense(x, labels, weights, opts...)
	require.NoError(t, err)
	return m
}

func quietParams() Params {
	p := DefaultParams()
	p.Verbosity = 0
	return p
}
