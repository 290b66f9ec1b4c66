package gbdt

import (
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/core/parallel"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// predictParallelThreshold is the row count below which prediction stays sequential.
const predictParallelThreshold = 256

// PredictorOption configures a Predictor.
type PredictorOption func(*Predictor)

// WithWorkers sets the number of prediction goroutines; 0 or less uses all CPUs.
func WithWorkers(n int) PredictorOption {
	return func(p *Predictor) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		p.workers = n
	}
}

// Predictor evaluates a finished ensemble over many rows in parallel.
// Rows are independent, so workers share only read-only state.
type Predictor struct {
	workers int
}

// NewPredictor returns a predictor.
func NewPredictor(opts ...PredictorOption) *Predictor {
	p := &Predictor{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Predictor) check(op string, e *Ensemble, features int) error {
	if e == nil {
		return errors.NewValueError(op, "ensemble is nil")
	}
	if features < e.NumFeatures {
		return errors.NewDimensionError(op, e.NumFeatures, features, 1)
	}
	return nil
}

// PredictRaw returns the margins of every row as an N x K matrix.
func (p *Predictor) PredictRaw(e *Ensemble, m *Matrix) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "Predictor.PredictRaw")
	if err := p.check("PredictRaw", e, m.FeatureCount()); err != nil {
		return nil, err
	}
	raw := p.raw(e, m)
	return mat.NewDense(m.RowCount(), e.NumOutputs, raw), nil
}

// Predict applies link to the margins of every row. The result is N x 1 for the
// identity and logistic links and N x K for softmax.
func (p *Predictor) Predict(e *Ensemble, m *Matrix, link Link) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "Predictor.Predict")
	if err := p.check("Predict", e, m.FeatureCount()); err != nil {
		return nil, err
	}
	raw := p.raw(e, m)
	p.applyLink(raw, m.RowCount(), e.NumOutputs, link)
	return mat.NewDense(m.RowCount(), e.NumOutputs, raw), nil
}

// PredictMatrix predicts directly from a gonum matrix without quantizing it.
// NaN cells are missing.
func (p *Predictor) PredictMatrix(e *Ensemble, x mat.Matrix, link Link) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "Predictor.PredictMatrix")
	rows, cols := x.Dims()
	if err := p.check("PredictMatrix", e, cols); err != nil {
		return nil, err
	}
	k := e.NumOutputs
	raw := make([]float64, rows*k)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, p.workers, func(start, end int) {
		row := make([]float64, cols)
		for r := start; r < end; r++ {
			mat.Row(row, r, x)
			e.PredictRawRow(row, raw[r*k:(r+1)*k])
		}
	})
	p.applyLink(raw, rows, k, link)
	return mat.NewDense(rows, k, raw), nil
}

// PredictLeaf returns, for every row, the leaf index reached in each tree (N x trees).
func (p *Predictor) PredictLeaf(e *Ensemble, m *Matrix) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "Predictor.PredictLeaf")
	if err := p.check("PredictLeaf", e, m.FeatureCount()); err != nil {
		return nil, err
	}
	if len(e.Trees) == 0 {
		return nil, errors.NewValueError("PredictLeaf", "ensemble has no trees")
	}
	n, t := m.RowCount(), len(e.Trees)
	leaves := make([]float64, n*t)
	parallel.ParallelizeWithThreshold(n, predictParallelThreshold, p.workers, func(start, end int) {
		row := make([]float64, m.FeatureCount())
		for r := start; r < end; r++ {
			row = m.Row(r, row)
			for i, tree := range e.Trees {
				leaves[r*t+i] = float64(tree.LeafIndex(row))
			}
		}
	})
	return mat.NewDense(n, t, leaves), nil
}

func (p *Predictor) raw(e *Ensemble, m *Matrix) []float64 {
	out := make([]float64, m.RowCount()*e.NumOutputs)
	parallel.ParallelizeWithThreshold(m.RowCount(), predictParallelThreshold, p.workers, func(start, end int) {
		e.predictRows(m, start, end, out)
	})
	return out
}

func (p *Predictor) applyLink(raw []float64, rows, k int, link Link) {
	if link == LinkIdentity {
		return
	}
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, p.workers, func(start, end int) {
		buf := make([]float64, k)
		for r := start; r < end; r++ {
			row := raw[r*k : (r+1)*k]
			link.Apply(row, buf)
			copy(row, buf)
		}
	})
}
