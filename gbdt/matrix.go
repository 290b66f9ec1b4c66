package gbdt

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

const (
	// DefaultNumBins is the number of value bins per feature when WithNumBins is not given.
	DefaultNumBins = 256
	// MaxNumBins keeps every bin index, the missing bin included, inside a uint16.
	MaxNumBins = math.MaxUint16
)

// Entry is one non-missing cell of a column.
type Entry struct {
	Value float64
	Row   int
}

// MatrixOption configures a MatrixBuilder.
type MatrixOption func(*matrixConfig)

type matrixConfig struct {
	numBins    int
	missing    float64
	hasMissing bool
}

// WithNumBins sets the number of value bins computed per feature.
func WithNumBins(n int) MatrixOption {
	return func(c *matrixConfig) { c.numBins = n }
}

// WithMissingValue treats v as missing in addition to NaN.
func WithMissingValue(v float64) MatrixOption {
	return func(c *matrixConfig) {
		c.missing = v
		c.hasMissing = true
	}
}

// MatrixBuilder accumulates dense or sparse records and freezes them into a Matrix.
// A builder is single use: after Build every append fails.
type MatrixBuilder struct {
	numFeatures int
	cfg         matrixConfig

	columns [][]float64
	rows    int
	labels  []float64
	weights []float64
	built   bool
}

// NewMatrixBuilder returns a builder for records with numFeatures features.
func NewMatrixBuilder(numFeatures int, opts ...MatrixOption) *MatrixBuilder {
	cfg := matrixConfig{numBins: DefaultNumBins}
	for _, opt := range opts {
		opt(&cfg)
	}
	if numFeatures < 0 {
		numFeatures = 0
	}
	return &MatrixBuilder{
		numFeatures: numFeatures,
		cfg:         cfg,
		columns:     make([][]float64, numFeatures),
	}
}

func (b *MatrixBuilder) isMissing(v float64) bool {
	return math.IsNaN(v) || (b.cfg.hasMissing && v == b.cfg.missing)
}

func (b *MatrixBuilder) checkValue(op string, feature int, v float64) (float64, error) {
	if b.isMissing(v) {
		return math.NaN(), nil
	}
	if math.IsInf(v, 0) {
		return 0, errors.NewInvalidInputError(op, b.rows, feature, "infinite feature value")
	}
	return v, nil
}

// AppendDense appends one record holding a value for every feature.
// NaN, or the value configured with WithMissingValue, marks a missing cell.
func (b *MatrixBuilder) AppendDense(values []float64) error {
	if b.built {
		return errors.NewInvalidInputError("AppendDense", b.rows, -1, "matrix already built")
	}
	if len(values) != b.numFeatures {
		return errors.NewInvalidInputErrorf("AppendDense", b.rows, -1,
			"record has %d values, expected %d", len(values), b.numFeatures)
	}
	checked := make([]float64, len(values))
	for f, v := range values {
		cv, err := b.checkValue("AppendDense", f, v)
		if err != nil {
			return err
		}
		checked[f] = cv
	}
	for f, v := range checked {
		b.columns[f] = append(b.columns[f], v)
	}
	b.rows++
	return nil
}

// AppendSparse appends one record given as strictly increasing feature indices
// and their values. Features not listed are missing.
func (b *MatrixBuilder) AppendSparse(indices []int, values []float64) error {
	if b.built {
		return errors.NewInvalidInputError("AppendSparse", b.rows, -1, "matrix already built")
	}
	if len(indices) != len(values) {
		return errors.NewInvalidInputErrorf("AppendSparse", b.rows, -1,
			"%d indices but %d values", len(indices), len(values))
	}
	prev := -1
	for i, f := range indices {
		if f < 0 || f >= b.numFeatures {
			return errors.NewInvalidInputErrorf("AppendSparse", b.rows, f,
				"feature index out of range [0, %d)", b.numFeatures)
		}
		if f <= prev {
			return errors.NewInvalidInputError("AppendSparse", b.rows, f, "feature indices must be strictly increasing")
		}
		if _, err := b.checkValue("AppendSparse", f, values[i]); err != nil {
			return err
		}
		prev = f
	}

	next := 0
	for f := 0; f < b.numFeatures; f++ {
		v := math.NaN()
		if next < len(indices) && indices[next] == f {
			v, _ = b.checkValue("AppendSparse", f, values[next])
			next++
		}
		b.columns[f] = append(b.columns[f], v)
	}
	b.rows++
	return nil
}

// SetLabels sets the per-row labels. The length is checked by Build.
func (b *MatrixBuilder) SetLabels(labels []float64) {
	b.labels = append([]float64(nil), labels...)
}

// SetWeights sets the per-row weights. The length is checked by Build.
func (b *MatrixBuilder) SetWeights(weights []float64) {
	b.weights = append([]float64(nil), weights...)
}

// Build validates labels and weights, computes the per-feature cut points and
// quantizes every cell. The returned Matrix is immutable.
func (b *MatrixBuilder) Build() (*Matrix, error) {
	if b.built {
		return nil, errors.NewInvalidInputError("Build", -1, -1, "matrix already built")
	}
	if b.cfg.numBins < 2 || b.cfg.numBins > MaxNumBins {
		return nil, errors.NewConfigurationError("num_bins", "must be in [2, 65535]", b.cfg.numBins)
	}
	if b.rows == 0 {
		return nil, errors.NewInvalidInputError("Build", -1, -1, "matrix has no rows")
	}
	if b.labels != nil && len(b.labels) != b.rows {
		return nil, errors.NewInvalidInputErrorf("Build", -1, -1, "%d labels for %d rows", len(b.labels), b.rows)
	}
	for i, y := range b.labels {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, errors.NewInvalidInputError("Build", i, -1, "label is not finite")
		}
	}
	if b.weights != nil && len(b.weights) != b.rows {
		return nil, errors.NewInvalidInputErrorf("Build", -1, -1, "%d weights for %d rows", len(b.weights), b.rows)
	}
	for i, w := range b.weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, errors.NewInvalidInputError("Build", i, -1, "weight must be finite and non-negative")
		}
	}
	b.built = true

	m := &Matrix{
		rows:     b.rows,
		features: b.numFeatures,
		columns:  b.columns,
		sorted:   make([][]Entry, b.numFeatures),
		cuts:     make([][]float64, b.numFeatures),
		labels:   b.labels,
		weights:  b.weights,
		maxBins:  b.cfg.numBins,
	}
	for f := 0; f < m.features; f++ {
		m.sorted[f] = sortColumn(m.columns[f])
		m.cuts[f] = computeCuts(m.sorted[f], m.weights, b.cfg.numBins)
	}
	m.quantize()
	return m, nil
}

// FromDense builds a Matrix from a gonum matrix. NaN cells are missing.
// labels and weights may be nil.
func FromDense(x mat.Matrix, labels, weights []float64, opts ...MatrixOption) (*Matrix, error) {
	r, c := x.Dims()
	b := NewMatrixBuilder(c, opts...)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, x)
		if err := b.AppendDense(row); err != nil {
			return nil, err
		}
	}
	if labels != nil {
		b.SetLabels(labels)
	}
	if weights != nil {
		b.SetWeights(weights)
	}
	return b.Build()
}

// Matrix is an immutable N x M feature matrix. It keeps column-major values with
// NaN as the missing sentinel, each column's non-missing entries sorted by value,
// and a row-major quantized bin matrix used by the histogram builder.
type Matrix struct {
	rows     int
	features int

	columns [][]float64
	sorted  [][]Entry
	labels  []float64
	weights []float64

	cuts    [][]float64
	bins    []uint16
	maxBins int
}

func sortColumn(col []float64) []Entry {
	entries := make([]Entry, 0, len(col))
	for row, v := range col {
		if !math.IsNaN(v) {
			entries = append(entries, Entry{Value: v, Row: row})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value < entries[j].Value
		}
		return entries[i].Row < entries[j].Row
	})
	return entries
}

func (m *Matrix) quantize() {
	m.bins = make([]uint16, m.rows*m.features)
	for f := 0; f < m.features; f++ {
		cuts := m.cuts[f]
		missing := uint16(len(cuts))
		for row, v := range m.columns[f] {
			idx := row*m.features + f
			if math.IsNaN(v) {
				m.bins[idx] = missing
				continue
			}
			m.bins[idx] = uint16(searchBin(cuts, v))
		}
	}
}

// searchBin returns the first i with cuts[i] >= v, clamped to the last value bin.
func searchBin(cuts []float64, v float64) int {
	i := sort.SearchFloat64s(cuts, v)
	if i >= len(cuts) {
		i = len(cuts) - 1
	}
	return i
}

// RowCount returns N.
func (m *Matrix) RowCount() int { return m.rows }

// FeatureCount returns M.
func (m *Matrix) FeatureCount() int { return m.features }

// ColumnView returns the non-missing entries of feature f sorted by value, ties by row.
// The slice is shared and must not be modified.
func (m *Matrix) ColumnView(f int) []Entry { return m.sorted[f] }

// Value returns the value at (row, f) and whether it is present.
func (m *Matrix) Value(row, f int) (float64, bool) {
	v := m.columns[f][row]
	return v, !math.IsNaN(v)
}

// Row copies the given row into dst, growing it if needed. Missing cells are NaN.
func (m *Matrix) Row(row int, dst []float64) []float64 {
	if cap(dst) < m.features {
		dst = make([]float64, m.features)
	}
	dst = dst[:m.features]
	for f := range dst {
		dst[f] = m.columns[f][row]
	}
	return dst
}

// Labels returns the labels, or nil when none were set.
func (m *Matrix) Labels() []float64 { return m.labels }

// Weights returns the per-row weights, or nil when the matrix is unweighted.
func (m *Matrix) Weights() []float64 { return m.weights }

// Cuts returns the inclusive upper bound of every value bin of feature f.
func (m *Matrix) Cuts(f int) []float64 { return m.cuts[f] }

// NumBins returns the number of value bins of feature f, excluding the missing bin.
func (m *Matrix) NumBins(f int) int { return len(m.cuts[f]) }

// MaxBins returns the num_bins the matrix was quantized with.
func (m *Matrix) MaxBins() int { return m.maxBins }

// MissingBin returns the index of the reserved missing bin of feature f.
func (m *Matrix) MissingBin(f int) int { return len(m.cuts[f]) }

// BinIndex returns the quantized bin of (row, f).
func (m *Matrix) BinIndex(row, f int) int { return int(m.bins[row*m.features+f]) }

func (m *Matrix) rowBins(row int) []uint16 {
	return m.bins[row*m.features : (row+1)*m.features]
}
