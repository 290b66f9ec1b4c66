package gbdt

import (
	"github.com/YuminosukeSato/hgboost/core/parallel"
)

// histogramChunkRows is the number of rows accumulated into one private
// histogram. Chunk boundaries depend only on the node's row count, so the
// ordered reduction gives the same sums for any pool size.
const histogramChunkRows = 2048

// GradientPair is the first and second order gradient of the loss for one row.
type GradientPair struct {
	Grad float64
	Hess float64
}

// Bin accumulates the gradient statistics of the rows falling into one
// (feature, bin) cell of a node.
type Bin struct {
	SumGrad float64
	SumHess float64
	Count   int
}

// GradStats is the gradient summary of a whole node. It has the shape of a Bin.
type GradStats = Bin

// Add returns b + o.
func (b Bin) Add(o Bin) Bin {
	return Bin{SumGrad: b.SumGrad + o.SumGrad, SumHess: b.SumHess + o.SumHess, Count: b.Count + o.Count}
}

// Sub returns b - o.
func (b Bin) Sub(o Bin) Bin {
	return Bin{SumGrad: b.SumGrad - o.SumGrad, SumHess: b.SumHess - o.SumHess, Count: b.Count - o.Count}
}

func (b *Bin) addPair(g GradientPair) {
	b.SumGrad += g.Grad
	b.SumHess += g.Hess
	b.Count++
}

// Histogram holds the bins of every feature for one node. The bins of feature f
// are followed by its missing bin.
type Histogram struct {
	offsets []int
	data    []Bin
}

// Feature returns the bins of feature f, the trailing missing bin included.
func (h *Histogram) Feature(f int) []Bin {
	return h.data[h.offsets[f]:h.offsets[f+1]]
}

// Missing returns the missing bin of feature f.
func (h *Histogram) Missing(f int) Bin {
	return h.data[h.offsets[f+1]-1]
}

// Total returns the sum over all bins of feature f.
func (h *Histogram) Total(f int) Bin {
	var t Bin
	for _, b := range h.Feature(f) {
		t = t.Add(b)
	}
	return t
}

// NumFeatures returns the number of features covered by the histogram.
func (h *Histogram) NumFeatures() int {
	return len(h.offsets) - 1
}

func (h *Histogram) addInto(o *Histogram) {
	for i := range h.data {
		h.data[i] = h.data[i].Add(o.data[i])
	}
}

// HistogramBuilder builds node histograms over the quantized bins of a Matrix.
type HistogramBuilder struct {
	m       *Matrix
	pool    *parallel.Pool
	offsets []int
}

// NewHistogramBuilder returns a builder for m. pool may be nil for sequential builds.
func NewHistogramBuilder(m *Matrix, pool *parallel.Pool) *HistogramBuilder {
	offsets := make([]int, m.FeatureCount()+1)
	for f := 0; f < m.FeatureCount(); f++ {
		offsets[f+1] = offsets[f] + m.NumBins(f) + 1
	}
	return &HistogramBuilder{m: m, pool: pool, offsets: offsets}
}

func (b *HistogramBuilder) newHistogram() *Histogram {
	return &Histogram{offsets: b.offsets, data: make([]Bin, b.offsets[len(b.offsets)-1])}
}

// Build accumulates gpairs of the given rows into a new histogram.
// gpairs is indexed by row.
func (b *HistogramBuilder) Build(rows []int, gpairs []GradientPair) *Histogram {
	n := parallel.NumChunks(len(rows), histogramChunkRows)
	if n <= 1 {
		h := b.newHistogram()
		b.accumulate(h, rows, gpairs)
		return h
	}

	locals := make([]*Histogram, n)
	b.pool.Run(len(rows), histogramChunkRows, func(idx, start, end int) {
		local := b.newHistogram()
		b.accumulate(local, rows[start:end], gpairs)
		locals[idx] = local
	})

	h := locals[0]
	for _, local := range locals[1:] {
		h.addInto(local)
	}
	return h
}

func (b *HistogramBuilder) accumulate(h *Histogram, rows []int, gpairs []GradientPair) {
	for _, row := range rows {
		g := gpairs[row]
		for f, bin := range b.m.rowBins(row) {
			h.data[b.offsets[f]+int(bin)].addPair(g)
		}
	}
}

// Subtract returns parent - sibling, the histogram of the other child.
func (b *HistogramBuilder) Subtract(parent, sibling *Histogram) *Histogram {
	h := b.newHistogram()
	for i := range h.data {
		h.data[i] = parent.data[i].Sub(sibling.data[i])
	}
	return h
}
