package gbdt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/core/parallel"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

func regressionGradients(m *Matrix, labels []float64) []GradientPair {
	g := make([]GradientPair, m.RowCount())
	for i, y := range labels {
		g[i] = GradientPair{Grad: -y, Hess: 1}
	}
	return g
}

func growerFixture(t *testing.T) (*Matrix, []GradientPair) {
	t.Helper()
	x, y := synthetic(t, 2000, 4, 11, 0.05, func(row []float64) float64 {
		v := 2 * row[0]
		if row[1] > 0 {
			v += 1
		}
		return v
	})
	m := mustMatrix(t, x, y, nil)
	return m, regressionGradients(m, y)
}

func TestGrowMaxDepthZeroIsSingleLeaf(t *testing.T) {
	m, gpairs := growerFixture(t)
	for _, policy := range []GrowPolicy{GrowDepthWise, GrowLossGuide} {
		cfg := GrowerConfig{Policy: policy, MaxDepth: 0, MaxLeaves: 8, Regularization: Regularization{Lambda: 1}}
		tree, stats := NewGrower(m, nil, cfg).Grow(allRows(m.RowCount()), gpairs, []int{0, 1, 2, 3})

		require.Len(t, tree.Nodes, 1, policy.String())
		assert.True(t, tree.Nodes[0].IsLeaf())
		total := nodeStats(gpairs)
		assert.InDelta(t, -total.SumGrad/(total.SumHess+1), tree.Nodes[0].Weight, 1e-12)
		assert.Equal(t, 1, stats.Leaves)
		assert.Equal(t, 0, stats.Splits)
	}
}

func TestGrowDepthWiseRespectsDepth(t *testing.T) {
	m, gpairs := growerFixture(t)
	cfg := GrowerConfig{Policy: GrowDepthWise, MaxDepth: 3, Regularization: Regularization{Lambda: 1}}
	tree, stats := NewGrower(m, nil, cfg).Grow(allRows(m.RowCount()), gpairs, []int{0, 1, 2, 3})

	assert.LessOrEqual(t, tree.Depth(), 3)
	assert.LessOrEqual(t, tree.NumLeaves(), 8)
	assert.Equal(t, stats.Splits+1, stats.Leaves)
	assert.Equal(t, stats.Splits, stats.SubtractedHistograms)
	assert.Equal(t, stats.Splits+1, stats.DirectHistograms)

	for id, n := range tree.Nodes {
		if n.IsLeaf() {
			assert.Equal(t, -1, n.Right)
			continue
		}
		assert.Greater(t, n.Left, id)
		assert.Greater(t, n.Right, id)
		assert.Equal(t, n.Depth+1, tree.Nodes[n.Left].Depth)
		assert.Equal(t, n.Count, tree.Nodes[n.Left].Count+tree.Nodes[n.Right].Count)
		assert.Greater(t, n.Gain, 0.0)
	}
}

func TestGrowLossGuideRespectsMaxLeaves(t *testing.T) {
	m, gpairs := growerFixture(t)
	for _, maxLeaves := range []int{1, 2, 5, 16} {
		cfg := GrowerConfig{Policy: GrowLossGuide, MaxDepth: -1, MaxLeaves: maxLeaves, Regularization: Regularization{Lambda: 1}}
		tree, _ := NewGrower(m, nil, cfg).Grow(allRows(m.RowCount()), gpairs, []int{0, 1, 2, 3})
		assert.LessOrEqual(t, tree.NumLeaves(), maxLeaves)
		assert.Equal(t, maxLeaves, tree.NumLeaves(), "the fixture always has a positive-gain split")
	}
}

func TestGrowLossGuideExpandsBestGainFirst(t *testing.T) {
	m, gpairs := growerFixture(t)
	cfg := GrowerConfig{Policy: GrowLossGuide, MaxDepth: -1, MaxLeaves: 2, Regularization: Regularization{Lambda: 1}}
	tree, _ := NewGrower(m, nil, cfg).Grow(allRows(m.RowCount()), gpairs, []int{0, 1, 2, 3})

	h := NewHistogramBuilder(m, nil).Build(allRows(m.RowCount()), gpairs)
	want, ok := NewSplitFinder(cfg.Regularization, nil).FindBestSplit(h, nodeStats(gpairs), []int{0, 1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, want.Feature, tree.Nodes[0].Feature)
	assert.Equal(t, m.Cuts(want.Feature)[want.Bin], tree.Nodes[0].Threshold)
}

func TestGrowDeterministicAcrossWorkers(t *testing.T) {
	x, y := synthetic(t, 9000, 5, 21, 0.1, func(row []float64) float64 { return row[0] - row[2] })
	m := mustMatrix(t, x, y, nil)
	gpairs := regressionGradients(m, y)
	cfg := GrowerConfig{Policy: GrowDepthWise, MaxDepth: 5, Regularization: Regularization{Lambda: 1}}

	var reference *Tree
	for _, workers := range []int{1, 3, 8} {
		pool := parallel.NewPool(workers)
		tree, _ := NewGrower(m, pool, cfg).Grow(allRows(m.RowCount()), gpairs, []int{0, 1, 2, 3, 4})
		pool.Close()
		if reference == nil {
			reference = tree
			continue
		}
		assert.Equal(t, reference.Nodes, tree.Nodes, "workers=%d", workers)
	}
}

func TestGrowDegenerateNode(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer errors.SetZerologWarnFunc(nil)

	m := mustMatrix(t, mat.NewDense(4, 1, []float64{1, 2, 3, 4}), nil, nil)
	gpairs := []GradientPair{{Grad: 1}, {Grad: -1}, {Grad: 1}, {Grad: -1}}
	cfg := GrowerConfig{Policy: GrowDepthWise, MaxDepth: 3}

	g := NewGrower(m, nil, cfg)
	g.SetRound(7)
	tree, stats := g.Grow(allRows(4), gpairs, []int{0})

	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, 0.0, tree.Nodes[0].Weight)
	assert.Equal(t, 1, stats.DegenerateNodes)
	require.Len(t, warnings, 1)

	var numErr *errors.NumericalInstabilityError
	require.True(t, errors.As(warnings[0], &numErr))
	assert.Equal(t, 7, numErr.Iteration)
	assert.Equal(t, 0, numErr.Node)
}

func TestParseGrowPolicy(t *testing.T) {
	p, err := ParseGrowPolicy("LossGuide")
	require.NoError(t, err)
	assert.Equal(t, GrowLossGuide, p)

	p, err = ParseGrowPolicy("")
	require.NoError(t, err)
	assert.Equal(t, GrowDepthWise, p)

	_, err = ParseGrowPolicy("leafwise")
	assert.True(t, errors.IsConfiguration(err))
}

func TestTreeMissingFollowsDefault(t *testing.T) {
	tree := &Tree{Nodes: []Node{
		{Feature: 0, Threshold: 0.5, DefaultLeft: true, Left: 1, Right: 2},
		{Feature: -1, Left: -1, Right: -1, Weight: -1, Depth: 1},
		{Feature: 1, Threshold: 2, DefaultLeft: false, Left: 3, Right: 4, Depth: 1},
		{Feature: -1, Left: -1, Right: -1, Weight: 2, Depth: 2},
		{Feature: -1, Left: -1, Right: -1, Weight: 3, Depth: 2},
	}}
	nan := math.NaN()

	assert.Equal(t, -1.0, tree.Evaluate([]float64{nan, 0}), "missing goes left at the root")
	assert.Equal(t, -1.0, tree.Evaluate([]float64{0.5, 0}), "threshold is inclusive")
	assert.Equal(t, 2.0, tree.Evaluate([]float64{0.6, 2}))
	assert.Equal(t, 3.0, tree.Evaluate([]float64{0.6, nan}), "missing goes right at node 2")
	assert.Equal(t, 4, tree.LeafIndex([]float64{1, 9}))
	assert.Equal(t, 3, tree.NumLeaves())
	assert.Equal(t, 2, tree.Depth())
}

func TestGrowMissingLeftTraversal(t *testing.T) {
	nan := math.NaN()
	x := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, nan, nan})
	labels := []float64{-1, -1, -1, -1, 1, 1, -1, -1}
	m := mustMatrix(t, x, labels, nil)
	gpairs := regressionGradients(m, labels)

	cfg := GrowerConfig{Policy: GrowDepthWise, MaxDepth: 1}
	tree, _ := NewGrower(m, nil, cfg).Grow(allRows(8), gpairs, []int{0})
	require.False(t, tree.Nodes[0].IsLeaf())
	assert.True(t, tree.Nodes[0].DefaultLeft)
	assert.Equal(t, 4.5, tree.Nodes[0].Threshold)

	left := tree.Evaluate([]float64{1})
	assert.Equal(t, left, tree.Evaluate([]float64{nan}))
	assert.Less(t, left, 0.0)
}
