package gbdt

import (
	"container/heap"
	"math"
	"strings"

	"github.com/YuminosukeSato/hgboost/core/parallel"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
	"github.com/YuminosukeSato/hgboost/pkg/log"
)

// GrowPolicy selects the order in which nodes are expanded.
type GrowPolicy int

const (
	// GrowDepthWise expands every node of a level before the next level.
	GrowDepthWise GrowPolicy = iota
	// GrowLossGuide always expands the open node with the highest gain.
	GrowLossGuide
)

func (p GrowPolicy) String() string {
	switch p {
	case GrowDepthWise:
		return "depthwise"
	case GrowLossGuide:
		return "lossguide"
	default:
		return "unknown"
	}
}

// ParseGrowPolicy parses "depthwise" or "lossguide".
func ParseGrowPolicy(s string) (GrowPolicy, error) {
	switch strings.ToLower(s) {
	case "depthwise", "":
		return GrowDepthWise, nil
	case "lossguide":
		return GrowLossGuide, nil
	}
	return GrowDepthWise, errors.NewConfigurationError("grow_policy", "must be depthwise or lossguide", s)
}

// NodeState is the expansion state of a node while its tree is grown.
type NodeState int

const (
	// NodeQueued nodes wait for their histograms.
	NodeQueued NodeState = iota
	// NodeHistogrammed nodes have built histograms and await split search.
	NodeHistogrammed
	// NodeSplit nodes were expanded into two children.
	NodeSplit
	// NodeLeaf nodes are final and carry a leaf weight.
	NodeLeaf
)

func (s NodeState) String() string {
	switch s {
	case NodeQueued:
		return "queued"
	case NodeHistogrammed:
		return "histogrammed"
	case NodeSplit:
		return "split"
	case NodeLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// GrowerConfig bounds the shape of grown trees.
type GrowerConfig struct {
	Policy GrowPolicy
	// MaxDepth limits node depth; 0 yields a single leaf and a negative value
	// disables the limit.
	MaxDepth int
	// MaxLeaves caps the number of leaves; 0 disables the cap.
	MaxLeaves int
	Regularization
}

// GrowStats describes one grown tree.
type GrowStats struct {
	Leaves               int
	Depth                int
	Splits               int
	DegenerateNodes      int
	DirectHistograms     int
	SubtractedHistograms int
}

// Grower grows one regression tree per call from the current gradients.
type Grower struct {
	m      *Matrix
	cfg    GrowerConfig
	hb     *HistogramBuilder
	sf     *SplitFinder
	logger log.Logger
	round  int
}

// NewGrower returns a grower over m sharing the session's pool.
func NewGrower(m *Matrix, pool *parallel.Pool, cfg GrowerConfig) *Grower {
	return &Grower{
		m:      m,
		cfg:    cfg,
		hb:     NewHistogramBuilder(m, pool),
		sf:     NewSplitFinder(cfg.Regularization, pool),
		logger: log.GetLoggerWithName("gbdt.grower"),
	}
}

// SetRound records the boosting round reported with numerical warnings.
func (g *Grower) SetRound(round int) { g.round = round }

// SetLogger replaces the grower's logger.
func (g *Grower) SetLogger(l log.Logger) { g.logger = l }

type expandNode struct {
	id         int
	depth      int
	rows       []int
	hist       *Histogram
	total      GradStats
	state      NodeState
	split      Split
	degenerate bool
}

// Grow builds a tree over rows using gpairs (indexed by row) and the candidate features.
func (g *Grower) Grow(rows []int, gpairs []GradientPair, features []int) (*Tree, GrowStats) {
	t := &Tree{}
	var stats GrowStats

	var total GradStats
	for _, r := range rows {
		total.addPair(gpairs[r])
	}
	root := g.newNode(t, rows, total, 0, &stats)
	root.hist = g.hb.Build(rows, gpairs)
	root.state = NodeHistogrammed
	stats.DirectHistograms++

	switch g.cfg.Policy {
	case GrowLossGuide:
		g.growLossGuide(t, root, gpairs, features, &stats)
	default:
		g.growDepthWise(t, root, gpairs, features, &stats)
	}

	stats.Leaves = t.NumLeaves()
	stats.Depth = t.Depth()
	return t, stats
}

func (g *Grower) growDepthWise(t *Tree, root *expandNode, gpairs []GradientPair, features []int, stats *GrowStats) {
	leaves := 1
	level := []*expandNode{root}
	for len(level) > 0 {
		var next []*expandNode
		for _, n := range level {
			if g.cfg.MaxLeaves > 0 && leaves >= g.cfg.MaxLeaves {
				g.finalize(n)
				continue
			}
			if !g.evaluate(n, features) {
				g.finalize(n)
				continue
			}
			left, right := g.applySplit(t, n, gpairs, stats)
			leaves++
			next = append(next, left, right)
		}
		level = next
	}
}

func (g *Grower) growLossGuide(t *Tree, root *expandNode, gpairs []GradientPair, features []int, stats *GrowStats) {
	open := &gainQueue{}
	if g.evaluate(root, features) {
		heap.Push(open, root)
	} else {
		g.finalize(root)
	}

	leaves := 1
	for open.Len() > 0 {
		n := heap.Pop(open).(*expandNode)
		if g.cfg.MaxLeaves > 0 && leaves >= g.cfg.MaxLeaves {
			g.finalize(n)
			continue
		}
		left, right := g.applySplit(t, n, gpairs, stats)
		leaves++
		for _, child := range []*expandNode{left, right} {
			if g.evaluate(child, features) {
				heap.Push(open, child)
			} else {
				g.finalize(child)
			}
		}
	}
}

// newNode appends a queued node to t. Its weight is computed immediately so
// degenerate statistics are caught before any split search.
func (g *Grower) newNode(t *Tree, rows []int, total GradStats, depth int, stats *GrowStats) *expandNode {
	id := len(t.Nodes)
	n := &expandNode{id: id, depth: depth, rows: rows, total: total, state: NodeQueued}

	weight := g.cfg.Weight(total)
	if total.SumHess <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		n.degenerate = true
		weight = 0
		stats.DegenerateNodes++
		errors.Warn(errors.NewNodeInstabilityError("leaf_weight",
			[]float64{total.SumGrad, total.SumHess}, g.round, id))
		g.logger.Debug("Degenerate node forced to leaf",
			log.RoundKey, g.round, log.NodeKey, id, log.DepthKey, depth)
	}

	t.Nodes = append(t.Nodes, Node{
		Feature: -1,
		Left:    -1,
		Right:   -1,
		Weight:  weight,
		Cover:   total.SumHess,
		Count:   total.Count,
		Depth:   depth,
	})
	return n
}

// evaluate searches a split for n and reports whether n can be expanded.
func (g *Grower) evaluate(n *expandNode, features []int) bool {
	if n.degenerate {
		return false
	}
	if g.cfg.MaxDepth >= 0 && n.depth >= g.cfg.MaxDepth {
		return false
	}
	split, ok := g.sf.FindBestSplit(n.hist, n.total, features)
	if !ok {
		return false
	}
	n.split = split
	return true
}

func (g *Grower) finalize(n *expandNode) {
	n.state = NodeLeaf
	n.hist = nil
	n.rows = nil
}

// applySplit turns n into an internal node and returns its two children with
// their histograms. The smaller child is built directly, the other by subtraction.
func (g *Grower) applySplit(t *Tree, n *expandNode, gpairs []GradientPair, stats *GrowStats) (*expandNode, *expandNode) {
	sp := n.split
	sp.Threshold = g.m.Cuts(sp.Feature)[sp.Bin]
	missingBin := g.m.MissingBin(sp.Feature)

	leftRows := make([]int, 0, sp.Left.Count)
	rightRows := make([]int, 0, sp.Right.Count)
	for _, r := range n.rows {
		bin := g.m.BinIndex(r, sp.Feature)
		goLeft := bin <= sp.Bin
		if bin == missingBin {
			goLeft = sp.DefaultLeft
		}
		if goLeft {
			leftRows = append(leftRows, r)
		} else {
			rightRows = append(rightRows, r)
		}
	}

	left := g.newNode(t, leftRows, sp.Left, n.depth+1, stats)
	right := g.newNode(t, rightRows, sp.Right, n.depth+1, stats)

	node := &t.Nodes[n.id]
	node.Feature = sp.Feature
	node.Threshold = sp.Threshold
	node.DefaultLeft = sp.DefaultLeft
	node.Gain = sp.Gain
	node.Left = left.id
	node.Right = right.id

	small, large := left, right
	if len(rightRows) < len(leftRows) {
		small, large = right, left
	}
	small.hist = g.hb.Build(small.rows, gpairs)
	large.hist = g.hb.Subtract(n.hist, small.hist)
	small.state, large.state = NodeHistogrammed, NodeHistogrammed
	stats.DirectHistograms++
	stats.SubtractedHistograms++
	stats.Splits++

	n.state = NodeSplit
	n.hist = nil
	n.rows = nil
	return left, right
}

// gainQueue is a max-heap of expandable nodes by gain, ties broken by node id.
type gainQueue []*expandNode

func (q gainQueue) Len() int { return len(q) }
func (q gainQueue) Less(i, j int) bool {
	if q[i].split.Gain != q[j].split.Gain {
		return q[i].split.Gain > q[j].split.Gain
	}
	return q[i].id < q[j].id
}
func (q gainQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *gainQueue) Push(x any) { *q = append(*q, x.(*expandNode)) }

func (q *gainQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}
