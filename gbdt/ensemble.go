package gbdt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// ImportanceType selects how FeatureImportance aggregates splits.
type ImportanceType string

const (
	ImportanceWeight    ImportanceType = "weight"     // number of splits on the feature
	ImportanceGain      ImportanceType = "gain"       // average gain of those splits
	ImportanceTotalGain ImportanceType = "total_gain" // summed gain
	ImportanceCover     ImportanceType = "cover"      // average Hessian sum of the split nodes
)

// Ensemble is an append-only sequence of trees. With K outputs, tree i
// contributes to output i % K.
type Ensemble struct {
	Objective   string
	NumOutputs  int
	NumFeatures int
	BaseScore   []float64
	Link        Link

	Trees     []*Tree
	Shrinkage []float64

	// BestIteration is the best round found by early stopping, or -1.
	BestIteration int
}

// NewEnsemble returns an empty ensemble. numClass is the number of outputs per
// round; values below 1 mean one. baseScore holds one margin per output, a
// single value is broadcast and nil means zero.
func NewEnsemble(objective string, numClass, numFeatures int, baseScore []float64) *Ensemble {
	if numClass < 1 {
		numClass = 1
	}
	base := make([]float64, numClass)
	switch {
	case len(baseScore) == 1:
		for i := range base {
			base[i] = baseScore[0]
		}
	case len(baseScore) >= numClass:
		copy(base, baseScore)
	}
	return &Ensemble{
		Objective:     CanonicalObjective(objective),
		NumOutputs:    numClass,
		NumFeatures:   numFeatures,
		BaseScore:     base,
		Link:          LinkFor(objective),
		BestIteration: -1,
	}
}

// Append adds a grown tree with its shrinkage.
func (e *Ensemble) Append(tree *Tree, learningRate float64) {
	e.Trees = append(e.Trees, tree)
	e.Shrinkage = append(e.Shrinkage, learningRate)
}

// Group returns the output index tree i contributes to.
func (e *Ensemble) Group(i int) int {
	return i % e.NumOutputs
}

// NumRounds returns the number of complete boosting rounds.
func (e *Ensemble) NumRounds() int {
	return len(e.Trees) / e.NumOutputs
}

// PredictRawRow writes the margins of one row into dst (length NumOutputs).
func (e *Ensemble) PredictRawRow(row []float64, dst []float64) {
	copy(dst, e.BaseScore)
	for i, t := range e.Trees {
		dst[i%e.NumOutputs] += e.Shrinkage[i] * t.Evaluate(row)
	}
}

// PredictRaw returns the margins of every row of m, row-major N x NumOutputs.
func (e *Ensemble) PredictRaw(m *Matrix) []float64 {
	out := make([]float64, m.RowCount()*e.NumOutputs)
	e.predictRows(m, 0, m.RowCount(), out)
	return out
}

func (e *Ensemble) predictRows(m *Matrix, start, end int, out []float64) {
	k := e.NumOutputs
	row := make([]float64, m.FeatureCount())
	for r := start; r < end; r++ {
		row = m.Row(r, row)
		e.PredictRawRow(row, out[r*k:(r+1)*k])
	}
}

// Slice returns an ensemble holding the first numRounds rounds. Trees are shared.
func (e *Ensemble) Slice(numRounds int) *Ensemble {
	n := numRounds * e.NumOutputs
	if n > len(e.Trees) || numRounds < 0 {
		n = len(e.Trees)
	}
	s := *e
	s.BaseScore = append([]float64(nil), e.BaseScore...)
	s.Trees = append([]*Tree(nil), e.Trees[:n]...)
	s.Shrinkage = append([]float64(nil), e.Shrinkage[:n]...)
	if s.BestIteration >= numRounds {
		s.BestIteration = -1
	}
	return &s
}

// FeatureImportance aggregates split statistics per feature.
func (e *Ensemble) FeatureImportance(kind ImportanceType) ([]float64, error) {
	counts := make([]float64, e.NumFeatures)
	gains := make([]float64, e.NumFeatures)
	covers := make([]float64, e.NumFeatures)
	for _, t := range e.Trees {
		for i := range t.Nodes {
			n := &t.Nodes[i]
			if n.IsLeaf() || n.Feature >= e.NumFeatures {
				continue
			}
			counts[n.Feature]++
			gains[n.Feature] += n.Gain
			covers[n.Feature] += n.Cover
		}
	}

	switch kind {
	case ImportanceWeight:
		return counts, nil
	case ImportanceTotalGain:
		return gains, nil
	case ImportanceGain, ImportanceCover:
		src := gains
		if kind == ImportanceCover {
			src = covers
		}
		out := make([]float64, e.NumFeatures)
		for f := range out {
			if counts[f] > 0 {
				out[f] = src[f] / counts[f]
			}
		}
		return out, nil
	}
	return nil, errors.NewValueError("FeatureImportance", fmt.Sprintf("unknown importance type %q", kind))
}

// DumpText renders every tree in the indented text form
//
//	0:[f2<=0.5] yes=1,no=2,missing=1
//		1:leaf=0.3
func (e *Ensemble) DumpText(withStats bool) []string {
	out := make([]string, len(e.Trees))
	for i, t := range e.Trees {
		var sb strings.Builder
		dumpNode(&sb, t, 0, withStats)
		out[i] = sb.String()
	}
	return out
}

func dumpNode(sb *strings.Builder, t *Tree, id int, withStats bool) {
	n := &t.Nodes[id]
	sb.WriteString(strings.Repeat("\t", n.Depth))
	sb.WriteString(strconv.Itoa(id))
	if n.IsLeaf() {
		sb.WriteString(":leaf=")
		sb.WriteString(formatFloat(n.Weight))
		if withStats {
			fmt.Fprintf(sb, ",cover=%s", formatFloat(n.Cover))
		}
		sb.WriteByte('\n')
		return
	}

	missing := n.Right
	if n.DefaultLeft {
		missing = n.Left
	}
	fmt.Fprintf(sb, ":[f%d<=%s] yes=%d,no=%d,missing=%d", n.Feature, formatFloat(n.Threshold), n.Left, n.Right, missing)
	if withStats {
		fmt.Fprintf(sb, ",gain=%s,cover=%s", formatFloat(n.Gain), formatFloat(n.Cover))
	}
	sb.WriteByte('\n')
	dumpNode(sb, t, n.Left, withStats)
	dumpNode(sb, t, n.Right, withStats)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
