package gbdt

import (
	"math"

	"github.com/YuminosukeSato/hgboost/core/parallel"
)

// Regularization holds the penalties shared by split search and leaf weights.
type Regularization struct {
	Lambda         float64 // L2 penalty on leaf weights
	Alpha          float64 // L1 penalty on leaf weights
	Gamma          float64 // minimum loss reduction to make a split
	MinChildWeight float64 // minimum Hessian sum in each child
	MaxDeltaStep   float64 // maximum absolute leaf weight, 0 disables
}

// Split is the best partition found for a node.
type Split struct {
	Feature     int
	Bin         int     // rows with bin <= Bin go left
	Threshold   float64 // values <= Threshold go left
	DefaultLeft bool    // direction of missing values
	Gain        float64
	Left        GradStats
	Right       GradStats
}

// better reports whether a beats b: higher gain, then lower feature, then lower
// bin, then missing-left.
func (a Split) better(b Split) bool {
	if a.Gain != b.Gain {
		return a.Gain > b.Gain
	}
	if a.Feature != b.Feature {
		return a.Feature < b.Feature
	}
	if a.Bin != b.Bin {
		return a.Bin < b.Bin
	}
	return a.DefaultLeft && !b.DefaultLeft
}

// thresholdL1 applies the L1 soft threshold to a gradient sum.
func thresholdL1(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	}
	return 0
}

// Weight returns the optimal leaf weight -T(G)/(H+lambda), clipped to
// +-MaxDeltaStep when it is positive.
func (r Regularization) Weight(s GradStats) float64 {
	w := -thresholdL1(s.SumGrad, r.Alpha) / (s.SumHess + r.Lambda)
	if r.MaxDeltaStep > 0 {
		if w > r.MaxDeltaStep {
			w = r.MaxDeltaStep
		} else if w < -r.MaxDeltaStep {
			w = -r.MaxDeltaStep
		}
	}
	return w
}

// term is the loss reduction of a node taking its optimal weight.
func (r Regularization) term(s GradStats) float64 {
	t := thresholdL1(s.SumGrad, r.Alpha)
	if r.MaxDeltaStep > 0 {
		w := r.Weight(s)
		return -(2*t*w + (s.SumHess+r.Lambda)*w*w)
	}
	return t * t / (s.SumHess + r.Lambda)
}

// Gain returns the regularized loss reduction of splitting total into left and right.
func (r Regularization) Gain(left, right, total GradStats) float64 {
	return 0.5*(r.term(left)+r.term(right)-r.term(total)) - r.Gamma
}

func (r Regularization) admissible(s GradStats) bool {
	return s.Count > 0 && s.SumHess >= r.MinChildWeight && s.SumHess+r.Lambda > 0
}

// SplitFinder scans node histograms for the best split.
type SplitFinder struct {
	reg  Regularization
	pool *parallel.Pool
}

// NewSplitFinder returns a finder using reg. pool may be nil.
func NewSplitFinder(reg Regularization, pool *parallel.Pool) *SplitFinder {
	return &SplitFinder{reg: reg, pool: pool}
}

// FindBestSplit returns the best split over the given features and true, or
// false when no candidate has a positive gain. Thresholds are left for the
// caller to resolve from the bin index.
func (s *SplitFinder) FindBestSplit(h *Histogram, total GradStats, features []int) (Split, bool) {
	if len(features) == 0 {
		return Split{}, false
	}

	best := make([]Split, len(features))
	found := make([]bool, len(features))

	chunk := len(features) / (4 * s.pool.Workers())
	if chunk < 1 {
		chunk = 1
	}
	s.pool.Run(len(features), chunk, func(_, start, end int) {
		for i := start; i < end; i++ {
			best[i], found[i] = s.scanFeature(h, total, features[i])
		}
	})

	var (
		result Split
		ok     bool
	)
	for i := range features {
		if !found[i] {
			continue
		}
		if !ok || best[i].better(result) {
			result, ok = best[i], true
		}
	}
	return result, ok
}

// scanFeature walks the value bins of f left to right. At each boundary the
// missing bin is tried on the left first, then on the right.
func (s *SplitFinder) scanFeature(h *Histogram, total GradStats, f int) (Split, bool) {
	bins := h.Feature(f)
	numValueBins := len(bins) - 1
	missing := bins[numValueBins]

	var (
		best Split
		ok   bool
		left GradStats
	)
	try := func(l, r GradStats, bin int, defaultLeft bool) {
		if !s.reg.admissible(l) || !s.reg.admissible(r) {
			return
		}
		gain := s.reg.Gain(l, r, total)
		if !(gain > 0) || math.IsInf(gain, 0) {
			return
		}
		c := Split{Feature: f, Bin: bin, DefaultLeft: defaultLeft, Gain: gain, Left: l, Right: r}
		if !ok || c.better(best) {
			best, ok = c, true
		}
	}

	for b := 0; b < numValueBins; b++ {
		left = left.Add(bins[b])
		if left.Count == 0 {
			continue
		}
		withMissing := left.Add(missing)
		try(withMissing, total.Sub(withMissing), b, true)
		if missing.Count > 0 {
			try(left, total.Sub(left), b, false)
		}
	}
	return best, ok
}
