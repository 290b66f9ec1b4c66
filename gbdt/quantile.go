package gbdt

import (
	"gonum.org/v1/gonum/stat"
)

// computeCuts returns the bin upper bounds of one feature from its sorted
// non-missing entries. Columns with at most numBins distinct values get one bin
// per value, split at the midpoints. Larger columns use weighted empirical
// quantiles, deduplicated, with the column maximum as the last bound.
func computeCuts(sorted []Entry, weights []float64, numBins int) []float64 {
	if len(sorted) == 0 {
		return nil
	}

	distinct := make([]float64, 0, numBins+1)
	for _, e := range sorted {
		if len(distinct) == 0 || e.Value != distinct[len(distinct)-1] {
			distinct = append(distinct, e.Value)
			if len(distinct) > numBins {
				break
			}
		}
	}

	if len(distinct) <= numBins {
		cuts := make([]float64, 0, len(distinct))
		for i := 0; i < len(distinct)-1; i++ {
			mid := distinct[i] + (distinct[i+1]-distinct[i])/2
			if len(cuts) == 0 || mid > cuts[len(cuts)-1] {
				cuts = append(cuts, mid)
			}
		}
		if last := distinct[len(distinct)-1]; len(cuts) == 0 || last > cuts[len(cuts)-1] {
			cuts = append(cuts, last)
		}
		return cuts
	}

	values := make([]float64, len(sorted))
	var w []float64
	if weights != nil {
		w = make([]float64, len(sorted))
	}
	total := 0.0
	for i, e := range sorted {
		values[i] = e.Value
		if w != nil {
			w[i] = weights[e.Row]
			total += w[i]
		}
	}
	if w != nil && total <= 0 {
		w = nil
	}

	cuts := make([]float64, 0, numBins)
	for i := 1; i <= numBins; i++ {
		q := stat.Quantile(float64(i)/float64(numBins), stat.Empirical, values, w)
		if len(cuts) == 0 || q > cuts[len(cuts)-1] {
			cuts = append(cuts, q)
		}
	}
	if maxValue := values[len(values)-1]; cuts[len(cuts)-1] < maxValue {
		cuts = append(cuts, maxValue)
	}
	return cuts
}
