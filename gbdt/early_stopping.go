package gbdt

import "math"

// EarlyStopping tracks the best score of one evaluation metric.
type EarlyStopping struct {
	Rounds          int     // rounds without improvement before stopping
	BestScore       float64 // best score so far
	BestIteration   int     // round of the best score, -1 before the first update
	RoundsNoImprove int     // rounds since the last improvement
	Key             string  // evaluation key, "<set>-<metric>"
	Maximize        bool
}

// NewEarlyStopping returns a tracker for the evaluation key, for example
// "valid-auc". rounds must be positive.
func NewEarlyStopping(rounds int, key string, maximize bool) *EarlyStopping {
	best := math.Inf(1)
	if maximize {
		best = math.Inf(-1)
	}
	return &EarlyStopping{
		Rounds:        rounds,
		BestScore:     best,
		BestIteration: -1,
		Key:           key,
		Maximize:      maximize,
	}
}

// Update records the score of a round and reports whether training should stop.
// Equal scores do not count as improvement.
func (es *EarlyStopping) Update(round int, score float64) bool {
	improved := score < es.BestScore
	if es.Maximize {
		improved = score > es.BestScore
	}

	if improved {
		es.BestScore = score
		es.BestIteration = round
		es.RoundsNoImprove = 0
	} else {
		es.RoundsNoImprove++
	}
	return es.ShouldStop()
}

// ShouldStop reports whether Rounds rounds passed without improvement.
func (es *EarlyStopping) ShouldStop() bool {
	return es.RoundsNoImprove >= es.Rounds
}
