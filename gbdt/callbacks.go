package gbdt

import (
	"sort"
	"time"

	"github.com/YuminosukeSato/hgboost/metrics"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
	"github.com/YuminosukeSato/hgboost/pkg/log"
)

// CallbackEnv is passed to every callback after a boosting round.
type CallbackEnv struct {
	Ensemble  *Ensemble
	Round     int
	BeginTime time.Time
	EndTime   time.Time
	// EvalResults maps "<set>-<metric>" to the score of this round.
	EvalResults map[string]float64
	Logger      log.Logger
	// StopTraining ends training after this round.
	StopTraining bool
}

// Callback runs after each round. Returning errors.ErrStopTraining stops
// training like setting env.StopTraining; any other error aborts it.
type Callback func(env *CallbackEnv) error

// LogEvaluation logs the evaluation results every period rounds.
func LogEvaluation(period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Round%period != 0 || len(env.EvalResults) == 0 {
			return nil
		}
		keys := sortedKeys(env.EvalResults)
		args := make([]any, 0, 2+2*len(keys))
		args = append(args, log.RoundKey, env.Round)
		for _, k := range keys {
			args = append(args, k, env.EvalResults[k])
		}
		env.Logger.Info("Evaluation", args...)
		return nil
	}
}

// RecordEvaluation appends every evaluation result to history.
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, value := range env.EvalResults {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// EarlyStoppingCallback stops training when the evaluation key has not
// improved for rounds rounds and records the best round in the ensemble.
// The direction comes from the metric registry.
func EarlyStoppingCallback(rounds int, key string) Callback {
	maximize := false
	if m, err := metrics.Get(metricOfKey(key)); err == nil {
		maximize = m.HigherIsBetter()
	}
	es := NewEarlyStopping(rounds, key, maximize)

	return func(env *CallbackEnv) error {
		value, ok := env.EvalResults[key]
		if !ok {
			return errors.NewValueError("EarlyStoppingCallback", "no evaluation result named "+key)
		}
		if es.Update(env.Round, value) {
			env.Logger.Info("Early stopping",
				log.RoundKey, env.Round,
				log.BestRoundKey, es.BestIteration,
				log.MetricKey, key,
				log.BestScoreKey, es.BestScore,
			)
			env.StopTraining = true
		}
		env.Ensemble.BestIteration = es.BestIteration
		return nil
	}
}

// TimeLimit stops training once maxDuration has elapsed since the first round.
func TimeLimit(maxDuration time.Duration) Callback {
	var start time.Time
	return func(env *CallbackEnv) error {
		if start.IsZero() {
			start = env.BeginTime
		}
		if env.EndTime.Sub(start) > maxDuration {
			env.Logger.Info("Time limit reached", log.RoundKey, env.Round)
			env.StopTraining = true
		}
		return nil
	}
}

// CallbackList runs callbacks in order.
type CallbackList struct {
	callbacks []Callback
}

// NewCallbackList returns a list of callbacks.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{callbacks: callbacks}
}

// Add appends callbacks.
func (cl *CallbackList) Add(callbacks ...Callback) {
	cl.callbacks = append(cl.callbacks, callbacks...)
}

// AfterIteration runs every callback and reports whether training should stop.
func (cl *CallbackList) AfterIteration(env *CallbackEnv) (bool, error) {
	for _, cb := range cl.callbacks {
		if err := cb(env); err != nil {
			if errors.Is(err, errors.ErrStopTraining) {
				env.StopTraining = true
				continue
			}
			return env.StopTraining, err
		}
	}
	return env.StopTraining, nil
}

// evalKey names an evaluation result.
func evalKey(set, metric string) string {
	return set + "-" + metric
}

func metricOfKey(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '-' {
			return key[i+1:]
		}
	}
	return key
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
