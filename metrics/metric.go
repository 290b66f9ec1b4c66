package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// Metric は学習中の評価セットに対して計算される評価指標
//
// preds は出力空間（確率など）の予測値で、numOutputs > 1 の場合は
// 行優先の n×numOutputs 配列として渡される。weights が nil の場合は
// 全サンプルを等しく扱う。
type Metric interface {
	Name() string
	// HigherIsBetter は値が大きいほど良い指標かどうか（auc のみ true）
	HigherIsBetter() bool
	Evaluate(labels, preds, weights []float64, numOutputs int) (float64, error)
}

type metricFunc struct {
	name   string
	higher bool
	fn     func(labels, preds, weights []float64, k int) (float64, error)
}

func (m *metricFunc) Name() string         { return m.name }
func (m *metricFunc) HigherIsBetter() bool { return m.higher }

func (m *metricFunc) Evaluate(labels, preds, weights []float64, numOutputs int) (float64, error) {
	if numOutputs < 1 {
		numOutputs = 1
	}
	if len(labels) == 0 {
		return 0, errors.NewValueError(m.name, "empty labels")
	}
	if len(preds) != len(labels)*numOutputs {
		return 0, errors.NewDimensionError(m.name, len(labels)*numOutputs, len(preds), 0)
	}
	if err := checkWeights(m.name, len(labels), weights); err != nil {
		return 0, err
	}
	return m.fn(labels, preds, weights, numOutputs)
}

func singleOutput(name string, k int) error {
	if k != 1 {
		return errors.NewValueError(name, "metric expects a single output per row")
	}
	return nil
}

var registry = map[string]*metricFunc{
	"rmse": {name: "rmse", fn: func(labels, preds, weights []float64, k int) (float64, error) {
		if err := singleOutput("rmse", k); err != nil {
			return 0, err
		}
		sq := make([]float64, len(labels))
		for i, y := range labels {
			d := y - preds[i]
			sq[i] = d * d
		}
		return math.Sqrt(weightedMean(sq, weights)), nil
	}},
	"mae": {name: "mae", fn: func(labels, preds, weights []float64, k int) (float64, error) {
		if err := singleOutput("mae", k); err != nil {
			return 0, err
		}
		abs := make([]float64, len(labels))
		for i, y := range labels {
			abs[i] = math.Abs(y - preds[i])
		}
		return weightedMean(abs, weights), nil
	}},
	"mape": {name: "mape", fn: func(labels, preds, weights []float64, k int) (float64, error) {
		if err := singleOutput("mape", k); err != nil {
			return 0, err
		}
		var sum, wsum float64
		for i, y := range labels {
			if y == 0 {
				continue
			}
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			sum += w * math.Abs(y-preds[i]) / math.Abs(y)
			wsum += w
		}
		if wsum == 0 {
			return 0, errors.NewValueError("mape", "all labels are zero")
		}
		return sum / wsum, nil
	}},
	"logloss": {name: "logloss", fn: func(labels, preds, weights []float64, k int) (float64, error) {
		if err := singleOutput("logloss", k); err != nil {
			return 0, err
		}
		return weightedLogLoss("logloss", labels, preds, weights)
	}},
	"error": {name: "error", fn: func(labels, preds, weights []float64, k int) (float64, error) {
		if err := singleOutput("error", k); err != nil {
			return 0, err
		}
		if err := requireBinary("error", labels); err != nil {
			return 0, err
		}
		return weightedBinaryError(labels, preds, weights), nil
	}},
	"auc": {name: "auc", higher: true, fn: func(labels, preds, weights []float64, k int) (float64, error) {
		if err := singleOutput("auc", k); err != nil {
			return 0, err
		}
		return weightedAUC("auc", labels, preds, weights)
	}},
	"mlogloss": {name: "mlogloss", fn: func(labels, preds, weights []float64, k int) (float64, error) {
		return weightedMultiLogLoss("mlogloss", labels, preds, weights, k)
	}},
	"merror": {name: "merror", fn: func(labels, preds, weights []float64, k int) (float64, error) {
		return weightedMultiError("merror", labels, preds, weights, k)
	}},
}

// Get は名前から評価指標を取得する
func Get(name string) (Metric, error) {
	m, ok := registry[name]
	if !ok {
		return nil, errors.NewConfigurationError("eval_metric", "unknown metric", name)
	}
	return m, nil
}

// Names は登録済みの評価指標名をソートして返す
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
