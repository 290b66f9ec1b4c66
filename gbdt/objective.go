package gbdt

import (
	"math"
	"strings"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// Objective names.
const (
	ObjectiveSquaredError = "reg:squarederror"
	ObjectiveLogistic     = "binary:logistic"
	ObjectiveSoftprob     = "multi:softprob"
	ObjectiveSoftmax      = "multi:softmax"
)

// hessianFloor keeps logistic and softmax Hessians strictly positive.
const hessianFloor = 1e-16

// Objective computes gradients of a loss and knows how its margins are linked
// to outputs. Slices are row-major with NumOutputs values per row.
type Objective interface {
	Name() string
	NumOutputs() int
	Link() Link
	ValidateLabels(labels []float64) error
	// InitScore returns the per-output base margin estimated from the labels.
	InitScore(labels, weights []float64) []float64
	// Gradients writes one pair per (row, output). weights may be nil.
	Gradients(preds, labels, weights []float64, out []GradientPair)
	DefaultMetric() string
}

// CanonicalObjective resolves an objective alias to its canonical name.
func CanonicalObjective(name string) string {
	switch strings.ToLower(name) {
	case "", "reg:squarederror", "regression", "reg:linear", "l2":
		return ObjectiveSquaredError
	case "binary:logistic", "binary-logistic", "binary":
		return ObjectiveLogistic
	case "multi:softprob", "multiclass-softmax", "multiclass":
		return ObjectiveSoftprob
	case "multi:softmax":
		return ObjectiveSoftmax
	}
	return name
}

// NewObjective returns the objective for name. numClass is required for the
// multiclass objectives.
func NewObjective(name string, numClass int) (Objective, error) {
	switch canonical := CanonicalObjective(name); canonical {
	case ObjectiveSquaredError:
		return squaredError{}, nil
	case ObjectiveLogistic:
		return logistic{}, nil
	case ObjectiveSoftprob, ObjectiveSoftmax:
		if numClass < 2 {
			return nil, errors.NewConfigurationError("num_class", "must be at least 2 for multiclass objectives", numClass)
		}
		return softmax{name: canonical, numClass: numClass}, nil
	}
	return nil, errors.NewConfigurationError("objective",
		"must be one of reg:squarederror, binary:logistic, multi:softprob, multi:softmax", name)
}

func weightAt(weights []float64, i int) float64 {
	if weights == nil {
		return 1
	}
	return weights[i]
}

func weightedMean(labels, weights []float64) float64 {
	sum, total := 0.0, 0.0
	for i, y := range labels {
		w := weightAt(weights, i)
		sum += w * y
		total += w
	}
	if total <= 0 {
		return 0
	}
	return sum / total
}

type squaredError struct{}

func (squaredError) Name() string          { return ObjectiveSquaredError }
func (squaredError) NumOutputs() int       { return 1 }
func (squaredError) Link() Link            { return LinkIdentity }
func (squaredError) DefaultMetric() string { return "rmse" }

func (squaredError) ValidateLabels(labels []float64) error { return nil }

func (squaredError) InitScore(labels, weights []float64) []float64 {
	return []float64{weightedMean(labels, weights)}
}

func (squaredError) Gradients(preds, labels, weights []float64, out []GradientPair) {
	for i, y := range labels {
		w := weightAt(weights, i)
		out[i] = GradientPair{Grad: (preds[i] - y) * w, Hess: w}
	}
}

type logistic struct{}

func (logistic) Name() string          { return ObjectiveLogistic }
func (logistic) NumOutputs() int       { return 1 }
func (logistic) Link() Link            { return LinkLogistic }
func (logistic) DefaultMetric() string { return "logloss" }

func (logistic) ValidateLabels(labels []float64) error {
	for i, y := range labels {
		if y < 0 || y > 1 {
			return errors.NewInvalidInputErrorf("ValidateLabels", i, -1,
				"label %g outside [0, 1] for binary:logistic", y)
		}
	}
	return nil
}

// InitScore returns the log-odds of the weighted label mean.
func (logistic) InitScore(labels, weights []float64) []float64 {
	p := errors.ClipValue(weightedMean(labels, weights), 1e-6, 1-1e-6)
	return []float64{math.Log(p / (1 - p))}
}

func (logistic) Gradients(preds, labels, weights []float64, out []GradientPair) {
	for i, y := range labels {
		w := weightAt(weights, i)
		p := sigmoid(preds[i])
		h := p * (1 - p)
		if h < hessianFloor {
			h = hessianFloor
		}
		out[i] = GradientPair{Grad: (p - y) * w, Hess: h * w}
	}
}

type softmax struct {
	name     string
	numClass int
}

func (s softmax) Name() string          { return s.name }
func (s softmax) NumOutputs() int       { return s.numClass }
func (s softmax) Link() Link            { return LinkSoftmax }
func (s softmax) DefaultMetric() string { return "mlogloss" }

func (s softmax) ValidateLabels(labels []float64) error {
	for i, y := range labels {
		if y < 0 || y >= float64(s.numClass) || y != math.Trunc(y) {
			return errors.NewInvalidInputErrorf("ValidateLabels", i, -1,
				"label %g is not a class index in [0, %d)", y, s.numClass)
		}
	}
	return nil
}

func (s softmax) InitScore(labels, weights []float64) []float64 {
	return make([]float64, s.numClass)
}

func (s softmax) Gradients(preds, labels, weights []float64, out []GradientPair) {
	k := s.numClass
	prob := make([]float64, k)
	for i, y := range labels {
		w := weightAt(weights, i)
		softmaxInto(preds[i*k:(i+1)*k], prob)
		label := int(y)
		for c := 0; c < k; c++ {
			p := prob[c]
			g := p
			if c == label {
				g = p - 1
			}
			h := 2 * p * (1 - p)
			if h < hessianFloor {
				h = hessianFloor
			}
			out[i*k+c] = GradientPair{Grad: g * w, Hess: h * w}
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + errors.StabilizeExp(-x))
}

// softmaxInto writes softmax(margins) into dst.
func softmaxInto(margins, dst []float64) {
	lse := errors.LogSumExp(margins)
	for i, m := range margins {
		dst[i] = math.Exp(m - lse)
	}
}
