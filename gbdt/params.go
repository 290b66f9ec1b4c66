package gbdt

import (
	"math"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/YuminosukeSato/hgboost/metrics"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// Params configures a training session.
type Params struct {
	Objective     string  `json:"objective" mapstructure:"objective"`
	NumClass      int     `json:"num_class,omitempty" mapstructure:"num_class"`
	NumBoostRound int     `json:"num_boost_round" mapstructure:"num_boost_round"`
	LearningRate  float64 `json:"learning_rate" mapstructure:"learning_rate"`

	// Tree shape
	MaxDepth   int    `json:"max_depth" mapstructure:"max_depth"`
	MaxLeaves  int    `json:"max_leaves" mapstructure:"max_leaves"`
	GrowPolicy string `json:"grow_policy" mapstructure:"grow_policy"`
	NumBins    int    `json:"num_bins" mapstructure:"num_bins"`

	// Regularization
	Lambda         float64 `json:"lambda" mapstructure:"lambda"`
	Alpha          float64 `json:"alpha" mapstructure:"alpha"`
	Gamma          float64 `json:"gamma" mapstructure:"gamma"`
	MinChildWeight float64 `json:"min_child_weight" mapstructure:"min_child_weight"`
	MaxDeltaStep   float64 `json:"max_delta_step" mapstructure:"max_delta_step"`

	// Sampling
	Subsample       float64 `json:"subsample" mapstructure:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree" mapstructure:"colsample_bytree"`
	Seed            uint64  `json:"seed" mapstructure:"seed"`

	// BaseScore is the initial prediction in output space (a probability for
	// binary:logistic). When nil it is estimated from the labels.
	BaseScore *float64 `json:"base_score,omitempty" mapstructure:"base_score"`

	NThread             int      `json:"nthread" mapstructure:"nthread"`
	EarlyStoppingRounds int      `json:"early_stopping_rounds,omitempty" mapstructure:"early_stopping_rounds"`
	EvalMetric          []string `json:"eval_metric,omitempty" mapstructure:"eval_metric"`
	Verbosity           int      `json:"verbosity" mapstructure:"verbosity"`
}

// DefaultParams returns the default configuration.
func DefaultParams() Params {
	return Params{
		Objective:       ObjectiveSquaredError,
		NumBoostRound:   10,
		LearningRate:    0.3,
		MaxDepth:        6,
		GrowPolicy:      GrowDepthWise.String(),
		NumBins:         DefaultNumBins,
		Lambda:          1,
		MinChildWeight:  1,
		Subsample:       1,
		ColsampleByTree: 1,
		Verbosity:       1,
	}
}

// paramAliases maps accepted alternative keys to canonical ones.
var paramAliases = map[string]string{
	"eta":                     "learning_rate",
	"shrinkage_rate":          "learning_rate",
	"reg_lambda":              "lambda",
	"lambda_l2":               "lambda",
	"reg_alpha":               "alpha",
	"lambda_l1":               "alpha",
	"min_split_loss":          "gamma",
	"max_bin":                 "num_bins",
	"num_leaves":              "max_leaves",
	"n_estimators":            "num_boost_round",
	"num_round":               "num_boost_round",
	"num_threads":             "nthread",
	"n_jobs":                  "nthread",
	"random_state":            "seed",
	"feature_fraction":        "colsample_bytree",
	"bagging_fraction":        "subsample",
	"num_classes":             "num_class",
	"metric":                  "eval_metric",
	"early_stopping_round":    "early_stopping_rounds",
	"min_sum_hessian_in_leaf": "min_child_weight",
}

// ParamsFromMap decodes string-keyed parameters on top of the defaults.
// Values may be given as strings ("0.3"), aliases such as eta or max_bin are
// accepted and unknown keys are rejected.
func ParamsFromMap(raw map[string]any) (Params, error) {
	return DefaultParams().Update(raw)
}

// Update returns a copy of p with the string-keyed values of raw applied.
func (p Params) Update(raw map[string]any) (Params, error) {
	canonical := make(map[string]any, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if alias, ok := paramAliases[key]; ok {
			key = alias
		}
		canonical[key] = v
	}
	if _, ok := canonical["eval_metric"]; ok {
		p.EvalMetric = nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &p,
	})
	if err != nil {
		return p, errors.Wrap(err, "ParamsFromMap")
	}
	if err := decoder.Decode(canonical); err != nil {
		keys := make([]string, 0, len(canonical))
		for k := range canonical {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return p, errors.NewConfigurationError(strings.Join(keys, ","), err.Error(), raw)
	}
	p.Objective = CanonicalObjective(p.Objective)
	return p, nil
}

// Validate checks ranges and combinations of parameters.
func (p Params) Validate() error {
	obj, err := NewObjective(p.Objective, p.NumClass)
	if err != nil {
		return err
	}
	policy, err := ParseGrowPolicy(p.GrowPolicy)
	if err != nil {
		return err
	}

	switch {
	case p.NumBoostRound < 0:
		return errors.NewConfigurationError("num_boost_round", "must be non-negative", p.NumBoostRound)
	case !(p.LearningRate > 0) || math.IsInf(p.LearningRate, 0):
		return errors.NewConfigurationError("learning_rate", "must be positive and finite", p.LearningRate)
	case p.MaxDepth < 0 && policy == GrowDepthWise:
		return errors.NewConfigurationError("max_depth", "must be non-negative for depthwise growth", p.MaxDepth)
	case p.MaxLeaves < 0:
		return errors.NewConfigurationError("max_leaves", "must be non-negative", p.MaxLeaves)
	case p.MaxLeaves < 1 && policy == GrowLossGuide:
		return errors.NewConfigurationError("max_leaves", "must be at least 1 for loss-guided growth", p.MaxLeaves)
	case p.NumBins < 2 || p.NumBins > MaxNumBins:
		return errors.NewConfigurationError("num_bins", "must be in [2, 65535]", p.NumBins)
	case !(p.Lambda >= 0):
		return errors.NewConfigurationError("lambda", "must be non-negative", p.Lambda)
	case !(p.Alpha >= 0):
		return errors.NewConfigurationError("alpha", "must be non-negative", p.Alpha)
	case !(p.Gamma >= 0):
		return errors.NewConfigurationError("gamma", "must be non-negative", p.Gamma)
	case !(p.MinChildWeight >= 0):
		return errors.NewConfigurationError("min_child_weight", "must be non-negative", p.MinChildWeight)
	case !(p.MaxDeltaStep >= 0):
		return errors.NewConfigurationError("max_delta_step", "must be non-negative", p.MaxDeltaStep)
	case !(p.Subsample > 0 && p.Subsample <= 1):
		return errors.NewConfigurationError("subsample", "must be in (0, 1]", p.Subsample)
	case !(p.ColsampleByTree > 0 && p.ColsampleByTree <= 1):
		return errors.NewConfigurationError("colsample_bytree", "must be in (0, 1]", p.ColsampleByTree)
	case p.NThread < 0:
		return errors.NewConfigurationError("nthread", "must be non-negative", p.NThread)
	case p.EarlyStoppingRounds < 0:
		return errors.NewConfigurationError("early_stopping_rounds", "must be non-negative", p.EarlyStoppingRounds)
	case p.Verbosity < 0 || p.Verbosity > 3:
		return errors.NewConfigurationError("verbosity", "must be in [0, 3]", p.Verbosity)
	}

	if p.BaseScore != nil {
		b := *p.BaseScore
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return errors.NewConfigurationError("base_score", "must be finite", b)
		}
		if obj.Link() == LinkLogistic && !(b > 0 && b < 1) {
			return errors.NewConfigurationError("base_score", "must be a probability in (0, 1) for binary:logistic", b)
		}
	}
	for _, name := range p.EvalMetric {
		if _, err := metrics.Get(name); err != nil {
			return errors.NewConfigurationError("eval_metric", err.Error(), name)
		}
	}
	return nil
}

// Regularization returns the split and leaf penalties.
func (p Params) Regularization() Regularization {
	return Regularization{
		Lambda:         p.Lambda,
		Alpha:          p.Alpha,
		Gamma:          p.Gamma,
		MinChildWeight: p.MinChildWeight,
		MaxDeltaStep:   p.MaxDeltaStep,
	}
}

// GrowerConfig returns the tree shape bounds. It assumes Validate succeeded.
func (p Params) GrowerConfig() GrowerConfig {
	policy, _ := ParseGrowPolicy(p.GrowPolicy)
	return GrowerConfig{
		Policy:         policy,
		MaxDepth:       p.MaxDepth,
		MaxLeaves:      p.MaxLeaves,
		Regularization: p.Regularization(),
	}
}

// baseMargin converts BaseScore from output space to margin space.
func (p Params) baseMargin(obj Objective) []float64 {
	b := *p.BaseScore
	if obj.Link() == LinkLogistic {
		return []float64{math.Log(b / (1 - b))}
	}
	out := make([]float64, obj.NumOutputs())
	for i := range out {
		out[i] = b
	}
	return out
}
