package gbdt

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/core/model"
	"github.com/YuminosukeSato/hgboost/metrics"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
	"github.com/YuminosukeSato/hgboost/pkg/log"
)

var (
	_ model.Regressor   = (*Regressor)(nil)
	_ model.Classifier  = (*Classifier)(nil)
	_ model.Persistable = (*Ensemble)(nil)
)

// Regressor is a gradient boosted regressor with a Fit/Predict API.
type Regressor struct {
	Params   Params
	Ensemble *Ensemble

	state     model.StateManager
	predictor *Predictor
}

// NewRegressor returns a regressor with DefaultParams.
func NewRegressor() *Regressor {
	return &Regressor{Params: DefaultParams()}
}

// WithParams replaces the parameters.
func (r *Regressor) WithParams(p Params) *Regressor {
	r.Params = p
	return r
}

// WithNumBoostRound sets the number of boosting rounds.
func (r *Regressor) WithNumBoostRound(n int) *Regressor {
	r.Params.NumBoostRound = n
	return r
}

// WithLearningRate sets the shrinkage applied to every tree.
func (r *Regressor) WithLearningRate(lr float64) *Regressor {
	r.Params.LearningRate = lr
	return r
}

// WithMaxDepth sets the maximum tree depth.
func (r *Regressor) WithMaxDepth(d int) *Regressor {
	r.Params.MaxDepth = d
	return r
}

// SetParams updates parameters from string keys, accepting the aliases of ParamsFromMap.
func (r *Regressor) SetParams(raw map[string]any) error {
	p, err := r.Params.Update(raw)
	if err != nil {
		return err
	}
	r.Params = p
	return nil
}

// Fit trains on X (N x M, NaN is missing) and y (N x 1).
func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Regressor.Fit")

	labels, err := columnLabels("Regressor.Fit", X, y)
	if err != nil {
		return err
	}
	params := r.Params
	params.Objective = ObjectiveSquaredError
	e, err := fitEnsemble(params, X, labels, "gbdt.regressor")
	if err != nil {
		return err
	}

	rows, cols := X.Dims()
	r.Ensemble = e
	r.predictor = NewPredictor(WithWorkers(params.NThread))
	r.state.SetFitted(cols, rows)
	return nil
}

// Predict returns the predicted values as an N x 1 matrix.
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state.RequireFitted("Regressor", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := r.state.RequireFeatures("Predict", cols); err != nil {
		return nil, err
	}
	return r.predictor.PredictMatrix(r.Ensemble, X, LinkIdentity)
}

// Score returns the coefficient of determination R^2 on X, y.
func (r *Regressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	labels, err := columnLabels("Regressor.Score", X, y)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(mat.NewVecDense(len(labels), labels), mat.VecDenseCopyOf(pred.(*mat.Dense).ColView(0)))
}

// IsFitted reports whether Fit completed.
func (r *Regressor) IsFitted() bool { return r.state.IsFitted() }

// FeatureImportance returns per-feature importance of the fitted model.
func (r *Regressor) FeatureImportance(kind ImportanceType) ([]float64, error) {
	if err := r.state.RequireFitted("Regressor", "FeatureImportance"); err != nil {
		return nil, err
	}
	return r.Ensemble.FeatureImportance(kind)
}

// Classifier is a gradient boosted classifier. Labels may be any set of
// distinct values; two classes train binary:logistic, more train multi:softprob.
type Classifier struct {
	Params   Params
	Ensemble *Ensemble
	// Classes holds the sorted distinct labels seen by Fit.
	Classes []float64

	state     model.StateManager
	predictor *Predictor
}

// NewClassifier returns a classifier with DefaultParams.
func NewClassifier() *Classifier {
	return &Classifier{Params: DefaultParams()}
}

// WithParams replaces the parameters.
func (c *Classifier) WithParams(p Params) *Classifier {
	c.Params = p
	return c
}

// WithNumBoostRound sets the number of boosting rounds.
func (c *Classifier) WithNumBoostRound(n int) *Classifier {
	c.Params.NumBoostRound = n
	return c
}

// WithLearningRate sets the shrinkage applied to every tree.
func (c *Classifier) WithLearningRate(lr float64) *Classifier {
	c.Params.LearningRate = lr
	return c
}

// WithMaxDepth sets the maximum tree depth.
func (c *Classifier) WithMaxDepth(d int) *Classifier {
	c.Params.MaxDepth = d
	return c
}

// SetParams updates parameters from string keys, accepting the aliases of ParamsFromMap.
func (c *Classifier) SetParams(raw map[string]any) error {
	p, err := c.Params.Update(raw)
	if err != nil {
		return err
	}
	c.Params = p
	return nil
}

// Fit trains on X (N x M, NaN is missing) and y (N x 1 class labels).
func (c *Classifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Classifier.Fit")

	labels, err := columnLabels("Classifier.Fit", X, y)
	if err != nil {
		return err
	}
	for i, v := range labels {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewInvalidInputError("Classifier.Fit", i, -1, "label is not finite")
		}
	}
	classes := distinct(labels)
	if len(classes) < 2 {
		return errors.NewValueError("Classifier.Fit", "need at least two classes in y")
	}
	index := make(map[float64]int, len(classes))
	for i, v := range classes {
		index[v] = i
	}
	encoded := make([]float64, len(labels))
	for i, v := range labels {
		encoded[i] = float64(index[v])
	}

	params := c.Params
	if len(classes) == 2 {
		params.Objective = ObjectiveLogistic
		params.NumClass = 0
	} else {
		params.Objective = ObjectiveSoftprob
		params.NumClass = len(classes)
	}
	e, err := fitEnsemble(params, X, encoded, "gbdt.classifier")
	if err != nil {
		return err
	}

	rows, cols := X.Dims()
	c.Ensemble = e
	c.Classes = classes
	c.predictor = NewPredictor(WithWorkers(params.NThread))
	c.state.SetFitted(cols, rows)
	return nil
}

// PredictProba returns class probabilities as an N x K matrix, columns in
// the order of Classes.
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted("Classifier", "PredictProba"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := c.state.RequireFeatures("PredictProba", cols); err != nil {
		return nil, err
	}
	out, err := c.predictor.PredictMatrix(c.Ensemble, X, c.Ensemble.Link)
	if err != nil {
		return nil, err
	}
	if c.Ensemble.NumOutputs > 1 {
		return out, nil
	}
	rows, _ := out.Dims()
	proba := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := out.At(i, 0)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns the most probable class label per row as an N x 1 matrix.
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, k := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, c.Classes[best])
	}
	return out, nil
}

// Score returns the accuracy on X, y.
func (c *Classifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	labels, err := columnLabels("Classifier.Score", X, y)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(mat.NewVecDense(len(labels), labels), mat.VecDenseCopyOf(pred.(*mat.Dense).ColView(0)))
}

// IsFitted reports whether Fit completed.
func (c *Classifier) IsFitted() bool { return c.state.IsFitted() }

// FeatureImportance returns per-feature importance of the fitted model.
func (c *Classifier) FeatureImportance(kind ImportanceType) ([]float64, error) {
	if err := c.state.RequireFitted("Classifier", "FeatureImportance"); err != nil {
		return nil, err
	}
	return c.Ensemble.FeatureImportance(kind)
}

func fitEnsemble(params Params, X mat.Matrix, labels []float64, name string) (*Ensemble, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	m, err := FromDense(X, labels, nil, WithNumBins(params.NumBins))
	if err != nil {
		return nil, err
	}
	return Train(context.Background(), params, m, WithLogger(log.GetLoggerWithName(name)))
}

func columnLabels(op string, X, y mat.Matrix) ([]float64, error) {
	if X == nil || y == nil {
		return nil, errors.NewValueError(op, "nil input")
	}
	rows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError(op, 1, yCols, 1)
	}
	labels := make([]float64, yRows)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	return labels, nil
}

func distinct(values []float64) []float64 {
	seen := make(map[float64]struct{}, len(values))
	var out []float64
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
