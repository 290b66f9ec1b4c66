package gbdt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

func TestRegressorFitPredict(t *testing.T) {
	x, y := synthetic(t, 800, 3, 111, 0.05, func(row []float64) float64 { return 2*row[0] - row[1] })
	reg := NewRegressor().WithNumBoostRound(30).WithLearningRate(0.3).WithMaxDepth(4)
	reg.Params.Verbosity = 0

	_, err := reg.Predict(x)
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))

	require.NoError(t, reg.Fit(x, mat.NewDense(len(y), 1, y)))
	assert.True(t, reg.IsFitted())

	pred, err := reg.Predict(x)
	require.NoError(t, err)
	r, c := pred.Dims()
	assert.Equal(t, 800, r)
	assert.Equal(t, 1, c)

	score, err := reg.Score(x, mat.NewDense(len(y), 1, y))
	require.NoError(t, err)
	assert.Greater(t, score, 0.8)

	imp, err := reg.FeatureImportance(ImportanceTotalGain)
	require.NoError(t, err)
	assert.Greater(t, imp[0], imp[2])

	_, err = reg.Predict(mat.NewDense(1, 2, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestRegressorRejectsMismatchedTarget(t *testing.T) {
	err := NewRegressor().Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{1, 2}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestClassifierBinaryLabels(t *testing.T) {
	x := stepDataDense()
	y := make([]float64, 100)
	for i := range y {
		y[i] = -1
		if i >= 50 {
			y[i] = 1
		}
	}

	clf := NewClassifier().WithNumBoostRound(10).WithMaxDepth(3)
	require.NoError(t, clf.SetParams(map[string]any{"eta": 0.5, "verbosity": 0}))
	require.NoError(t, clf.Fit(x, mat.NewDense(100, 1, y)))
	assert.Equal(t, []float64{-1, 1}, clf.Classes)
	assert.Equal(t, ObjectiveLogistic, clf.Ensemble.Objective)

	proba, err := clf.PredictProba(x)
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 2, c)
	assert.InDelta(t, 1.0, proba.At(0, 0)+proba.At(0, 1), 1e-12)

	acc, err := clf.Score(x, mat.NewDense(100, 1, y))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.95)
}

func TestClassifierMulticlass(t *testing.T) {
	x, y := synthetic(t, 600, 2, 121, 0, func(row []float64) float64 {
		switch {
		case row[1] < -0.5:
			return 10
		case row[1] < 0.5:
			return 20
		}
		return 30
	})
	clf := NewClassifier().WithNumBoostRound(10)
	clf.Params.Verbosity = 0
	require.NoError(t, clf.Fit(x, mat.NewDense(len(y), 1, y)))
	assert.Equal(t, []float64{10, 20, 30}, clf.Classes)
	assert.Equal(t, 3, clf.Ensemble.NumOutputs)

	pred, err := clf.Predict(x)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.Contains(t, clf.Classes, pred.At(i, 0))
	}
	acc, err := clf.Score(x, mat.NewDense(len(y), 1, y))
	require.NoError(t, err)
	assert.Greater(t, acc, 0.95)
}

func TestClassifierSingleClass(t *testing.T) {
	err := NewClassifier().Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{1, 1}))
	assert.Error(t, err)
}

func TestClassifierRejectsNonFiniteLabels(t *testing.T) {
	x := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		clf := NewClassifier()
		err := clf.Fit(x, mat.NewDense(6, 1, []float64{0, 0, bad, 1, 1, 1}))
		require.Error(t, err, "label %v", bad)
		assert.True(t, errors.IsInvalidInput(err))
		assert.False(t, clf.IsFitted())
		assert.Nil(t, clf.Classes)
	}
}
