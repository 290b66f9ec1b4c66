package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

func vec(values ...float64) *mat.VecDense {
	return mat.NewVecDense(len(values), values)
}

func TestRegressionMetrics(t *testing.T) {
	yTrue := vec(1, 2, 3, 4)
	yPred := vec(1.5, 2, 2, 5)

	mse, err := MSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.5625, mse, 1e-12)

	rmse, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, rmse, 1e-12)

	mae, err := MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.625, mae, 1e-12)
}

func TestWeightedRegressionMetrics(t *testing.T) {
	yTrue := vec(1, 2, 3, 4)
	yPred := vec(1.5, 2, 2, 5)
	weights := []float64{2, 1, 1, 0}

	mse, err := WeightedMSE(yTrue, yPred, weights)
	require.NoError(t, err)
	assert.InDelta(t, 0.375, mse, 1e-12)

	mae, err := WeightedMAE(yTrue, yPred, weights)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mae, 1e-12)

	unit, err := WeightedMSE(yTrue, yPred, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	plain, err := MSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, plain, unit, 1e-12, "unit weights match the unweighted mean")
}

func TestRegistryRMSEMatchesWeightedMSE(t *testing.T) {
	labels := []float64{3, -1, 2, 7, 0.5}
	preds := []float64{2.5, 0, 2, 8, 1}
	weights := []float64{1, 3, 0.5, 2, 1}

	rmse, err := Get("rmse")
	require.NoError(t, err)
	got, err := rmse.Evaluate(labels, preds, weights, 1)
	require.NoError(t, err)

	mse, err := WeightedMSE(vec(labels...), vec(preds...), weights)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(mse), got, 1e-12)
}

func TestRegressionMetricErrors(t *testing.T) {
	var dimErr *errors.DimensionError
	var valErr *errors.ValueError

	_, err := MSE(nil, vec(1))
	assert.True(t, errors.As(err, &valErr), "nil input")

	_, err = MAE(vec(1, 2), vec(1))
	assert.True(t, errors.As(err, &dimErr), "length mismatch")

	_, err = WeightedMSE(vec(1, 2), vec(1, 2), []float64{1})
	assert.True(t, errors.As(err, &dimErr), "weights length mismatch")

	_, err = WeightedMAE(vec(1, 2), vec(1, 2), []float64{0, 0})
	assert.True(t, errors.As(err, &valErr), "zero weight sum")

	_, err = WeightedMSE(vec(1, 2), vec(1, 2), []float64{1, -1})
	assert.True(t, errors.As(err, &valErr), "non-positive weight sum")
}

func TestMSEMatrix(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{1, 2, 3})
	got, err := MSEMatrix(yTrue, mat.NewDense(3, 1, []float64{1, 2, 5}))
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3, got, 1e-12)

	_, err = MSEMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	assert.Error(t, err, "two columns")

	var dimErr *errors.DimensionError
	_, err = MSEMatrix(yTrue, mat.NewDense(2, 1, []float64{1, 2}))
	assert.True(t, errors.As(err, &dimErr))
}

func TestR2Score(t *testing.T) {
	yTrue := vec(1, 2, 3)

	got, err := R2Score(yTrue, vec(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = R2Score(yTrue, vec(2, 2, 2))
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-12, "predicting the mean")

	got, err = R2Score(yTrue, vec(3, 2, 1))
	require.NoError(t, err)
	assert.InDelta(t, -3, got, 1e-12)

	_, err = R2Score(vec(5, 5), vec(4, 6))
	assert.Error(t, err, "constant labels")
}

func TestMAPE(t *testing.T) {
	got, err := MAPE(vec(0, 2, 4), vec(5, 1, 4))
	require.NoError(t, err)
	assert.InDelta(t, 25, got, 1e-12, "zero labels are skipped")

	mape, err := Get("mape")
	require.NoError(t, err)
	frac, err := mape.Evaluate([]float64{0, 2, 4}, []float64{5, 1, 4}, nil, 1)
	require.NoError(t, err)
	assert.InDelta(t, got/100, frac, 1e-12, "the eval metric is a fraction")

	_, err = MAPE(vec(0, 0), vec(1, 2))
	assert.Error(t, err)

	_, err = mape.Evaluate([]float64{0, 0}, []float64{1, 2}, nil, 1)
	assert.Error(t, err)
}

func TestWeightedMean(t *testing.T) {
	values := []float64{1, 2, 3}
	assert.Equal(t, 2.0, weightedMean(values, nil))
	assert.Equal(t, 3.0, weightedMean(values, []float64{0, 0, 1}))
	assert.InDelta(t, 7.0/3, weightedMean(values, []float64{1, 0, 2}), 1e-12)
}

func TestColumnVec(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	v := columnVec(m, 1)
	assert.Equal(t, []float64{2, 5}, v.RawVector().Data)
}
