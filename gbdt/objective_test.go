package gbdt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

func TestCanonicalObjective(t *testing.T) {
	assert.Equal(t, ObjectiveSquaredError, CanonicalObjective("regression"))
	assert.Equal(t, ObjectiveSquaredError, CanonicalObjective(""))
	assert.Equal(t, ObjectiveLogistic, CanonicalObjective("binary-logistic"))
	assert.Equal(t, ObjectiveSoftprob, CanonicalObjective("multiclass-softmax"))
	assert.Equal(t, ObjectiveSoftmax, CanonicalObjective("multi:softmax"))
	assert.Equal(t, "rank:ndcg", CanonicalObjective("rank:ndcg"))
}

func TestSquaredErrorGradients(t *testing.T) {
	obj, err := NewObjective(ObjectiveSquaredError, 0)
	require.NoError(t, err)

	out := make([]GradientPair, 2)
	obj.Gradients([]float64{1, 3}, []float64{2, 2}, []float64{1, 2}, out)
	assert.Equal(t, []GradientPair{{Grad: -1, Hess: 1}, {Grad: 2, Hess: 2}}, out)
	assert.InDelta(t, 2.0/3, obj.InitScore([]float64{0, 1}, []float64{1, 2})[0], 1e-12)
	assert.Equal(t, "rmse", obj.DefaultMetric())
}

func TestLogisticGradients(t *testing.T) {
	obj, err := NewObjective(ObjectiveLogistic, 0)
	require.NoError(t, err)

	out := make([]GradientPair, 2)
	obj.Gradients([]float64{0, 800}, []float64{1, 1}, nil, out)
	assert.InDelta(t, -0.5, out[0].Grad, 1e-12)
	assert.InDelta(t, 0.25, out[0].Hess, 1e-12)
	assert.Equal(t, hessianFloor, out[1].Hess, "saturated Hessian is floored")

	base := obj.InitScore([]float64{0, 1, 1, 1}, nil)[0]
	assert.InDelta(t, math.Log(3), base, 1e-12)

	assert.NoError(t, obj.ValidateLabels([]float64{0, 0.3, 1}))
	err = obj.ValidateLabels([]float64{0, 2})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSoftmaxGradients(t *testing.T) {
	obj, err := NewObjective(ObjectiveSoftprob, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, obj.NumOutputs())
	assert.Equal(t, LinkSoftmax, obj.Link())

	out := make([]GradientPair, 3)
	obj.Gradients([]float64{0, 0, 0}, []float64{1}, nil, out)
	third := 1.0 / 3
	assert.InDelta(t, third, out[0].Grad, 1e-12)
	assert.InDelta(t, third-1, out[1].Grad, 1e-12)
	assert.InDelta(t, 2*third*(1-third), out[2].Hess, 1e-12)

	assert.Error(t, obj.ValidateLabels([]float64{0, 1.5}))
	assert.Error(t, obj.ValidateLabels([]float64{3}))

	_, err = NewObjective(ObjectiveSoftmax, 1)
	assert.True(t, errors.IsConfiguration(err))
}

func TestLinkApply(t *testing.T) {
	dst := make([]float64, 2)
	LinkLogistic.Apply([]float64{0, math.Log(3)}, dst)
	assert.InDeltaSlice(t, []float64{0.5, 0.75}, dst, 1e-12)

	LinkSoftmax.Apply([]float64{1000, 1000}, dst)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, dst, 1e-12)

	l, err := ParseLink(LinkSoftmax.String())
	require.NoError(t, err)
	assert.Equal(t, LinkSoftmax, l)
	_, err = ParseLink("probit")
	assert.Error(t, err)
}
