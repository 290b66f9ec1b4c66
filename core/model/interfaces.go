package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is implemented by models that can score predictions against y.
type Scorer interface {
	// Score returns R^2 for regressors and accuracy for classifiers.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// ParameterSetter is implemented by models whose hyperparameters can be set
// from string keys.
type ParameterSetter interface {
	SetParams(params map[string]any) error
}

// Regressor combines the interfaces of a regression model.
type Regressor interface {
	Estimator
	Scorer
	ParameterSetter
}

// Classifier combines the interfaces of a classification model.
type Classifier interface {
	Estimator
	ProbabilisticPredictor
	Scorer
	ParameterSetter
}

// Persistable is implemented by fitted artifacts that can be written to disk.
type Persistable interface {
	SaveModel(path string) error
}
