package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilisticPredictor はクラス確率を出力できる分類器のインターフェース
type ProbabilisticPredictor interface {
	Predictor
	// PredictProba は各クラスの確率を N x K 行列で返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は学習と予測の両方を行うモデル
type Estimator interface {
	Fitter
	Predictor
	IsFitted() bool
}
