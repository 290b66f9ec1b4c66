package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// logLossEpsilon は log(0) を避けるための確率のクリップ幅
const logLossEpsilon = 1e-15

// AUC はROC曲線下面積を計算する。yTrue は 0/1 のラベル、yPred は正例のスコア
//
// ラベルが単一クラスのみの場合は未定義として 0.5 を返し、警告を出す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("AUC", yTrue, yPred); err != nil {
		return 0, err
	}
	return weightedAUC("AUC", vecData(yTrue), vecData(yPred), nil)
}

// AUCMatrix は行列形式の入力に対してAUCを計算する。先頭列のみを使用する
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	r, c := yTrue.Dims()
	rp, cp := yPred.Dims()
	if r == 0 || c == 0 || rp == 0 || cp == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if r != rp {
		return 0, errors.NewDimensionError("AUCMatrix", r, rp, 0)
	}
	return AUC(columnVec(yTrue, 0), columnVec(yPred, 0))
}

// weightedAUC はストライド1のスライスに対する重み付きAUCの本体
// 同じスコアのサンプルは台形として扱う。
func weightedAUC(op string, labels, scores, weights []float64) (float64, error) {
	if err := requireBinary(op, labels); err != nil {
		return 0, err
	}

	n := len(labels)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	w := func(i int) float64 {
		if weights == nil {
			return 1
		}
		return weights[i]
	}

	var tp, fp, area float64
	for start := 0; start < n; {
		end := start
		var dtp, dfp float64
		for end < n && scores[order[end]] == scores[order[start]] {
			i := order[end]
			if labels[i] == 1 {
				dtp += w(i)
			} else {
				dfp += w(i)
			}
			end++
		}
		area += dfp * (tp + tp + dtp) / 2
		tp += dtp
		fp += dfp
		start = end
	}

	if tp == 0 || fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present in labels", 0.5))
		return 0.5, nil
	}
	return area / (tp * fp), nil
}

// BinaryLogLoss は二値分類の交差エントロピー損失を計算する
// yPred は正例の確率で、[eps, 1-eps] にクリップされる。
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("BinaryLogLoss", yTrue, yPred); err != nil {
		return 0, err
	}
	return weightedLogLoss("BinaryLogLoss", vecData(yTrue), vecData(yPred), nil)
}

func weightedLogLoss(op string, labels, probs, weights []float64) (float64, error) {
	if err := requireBinary(op, labels); err != nil {
		return 0, err
	}
	loss := make([]float64, len(labels))
	for i, y := range labels {
		p := errors.ClipValue(probs[i], logLossEpsilon, 1-logLossEpsilon)
		loss[i] = -(y*math.Log(p) + (1-y)*math.Log(1-p))
	}
	return weightedMean(loss, weights), nil
}

// ClassificationError は誤分類率を計算する。yPred はクラスラベル
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// Accuracy は正解率を計算する。yPred はクラスラベル
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	hit := make([]float64, n)
	for i := range hit {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			hit[i] = 1
		}
	}
	return weightedMean(hit, nil), nil
}

// MultiLogLoss は多クラスの交差エントロピー損失を計算する
// proba は n×K のクラス確率行列、yTrue は 0..K-1 のクラス番号。
func MultiLogLoss(yTrue *mat.VecDense, proba mat.Matrix) (float64, error) {
	if yTrue == nil || proba == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("MultiLogLoss", "empty input")
	}
	r, k := proba.Dims()
	if r != yTrue.Len() {
		return 0, errors.NewDimensionError("MultiLogLoss", yTrue.Len(), r, 0)
	}
	flat := make([]float64, r*k)
	for i := 0; i < r; i++ {
		mat.Row(flat[i*k:(i+1)*k], i, proba)
	}
	return weightedMultiLogLoss("MultiLogLoss", vecData(yTrue), flat, nil, k)
}

func weightedMultiLogLoss(op string, labels, probs, weights []float64, k int) (float64, error) {
	if err := requireClasses(op, labels, k); err != nil {
		return 0, err
	}
	loss := make([]float64, len(labels))
	for i, y := range labels {
		loss[i] = -errors.StabilizeLog(probs[i*k+int(y)])
	}
	return weightedMean(loss, weights), nil
}

// MultiError は多クラスの誤分類率を計算する。予測クラスは確率最大の列
func MultiError(yTrue *mat.VecDense, proba mat.Matrix) (float64, error) {
	if yTrue == nil || proba == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("MultiError", "empty input")
	}
	r, k := proba.Dims()
	if r != yTrue.Len() {
		return 0, errors.NewDimensionError("MultiError", yTrue.Len(), r, 0)
	}
	flat := make([]float64, r*k)
	for i := 0; i < r; i++ {
		mat.Row(flat[i*k:(i+1)*k], i, proba)
	}
	return weightedMultiError("MultiError", vecData(yTrue), flat, nil, k)
}

func weightedMultiError(op string, labels, probs, weights []float64, k int) (float64, error) {
	if err := requireClasses(op, labels, k); err != nil {
		return 0, err
	}
	miss := make([]float64, len(labels))
	for i, y := range labels {
		if floats.MaxIdx(probs[i*k:(i+1)*k]) != int(y) {
			miss[i] = 1
		}
	}
	return weightedMean(miss, weights), nil
}

func weightedBinaryError(labels, probs, weights []float64) float64 {
	miss := make([]float64, len(labels))
	for i, y := range labels {
		pred := 0.0
		if probs[i] > 0.5 {
			pred = 1
		}
		if pred != y {
			miss[i] = 1
		}
	}
	return weightedMean(miss, weights)
}

func requireBinary(op string, labels []float64) error {
	for i, y := range labels {
		if y != 0 && y != 1 {
			return errors.NewInvalidInputErrorf(op, i, -1, "label must be 0 or 1, got %g", y)
		}
	}
	return nil
}

func requireClasses(op string, labels []float64, k int) error {
	for i, y := range labels {
		if y < 0 || y >= float64(k) || y != math.Trunc(y) {
			return errors.NewInvalidInputErrorf(op, i, -1, "label must be an integer in [0, %d), got %g", k, y)
		}
	}
	return nil
}

func vecData(v *mat.VecDense) []float64 {
	raw := v.RawVector()
	if raw.Inc == 1 {
		return raw.Data[:v.Len()]
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
