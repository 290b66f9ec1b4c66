package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// checkPair は2つのベクトルが空でなく同じ長さであることを検証し、長さを返す
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != yTrue.Len() {
		return 0, errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return yTrue.Len(), nil
}

// checkWeights は重みの長さと総和を検証する。nilの場合は重みなしとして扱う
func checkWeights(op string, n int, weights []float64) error {
	if weights == nil {
		return nil
	}
	if len(weights) != n {
		return errors.NewDimensionError(op, n, len(weights), 0)
	}
	if floats.Sum(weights) <= 0 {
		return errors.NewValueError(op, "sum of weights must be positive")
	}
	return nil
}

// weightedMean は重み付き平均を計算する。weights が nil の場合は単純平均
func weightedMean(values, weights []float64) float64 {
	if weights == nil {
		return floats.Sum(values) / float64(len(values))
	}
	return floats.Dot(values, weights) / floats.Sum(weights)
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	return WeightedMSE(yTrue, yPred, nil)
}

// WeightedMSE はサンプル重み付きの平均二乗誤差を計算する
func WeightedMSE(yTrue, yPred *mat.VecDense, weights []float64) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkWeights("MSE", n, weights); err != nil {
		return 0, err
	}

	sq := make([]float64, n)
	for i := range sq {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sq[i] = diff * diff
	}
	return weightedMean(sq, weights), nil
}

// MSEMatrix は n×1 行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}
	return MSE(columnVec(yTrue, 0), columnVec(yPred, 0))
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	return WeightedMAE(yTrue, yPred, nil)
}

// WeightedMAE はサンプル重み付きの平均絶対誤差を計算する
func WeightedMAE(yTrue, yPred *mat.VecDense, weights []float64) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkWeights("MAE", n, weights); err != nil {
		return 0, err
	}

	abs := make([]float64, n)
	for i := range abs {
		abs[i] = math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return weightedMean(abs, weights), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := mat.Sum(yTrue) / float64(n)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		tss += (y - yMean) * (y - yMean)
		rss += (y - yPred.AtVec(i)) * (y - yPred.AtVec(i))
	}
	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する。yTrue が 0 のサンプルは除外される
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	valid := 0
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y == 0 {
			continue
		}
		sum += math.Abs(y-yPred.AtVec(i)) / math.Abs(y)
		valid++
	}
	if valid == 0 {
		return 0, errors.Newf("MAPE: all yTrue values are zero")
	}
	return sum / float64(valid) * 100, nil
}

func columnVec(m mat.Matrix, j int) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, j))
	}
	return v
}
