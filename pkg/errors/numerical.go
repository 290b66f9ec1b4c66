package errors

import (
	"math"
)

const (
	// logFloor は StabilizeLog が log(0) の代わりに使う下限です。
	logFloor = 1e-15
	// expLimit を超える指数は float64 でオーバーフローします。
	expLimit = 700.0
)

// CheckNumericalStability は values に NaN または Inf が含まれていれば
// NumericalInstabilityError を返します。エラーには非有限な値だけが記録されます。
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	var bad []float64
	for _, v := range values {
		if !isFinite(v) {
			bad = append(bad, v)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return NewNumericalInstabilityError(operation, bad, iteration)
}

// CheckScalar は単一の値について CheckNumericalStability と同じ検査を行います。
func CheckScalar(operation string, value float64, iteration int) error {
	if isFinite(value) {
		return nil
	}
	return NewNumericalInstabilityError(operation, []float64{value}, iteration)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClipValue は value を [lo, hi] に収めます。
func ClipValue(value, lo, hi float64) float64 {
	return math.Min(math.Max(value, lo), hi)
}

// StabilizeLog は log(max(value, 1e-15)) を返します。
func StabilizeLog(value float64) float64 {
	return math.Log(math.Max(value, logFloor))
}

// StabilizeExp は指数を ±700 に制限した exp を返します。-700 未満は 0 です。
func StabilizeExp(value float64) float64 {
	switch {
	case value > expLimit:
		return math.Exp(expLimit)
	case value < -expLimit:
		return 0
	}
	return math.Exp(value)
}

// LogSumExp は log(Σ exp(v)) を最大値シフトで計算します。
// 空の入力と全要素が -Inf の入力には -Inf を返します。
func LogSumExp(values []float64) float64 {
	shift := math.Inf(-1)
	for _, v := range values {
		shift = math.Max(shift, v)
	}
	if math.IsInf(shift, -1) {
		return shift
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Exp(v - shift)
	}
	return shift + math.Log(sum)
}
