// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// 学習セッションを中断するエラー（入力不正・設定不正）と、ノード単位で吸収される
// 警告（数値不安定）を区別し、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("hgboost-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、AUCを計算する際にラベルが一種類しか存在しない場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// InvalidInputError は学習データ（特徴量レコード・ラベル・重み）が不正な場合のエラーです。
// 学習開始前に呼び出し元へ返され、セッションを中断します。
type InvalidInputError struct {
	Op      string
	Row     int // 問題のある行（不明な場合は -1）
	Feature int // 問題のある特徴量（不明な場合は -1）
	Reason  string
}

func (e *InvalidInputError) Error() string {
	switch {
	case e.Row >= 0 && e.Feature >= 0:
		return fmt.Sprintf("hgboost: %s: invalid input at row %d, feature %d: %s", e.Op, e.Row, e.Feature, e.Reason)
	case e.Row >= 0:
		return fmt.Sprintf("hgboost: %s: invalid input at row %d: %s", e.Op, e.Row, e.Reason)
	case e.Feature >= 0:
		return fmt.Sprintf("hgboost: %s: invalid input for feature %d: %s", e.Op, e.Feature, e.Reason)
	}
	return fmt.Sprintf("hgboost: %s: invalid input: %s", e.Op, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidInputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("row", e.Row).
		Int("feature", e.Feature).
		Str("reason", e.Reason).
		Str("type", "InvalidInputError")
}

// NewInvalidInputError は新しいInvalidInputErrorを作成し、スタックトレースを付与します。
func NewInvalidInputError(op string, row, feature int, reason string) error {
	err := &InvalidInputError{Op: op, Row: row, Feature: feature, Reason: reason}
	return errors.WithStack(err)
}

// NewInvalidInputErrorf はフォーマット済みの理由でInvalidInputErrorを作成します。
func NewInvalidInputErrorf(op string, row, feature int, format string, args ...interface{}) error {
	return NewInvalidInputError(op, row, feature, fmt.Sprintf(format, args...))
}

// ConfigurationError は矛盾した、または範囲外のハイパーパラメータが指定された場合のエラーです。
// セッション開始時に検出されます。
type ConfigurationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("hgboost: invalid configuration for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError は新しいConfigurationErrorを作成し、スタックトレースを付与します。
func NewConfigurationError(param, reason string, value interface{}) error {
	err := &ConfigurationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// NotFittedError はモデルが未学習の状態で `Predict` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("hgboost: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("hgboost: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("hgboost: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError はモデルの読み書きなど、学習済みモデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hgboost: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("hgboost: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// NumericalInstabilityError はノードの統計量が退化した場合のエラーです。
// ヘッセ行列の和が非正、または葉の重みがNaN/Infになった場合に発生します。
// 学習は中断せず、該当ノードを葉として扱い警告として報告します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "leaf_weight", "gradient"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したブースティングラウンド
	Node      int       // 発生したノード（不明な場合は -1）
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	if e.Node >= 0 {
		return fmt.Sprintf("hgboost: numerical instability detected in %s at round %d, node %d. Values: [%s]",
			e.Operation, e.Iteration, e.Node, valStr)
	}
	return fmt.Sprintf("hgboost: numerical instability detected in %s at round %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Floats64("values", e.Values).
		Int("round", e.Iteration).
		Int("node", e.Node).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return NewNodeInstabilityError(operation, values, iteration, -1)
}

// NewNodeInstabilityError はノード番号付きのNumericalInstabilityErrorを作成します。
func NewNodeInstabilityError(operation string, values []float64, iteration, node int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
		Node:      node,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// IsInvalidInput はエラーがInvalidInputErrorを含むかどうかを判定します。
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// IsConfiguration はエラーがConfigurationErrorを含むかどうかを判定します。
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrStopTraining はコールバックが学習の停止を要求した場合に返されます。
	ErrStopTraining = New("training stopped by callback")
)
