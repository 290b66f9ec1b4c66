package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError は回復されたパニックから作成されたエラーです。
// 学習ループやワーカー内の予期しないパニックを、呼び出し元へ返せるエラーに変換します。
type PanicError struct {
	PanicValue interface{} // panic() に渡された値
	StackTrace string      // パニック発生時のスタックトレース
	Operation  string      // 回復した操作名
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap はパニック値がerrorの場合にそれを返します。
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String はスタックトレースを含む詳細情報を返します。
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s", e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError は新しいPanicErrorを作成します。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover はdeferと共に使用し、パニックをエラーに変換します。
//
//	func (s *Session) Step() (err error) {
//	    defer errors.Recover(&err, "Session.Step")
//	    ...
//	}
//
// 既にエラーが設定されている場合は、そのエラーをパニック情報でラップします。
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = Wrapf(*err, "panic in %s: %v", operation, r)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute は関数を実行し、パニックをエラーに変換して返します。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
