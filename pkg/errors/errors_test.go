package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "LoadModel",
			kind:    "unsupported format version",
			err:     fmt.Errorf("version 7"),
			wantMsg: "hgboost: LoadModel: unsupported format version: version 7",
		},
		{
			name:    "without original error",
			op:      "ReadJSON",
			kind:    "empty model",
			err:     nil,
			wantMsg: "hgboost: ReadJSON: empty model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewInvalidInputError(t *testing.T) {
	tests := []struct {
		name    string
		row     int
		feature int
		want    string
	}{
		{"row and feature", 3, 7, "hgboost: AppendSparse: invalid input at row 3, feature 7: index out of range"},
		{"row only", 3, -1, "hgboost: AppendSparse: invalid input at row 3: index out of range"},
		{"feature only", -1, 7, "hgboost: AppendSparse: invalid input for feature 7: index out of range"},
		{"no position", -1, -1, "hgboost: AppendSparse: invalid input: index out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInvalidInputError("AppendSparse", tt.row, tt.feature, "index out of range")
			if err.Error() != tt.want {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.want)
			}
			if !IsInvalidInput(err) {
				t.Error("IsInvalidInput should report true")
			}
			if IsConfiguration(err) {
				t.Error("IsConfiguration should report false")
			}
		})
	}
}

func TestNewConfigurationError(t *testing.T) {
	err := NewConfigurationError("max_leaves", "must be at least 1 for loss-guided growth", 0)

	want := "hgboost: invalid configuration for parameter 'max_leaves': must be at least 1 for loss-guided growth (got: 0)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	wrapped := Wrap(err, "NewSession")
	if !IsConfiguration(wrapped) {
		t.Error("wrapped ConfigurationError should still be detected")
	}

	var cfgErr *ConfigurationError
	if !As(wrapped, &cfgErr) {
		t.Fatal("Error should be castable to *ConfigurationError")
	}
	if cfgErr.ParamName != "max_leaves" {
		t.Errorf("ParamName = %q", cfgErr.ParamName)
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 4, 1)

	want := "hgboost: Predict: dimension mismatch on axis 1 (features). Expected 10, got 4"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Regressor", "Predict")

	want := "hgboost: Regressor: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNumericalInstabilityError(t *testing.T) {
	err := NewNodeInstabilityError("leaf_weight", []float64{-0.5, 1, 2, 3, 4, 5, 6}, 4, 12)

	msg := err.Error()
	if !strings.Contains(msg, "round 4, node 12") {
		t.Errorf("message should mention round and node: %s", msg)
	}
	if !strings.Contains(msg, "...") {
		t.Errorf("long value lists should be truncated: %s", msg)
	}

	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatal("Error should be castable to *NumericalInstabilityError")
	}
	if numErr.Node != 12 {
		t.Errorf("Node = %d, want 12", numErr.Node)
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("gradient", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("finite values should pass: %v", err)
	}
	if err := CheckNumericalStability("gradient", []float64{1, math.NaN()}, 0); err == nil {
		t.Error("NaN should be reported")
	}
	if err := CheckScalar("hessian", math.Inf(1), 2); err == nil {
		t.Error("Inf should be reported")
	}
}

func TestWarnRouting(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("auc", "only one class present", 0.5))
	if len(got) != 1 {
		t.Fatalf("expected one routed warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "'auc' is ill-defined") {
		t.Errorf("unexpected warning text: %v", got[0])
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d rows, got %d", "Build", 10, 0)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Build: expected 10 rows, got 0"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestErrorChaining(t *testing.T) {
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("SaveModel", "failed", err2)

	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}

	formatted := fmt.Sprintf("%+v", err3)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected detailed error to contain stack trace")
	}
}

func TestStableMath(t *testing.T) {
	if got := LogSumExp([]float64{1000, 1000}); math.Abs(got-(1000+math.Ln2)) > 1e-9 {
		t.Errorf("LogSumExp = %v", got)
	}
	if got := LogSumExp(nil); !math.IsInf(got, -1) {
		t.Errorf("LogSumExp(nil) = %v, want -Inf", got)
	}
	if got := StabilizeLog(0); got != math.Log(1e-15) {
		t.Errorf("StabilizeLog(0) = %v", got)
	}
	if got := StabilizeExp(-800); got != 0 {
		t.Errorf("StabilizeExp(-800) = %v", got)
	}
	if got := ClipValue(2, 0, 1); got != 1 {
		t.Errorf("ClipValue = %v", got)
	}

	err := CheckNumericalStability("margin", []float64{1, math.Inf(1), 2}, 3)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatal("expected NumericalInstabilityError")
	}
	if len(numErr.Values) != 1 {
		t.Errorf("only non-finite values should be kept, got %v", numErr.Values)
	}
}
