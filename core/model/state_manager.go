// Package model は学習済みモデルの状態管理と永続化を提供します。
package model

import (
	"sync"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// StateManager はモデルの学習済み状態をスレッドセーフに管理します。
// 推定器に埋め込まず、フィールドとして保持して使用します。
type StateManager struct {
	mu sync.RWMutex

	// gobエンコードのため公開
	Fitted    bool
	NFeatures int
	NSamples  int
}

// NewStateManager は新しいStateManagerを作成します。
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted はモデルが学習済みかどうかを返します。
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted は学習済みとして記録し、学習時のデータ形状を保存します。
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// Reset は状態を初期化します。
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// GetDimensions は学習時の特徴量数とサンプル数を返します。
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted は未学習の場合にNotFittedErrorを返します。
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// RequireFeatures は入力の特徴量数が学習時と一致するかを検証します。
func (s *StateManager) RequireFeatures(op string, got int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.NFeatures != got {
		return errors.NewDimensionError(op, s.NFeatures, got, 1)
	}
	return nil
}
