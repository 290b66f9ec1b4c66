// Package log は学習・推論処理のための構造化ロギングを提供します。
//
// Logger インターフェースは log/slog と同じ形（メッセージ + キー/値の並び）を持ち、
// 実装は github.com/rs/zerolog をバックエンドとします。
//
//	logger := log.GetLoggerWithName("gbdt.session").With(
//	    log.ObjectiveKey, "binary:logistic",
//	)
//	logger.Info("Round finished", log.RoundKey, 3, log.LeavesKey, 8)
package log

import (
	"context"
)

// Logger はslog互換の構造化ロガーです。
// fields はキーと値の交互の並びです。Error の場合、先頭に error を置くと
// スタックトレースとともに記録されます。
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With は指定フィールドを常に含む新しいLoggerを返します。
	With(fields ...any) Logger

	// Enabled は指定レベルのログが出力されるかどうかを返します。
	Enabled(ctx context.Context, level Level) bool
}

// Level はログレベルです。値は slog.Level と互換です。
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider はLoggerの生成と設定を行います。
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
