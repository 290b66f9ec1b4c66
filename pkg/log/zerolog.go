package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// ZerologLogger はzerologをバックエンドとするLogger実装です。
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger は w に JSON 行を書き出すLoggerを作成します。
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// Zerolog は内部のzerolog.Loggerを返します。
func (l *ZerologLogger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *ZerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }
func (l *ZerologLogger) Info(msg string, fields ...any)  { emit(l.zl.Info(), msg, fields) }
func (l *ZerologLogger) Warn(msg string, fields ...any)  { emit(l.zl.Warn(), msg, fields) }
func (l *ZerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// emit はフィールドをイベントへ書き込みます。
// 無効化されたレベルでは zerolog が nil イベントを返すため何もしません。
func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Stack().Err(err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case string:
			e = e.Str(key, v)
		case int:
			e = e.Int(key, v)
		case float64:
			e = e.Float64(key, v)
		case bool:
			e = e.Bool(key, v)
		case error:
			e = e.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider はLoggerProviderのzerolog実装です。
type ZerologProvider struct {
	mu    sync.RWMutex
	w     io.Writer
	level Level
}

// NewZerologProvider は新しいZerologProviderを作成します。
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{w: w, level: level}
}

func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return NewZerologLogger(p.w, p.level)
}

func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel は以降に生成されるLoggerのレベルを設定します。
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}
