package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	hgerrors "github.com/YuminosukeSato/hgboost/pkg/errors"
)

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

func init() {
	zerolog.ErrorStackMarshaler = marshalStack
	zerolog.ErrorStackFieldName = StacktraceKey
}

// SetupLogger はプロセス既定のロガーを設定します。
// w が nil の場合は標準出力へ書き出します。
// pkg/errors の警告もこのロガーへ転送されます。
func SetupLogger(loglevel string, w io.Writer) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stdout
	}
	SetProvider(NewZerologProvider(w, level))
	return nil
}

// ConsoleWriter は人間向けの整形出力を行うWriterを返します。
func ConsoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

// SetProvider は既定のLoggerProviderを差し替えます。
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defaultProvider = p
	providerMu.Unlock()

	warnLogger := p.GetLoggerWithName("warnings")
	hgerrors.SetZerologWarnFunc(func(w error) {
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			warnLogger.Warn(w.Error(), "warning", m)
			return
		}
		warnLogger.Warn(w.Error())
	})
}

// GetLogger は既定のLoggerを返します。
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName はコンポーネント名付きのLoggerを返します。
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// SetLevel は既定プロバイダのレベルを設定します。
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	defaultProvider.SetLevel(level)
}

// ParseLevel はレベル名を Level に変換します。
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, hgerrors.NewConfigurationError("log_level", "must be one of debug, info, warn, error", level)
}

// marshalStack は cockroachdb/errors が保持するスタックを取り出します。
func marshalStack(err error) interface{} {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return nil
}
