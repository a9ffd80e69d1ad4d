package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop().Sugar()

// Level is the verbose representation of log level.
type Level string

// Enums for Level.
const (
	NopLevel   Level = "nop"
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"

	// ZapNopLevel is above every level zap logs at.
	ZapNopLevel zapcore.Level = zapcore.FatalLevel + 1
)

// IsValid returns true for the known levels, and the empty level which means
// NopLevel.
func (l Level) IsValid() bool {
	switch l {
	case "", NopLevel, DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return true
	}
	return false
}

// ToZapLevel converts Level to a zapcore.Level. Unknown levels are nop.
func (l Level) ToZapLevel() zapcore.Level {
	switch l {
	default:
		return ZapNopLevel
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	}
}

// InitLogger replaces the global logger with a console logger writing
// "key=value" prefixed fields to stderr.
func InitLogger(logLevel Level) {
	mustInit(logLevel, "console", consoleEncoderConfig())
}

// InitLoggerJSON replaces the global logger with a JSON logger writing to
// stderr.
func InitLoggerJSON(logLevel Level) {
	mustInit(logLevel, "json", jsonEncoderConfig())
}

func mustInit(logLevel Level, encoding string, enc zapcore.EncoderConfig) {
	if logLevel.ToZapLevel() == ZapNopLevel {
		logger = zap.NewNop().Sugar()
		return
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(logLevel.ToZapLevel())
	cfg.Encoding = encoding
	cfg.EncoderConfig = enc
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	logger = l.Sugar()
}

// ReplaceLogger swaps the global logger, returning a function restoring the
// previous one.
//
// It's mainly useful in tests, together with zaptest/observer.
func ReplaceLogger(l *zap.Logger) (restore func()) {
	prev := logger
	logger = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	return func() {
		logger = prev
	}
}

// Debugw logs a message with some additional context.
//
// The variadic key-value pairs are treated as they are in With.
func Debugw(msg string, keysAndValues ...interface{}) {
	logger.Debugw(msg, keysAndValues...)
}

// Infow logs a message at info level, see Debugw.
func Infow(msg string, keysAndValues ...interface{}) {
	logger.Infow(msg, keysAndValues...)
}

// Warnw logs a message at warn level, see Debugw.
func Warnw(msg string, keysAndValues ...interface{}) {
	logger.Warnw(msg, keysAndValues...)
}

// Errorw logs a message at error level, see Debugw.
func Errorw(msg string, keysAndValues ...interface{}) {
	logger.Errorw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	return logger.Sync()
}

// With returns the global logger with the given key-value pairs added.
func With(args ...interface{}) *zap.SugaredLogger {
	return logger.With(args...)
}
