// Package logger provides the structured, context-aware logging interface
// used throughout the market-feed subsystem, backed by go.uber.org/zap.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerInterface is the leveled, key-value logging contract every
// component depends on instead of a concrete logger type.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
	With(kv ...any) LoggerInterface
}

// Level selects the minimum severity that is emitted.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a LoggerInterface writing JSON lines to w at the given level.
// name tags every line (e.g. "marketfeed.manager", "marketfeed.slot").
func New(w io.Writer, level Level, name string) LoggerInterface {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		zapLevel(level),
	)

	base := zap.New(core).Named(name).Sugar()

	return &zapLogger{sugar: base}
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (z *zapLogger) log(ctx context.Context, level Level, msg string, kv ...any) {
	if traceID := traceIDFrom(ctx); traceID != "" {
		kv = append(kv, "trace_id", traceID)
	}
	switch level {
	case LevelDebug:
		z.sugar.Debugw(msg, kv...)
	case LevelWarn:
		z.sugar.Warnw(msg, kv...)
	case LevelError:
		z.sugar.Errorw(msg, kv...)
	default:
		z.sugar.Infow(msg, kv...)
	}
}

func (z *zapLogger) Debug(ctx context.Context, msg string, kv ...any) {
	z.log(ctx, LevelDebug, msg, kv...)
}
func (z *zapLogger) Info(ctx context.Context, msg string, kv ...any) {
	z.log(ctx, LevelInfo, msg, kv...)
}
func (z *zapLogger) Warn(ctx context.Context, msg string, kv ...any) {
	z.log(ctx, LevelWarn, msg, kv...)
}
func (z *zapLogger) Error(ctx context.Context, msg string, kv ...any) {
	z.log(ctx, LevelError, msg, kv...)
}

func (z *zapLogger) With(kv ...any) LoggerInterface {
	return &zapLogger{sugar: z.sugar.With(kv...)}
}

// traceIDFrom adds no trace ID until SetTraceIDExtractor replaces it, so
// log lines can correlate with the active span without this package
// importing the tracing SDK directly.
var traceIDFrom = func(context.Context) string { return "" }

// SetTraceIDExtractor overrides how log lines pick up the active trace ID.
func SetTraceIDExtractor(fn func(context.Context) string) {
	if fn != nil {
		traceIDFrom = fn
	}
}

// NewNop returns a logger that discards everything; used in tests.
func NewNop() LoggerInterface {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}
