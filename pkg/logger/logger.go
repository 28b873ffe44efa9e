package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fieldsKey struct{}

// FieldsKey 上下文中日志字段的 key
var FieldsKey = fieldsKey{}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
}

// ContextWithFields 向上下文追加日志字段, 已有字段保留
func ContextWithFields(ctx context.Context, fields ...Field) context.Context {
	prev := FieldsFromContext(ctx)
	merged := make([]Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, FieldsKey, merged)
}

// FieldsFromContext 取出上下文中的日志字段
func FieldsFromContext(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(FieldsKey).([]Field)
	return fields
}

// DetachContext 保留日志字段, 但与原上下文的取消信号解绑, 用于请求结束后仍需执行的异步任务
func DetachContext(ctx context.Context) context.Context {
	return context.WithValue(context.Background(), FieldsKey, FieldsFromContext(ctx))
}

type ZapLogger struct {
	l *zap.Logger
}

var _ Logger = (*ZapLogger)(nil)

func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{l: l}
}

// NewProductionLogger 创建 JSON 格式输出的 zap logger, fields 附加到每条日志
func NewProductionLogger(level string, fields ...Field) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1), zap.Fields(fields...))
	if err != nil {
		return nil, err
	}
	return NewZapLogger(l), nil
}

func (z *ZapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, fields...) }

func (z *ZapLogger) Info(msg string, fields ...Field) { z.l.Info(msg, fields...) }

func (z *ZapLogger) Warn(msg string, fields ...Field) { z.l.Warn(msg, fields...) }

func (z *ZapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, fields...) }

func (z *ZapLogger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	z.l.Debug(msg, append(FieldsFromContext(ctx), fields...)...)
}

func (z *ZapLogger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	z.l.Info(msg, append(FieldsFromContext(ctx), fields...)...)
}

func (z *ZapLogger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	z.l.Warn(msg, append(FieldsFromContext(ctx), fields...)...)
}

func (z *ZapLogger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	z.l.Error(msg, append(FieldsFromContext(ctx), fields...)...)
}

// NewNopLogger 测试用
func NewNopLogger() Logger {
	return NewZapLogger(zap.NewNop())
}
