package oteladapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// SlogBridgeLogger implements onboarding.ContextualLogger through the OpenTelemetry slog bridge.
// Records emitted with a context that carries a span are correlated with it.
type SlogBridgeLogger struct {
	logger *slog.Logger
}

// NewSlogBridgeLogger creates a bridge logger on the global LoggerProvider.
func NewSlogBridgeLogger(name string) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name)}
}

// NewSlogBridgeLoggerWithProvider creates a bridge logger on the given LoggerProvider.
func NewSlogBridgeLoggerWithProvider(name string, provider log.LoggerProvider) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name, otelslog.WithLoggerProvider(provider))}
}

// DebugContext logs a debug message with context.
func (l *SlogBridgeLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

// InfoContext logs an info message with context.
func (l *SlogBridgeLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

// WarnContext logs a warning message with context.
func (l *SlogBridgeLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

// ErrorContext logs an error message with context.
func (l *SlogBridgeLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

var _ onboarding.ContextualLogger = (*SlogBridgeLogger)(nil)

// OTelLogger implements onboarding.ContextualLogger with the OpenTelemetry log API.
// Attribute values keep their kind where the log API has one (ints, floats, bools, durations).
type OTelLogger struct {
	logger log.Logger
}

// NewOTelLogger creates a contextual logger emitting to logger.
func NewOTelLogger(logger log.Logger) *OTelLogger {
	return &OTelLogger{logger: logger}
}

// DebugContext logs a debug message with context.
func (l *OTelLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityDebug, msg, args)
}

// InfoContext logs an info message with context.
func (l *OTelLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityInfo, msg, args)
}

// WarnContext logs a warning message with context.
func (l *OTelLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityWarn, msg, args)
}

// ErrorContext logs an error message with context.
func (l *OTelLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityError, msg, args)
}

func (l *OTelLogger) emit(ctx context.Context, severity log.Severity, msg string, args []any) {
	var record log.Record
	record.SetTimestamp(time.Now())
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetBody(log.StringValue(msg))

	// args are slog style key/value pairs; a trailing key without value is dropped
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		record.AddAttributes(log.KeyValue{Key: key, Value: logValue(args[i+1])})
	}

	l.logger.Emit(ctx, record)
}

func logValue(v any) log.Value {
	switch value := v.(type) {
	case string:
		return log.StringValue(value)
	case int:
		return log.IntValue(value)
	case int32:
		return log.Int64Value(int64(value))
	case int64:
		return log.Int64Value(value)
	case float64:
		return log.Float64Value(value)
	case bool:
		return log.BoolValue(value)
	case time.Duration:
		return log.Int64Value(value.Milliseconds())
	case error:
		return log.StringValue(value.Error())
	case fmt.Stringer:
		return log.StringValue(value.String())
	default:
		return log.StringValue(slog.AnyValue(v).String())
	}
}

var _ onboarding.ContextualLogger = (*OTelLogger)(nil)
