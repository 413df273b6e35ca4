package onboarding

import (
	"context"
	"time"
)

// Logger interface for operational logging of onboarding runs, warnings, and error reporting.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// This interface follows the same dependency-free pattern as MetricsCollector and TracingCollector,
// allowing users to integrate with any logging backend (OpenTelemetry, structured loggers, etc.)
// that supports context-based correlation and automatic trace/span ID inclusion.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting onboarding performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware methods for better tracing integration.
// Components use the context-aware methods when available, falling back to the base MetricsCollector.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from onboarding runs.
// Users integrate with any tracing backend (OpenTelemetry, Jaeger, Zipkin, etc.) by implementing it.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

const (
	// MetricBatchDuration tracks the wall time of one bulk call (OpenTelemetry-compatible).
	MetricBatchDuration = "onboarding_batch_duration_seconds"

	// MetricBatches counts processed batches, labeled by operation and status.
	MetricBatches = "onboarding_batches_total"

	// MetricAccountsSucceeded records the number of accounts accepted in one batch.
	MetricAccountsSucceeded = "onboarding_accounts_succeeded"

	// MetricAccountsFailed records the number of accounts rejected in one batch.
	MetricAccountsFailed = "onboarding_accounts_failed"

	// MetricOnboardSetSize records the size of the reconciled onboarding set.
	MetricOnboardSetSize = "onboarding_onboard_set_size"

	// StatusSuccess marks a batch or run without failures.
	StatusSuccess = "success"

	// StatusPartial marks a batch where the call succeeded but some accounts were rejected.
	StatusPartial = "partial"

	// StatusError marks a batch whose call failed as a whole, or a fatal run.
	StatusError = "error"

	spanNameSubmitBatch = "onboarding.submit_batch"
	spanNameRun         = "onboarding.run"

	spanAttrOperation  = "operation"
	spanAttrBatchIndex = "batch_index"
	spanAttrBatchSize  = "batch_size"
	spanAttrFailed     = "failed_count"
	spanAttrRunID      = "run_id"

	logAttrError      = "error"
	logAttrOperation  = "operation"
	logAttrBatchIndex = "batch_index"
	logAttrBatchSize  = "batch_size"
	logAttrSucceeded  = "succeeded"
	logAttrFailed     = "failed"
	logAttrAccountID  = "account_id"
	logAttrDurationMS = "duration_ms"
	logAttrRunID      = "run_id"
	logAttrCount      = "count"
)
