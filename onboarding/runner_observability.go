package onboarding

import (
	"context"
	"math"
	"strconv"
	"time"
)

const (
	logMsgBatchProcessed = "batch processed"
	logMsgBatchTiming    = "bulk call finished"
	logMsgBatchFailed    = "bulk call failed, all accounts of the batch recorded as failed"
	logMsgStrayRejection = "service rejected an account that was not part of the batch"
)

// logBatch logs the result of an accepted bulk call.
func (r *batchRunner) logBatch(ctx context.Context, index int, outcome SubmissionOutcome, duration time.Duration) {
	args := []any{
		logAttrOperation, r.operation,
		logAttrBatchIndex, index,
		logAttrBatchSize, outcome.Attempted,
		logAttrSucceeded, outcome.Succeeded,
		logAttrFailed, len(outcome.Failed),
	}

	if r.logger != nil {
		r.logger.Debug(logMsgBatchTiming, logAttrOperation, r.operation, logAttrDurationMS, toMilliseconds(duration))
		r.logger.Info(logMsgBatchProcessed, args...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.InfoContext(ctx, logMsgBatchProcessed, args...)
	}
}

// logBatchError logs a bulk call that failed as a whole.
func (r *batchRunner) logBatchError(ctx context.Context, index, size int, err error) {
	args := []any{
		logAttrError, err.Error(),
		logAttrOperation, r.operation,
		logAttrBatchIndex, index,
		logAttrBatchSize, size,
	}

	if r.logger != nil {
		r.logger.Error(logMsgBatchFailed, args...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.ErrorContext(ctx, logMsgBatchFailed, args...)
	}
}

// logStray warns about rejections that do not belong to the batch. They are not counted.
func (r *batchRunner) logStray(ctx context.Context, index int, stray []Failure) {
	for _, failure := range stray {
		if r.logger != nil {
			r.logger.Warn(logMsgStrayRejection, logAttrBatchIndex, index, logAttrAccountID, failure.AccountID)
		}

		if r.contextualLogger != nil {
			r.contextualLogger.WarnContext(ctx, logMsgStrayRejection, logAttrBatchIndex, index, logAttrAccountID, failure.AccountID)
		}
	}
}

// recordBatch records duration, batch count and account counts of one batch.
func (r *batchRunner) recordBatch(ctx context.Context, status string, outcome SubmissionOutcome, duration time.Duration) {
	if r.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: r.operation,
		"status":          status,
	}

	if contextualCollector, ok := r.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, MetricBatchDuration, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, MetricBatches, labels)
		contextualCollector.RecordValueContext(ctx, MetricAccountsSucceeded, float64(outcome.Succeeded), labels)
		contextualCollector.RecordValueContext(ctx, MetricAccountsFailed, float64(len(outcome.Failed)), labels)

		return
	}

	r.metricsCollector.RecordDuration(MetricBatchDuration, duration, labels)
	r.metricsCollector.IncrementCounter(MetricBatches, labels)
	r.metricsCollector.RecordValue(MetricAccountsSucceeded, float64(outcome.Succeeded), labels)
	r.metricsCollector.RecordValue(MetricAccountsFailed, float64(len(outcome.Failed)), labels)
}

// startBatchSpan starts a tracing span for one bulk call if the tracing collector is configured.
func (r *batchRunner) startBatchSpan(ctx context.Context, index, size int) (context.Context, SpanContext) {
	if r.tracingCollector == nil {
		return ctx, nil
	}

	return r.tracingCollector.StartSpan(ctx, spanNameSubmitBatch, map[string]string{
		spanAttrOperation:  r.operation,
		spanAttrBatchIndex: strconv.Itoa(index),
		spanAttrBatchSize:  strconv.Itoa(size),
	})
}

// finishBatchSpan finishes the span of one bulk call.
func (r *batchRunner) finishBatchSpan(span SpanContext, status string, outcome SubmissionOutcome) {
	if r.tracingCollector == nil || span == nil {
		return
	}

	r.tracingCollector.FinishSpan(span, status, map[string]string{
		spanAttrFailed: strconv.Itoa(len(outcome.Failed)),
	})
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
