package awsengine

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/aws/smithy-go"

	"github.com/cloudsecops/orgonboard/onboarding"
)

const logMsgThrottled = "aws call throttled, backing off"

// retryConfig holds configuration for the throttle backoff.
type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

// retryOnThrottle runs fn and retries it with exponential backoff while it fails with a
// throttling error, up to maxAttempts calls in total. Any other error is returned at once.
//
// Retry schedule (default): 0 ms, 200 ms, 400 ms (with 30% jitter).
func retryOnThrottle(ctx context.Context, operation string, s *settings, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < s.retry.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := s.retry.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * s.retry.jitterFactor //nolint:gosec // math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			s.recordRetry(ctx, operation, attempt, lastErr, backoffDelay)

			select {
			case <-time.After(backoffDelay):
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsThrottle(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// IsThrottle reports whether err carries an AWS throttling error code.
func IsThrottle(err error) bool {
	_, ok := throttleCodes[ErrorCode(err)]
	return ok
}

// ErrorCode returns the AWS error code carried by err, or an empty string.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}

	return ""
}

func (s *settings) recordRetry(ctx context.Context, operation string, attempt int, lastErr error, delay time.Duration) {
	code := ErrorCode(lastErr)

	if s.logger != nil {
		s.logger.Warn(logMsgThrottled,
			"operation", operation,
			"attempt", attempt+1,
			"error_code", code,
			"delay_ms", delay.Milliseconds(),
		)
	}

	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		"operation":      operation,
		"error_code":     code,
		"attempt_number": strconv.Itoa(attempt),
	}

	if contextualCollector, ok := s.metricsCollector.(onboarding.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, MetricThrottleRetries, labels)
		return
	}

	s.metricsCollector.IncrementCounter(MetricThrottleRetries, labels)
}
