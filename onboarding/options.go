package onboarding

import "time"

// Option defines a functional option for configuring a Submitter or an Inviter.
type Option func(*batchRunner) error

// WithPacing sets the fixed delay between two consecutive batches.
// Zero disables pacing. The delay is unconditional, it does not adapt to failures.
func WithPacing(pacing time.Duration) Option {
	return func(r *batchRunner) error {
		if pacing < 0 {
			return ErrNegativePacing
		}

		r.pacing = pacing

		return nil
	}
}

// WithSleeper replaces time.Sleep for the pacing delay. Tests use it to observe pacing without waiting.
func WithSleeper(sleeper Sleeper) Option {
	return func(r *batchRunner) error {
		if sleeper == nil {
			return ErrNilSleeper
		}

		r.sleep = sleeper

		return nil
	}
}

// WithLogger sets the logger.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: per-batch timing
// Info level: per-batch account counts
// Warn level: rejections naming accounts that were not part of the batch
// Error level: bulk calls that failed as a whole.
func WithLogger(logger Logger) Option {
	return func(r *batchRunner) error {
		r.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger.
// Messages carry the batch context, so trace and span ids are attached when tracing is enabled.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(r *batchRunner) error {
		r.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
// It receives batch durations, batch counts by status and per-batch success/failure counts.
func WithMetrics(collector MetricsCollector) Option {
	return func(r *batchRunner) error {
		r.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector. Every bulk call gets its own span.
func WithTracing(collector TracingCollector) Option {
	return func(r *batchRunner) error {
		r.tracingCollector = collector
		return nil
	}
}
