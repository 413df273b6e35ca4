package awsengine

import (
	"time"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// settings holds what DirectoryReader and Registry share.
type settings struct {
	pageSize         int32
	retry            retryConfig
	logger           onboarding.Logger
	metricsCollector onboarding.MetricsCollector
}

func newSettings(options []Option) (settings, error) {
	s := settings{
		pageSize: defaultPageSize,
		retry: retryConfig{
			maxAttempts:  defaultMaxAttempts,
			baseDelay:    defaultBaseDelay,
			jitterFactor: defaultJitterFactor,
		},
	}

	for _, option := range options {
		if err := option(&s); err != nil {
			return settings{}, err
		}
	}

	return s, nil
}

// Option defines a functional option for configuring DirectoryReader and Registry.
type Option func(*settings) error

// WithPageSize sets the page size hint for listing calls.
func WithPageSize(size int32) Option {
	return func(s *settings) error {
		if size < 1 || size > maxPageSize {
			return ErrInvalidPageSize
		}

		s.pageSize = size

		return nil
	}
}

// WithMaxAttempts sets how often a throttled call is attempted in total.
func WithMaxAttempts(attempts int) Option {
	return func(s *settings) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		s.retry.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay of the throttle backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, etc.
func WithBaseDelay(delay time.Duration) Option {
	return func(s *settings) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		s.retry.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter added to each backoff delay, from 0.0 to 1.0.
func WithJitterFactor(factor float64) Option {
	return func(s *settings) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		s.retry.jitterFactor = factor

		return nil
	}
}

// WithLogger sets the logger for paging and retry messages.
func WithLogger(logger onboarding.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for throttle retries.
func WithMetrics(collector onboarding.MetricsCollector) Option {
	return func(s *settings) error {
		s.metricsCollector = collector
		return nil
	}
}
