package oteladapters

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// MetricsCollector implements onboarding.MetricsCollector and onboarding.ContextualMetricsCollector
// with OpenTelemetry instruments created on first use:
//   - RecordDuration -> Float64Histogram in seconds
//   - IncrementCounter -> Int64Counter
//   - RecordValue -> Float64Gauge, or Float64Counter for metrics registered with WithCumulativeValues
type MetricsCollector struct {
	meter      metric.Meter
	cumulative map[string]struct{}

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	sums       map[string]metric.Float64Counter
	gauges     map[string]metric.Float64Gauge
}

// MetricsOption configures a MetricsCollector.
type MetricsOption func(*MetricsCollector)

// WithCumulativeValues makes RecordValue add to a counter for the named metrics instead of
// setting a gauge. Per-batch account counts are such metrics.
func WithCumulativeValues(metricNames ...string) MetricsOption {
	return func(m *MetricsCollector) {
		for _, name := range metricNames {
			m.cumulative[name] = struct{}{}
		}
	}
}

// NewMetricsCollector creates a metrics collector on meter.
func NewMetricsCollector(meter metric.Meter, options ...MetricsOption) *MetricsCollector {
	m := &MetricsCollector{
		meter:      meter,
		cumulative: make(map[string]struct{}),
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		sums:       make(map[string]metric.Float64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// NewOnboardingMetricsCollector creates a collector with the account counters of the onboarding
// package registered as cumulative.
func NewOnboardingMetricsCollector(meter metric.Meter) *MetricsCollector {
	return NewMetricsCollector(meter, WithCumulativeValues(
		onboarding.MetricAccountsSucceeded,
		onboarding.MetricAccountsFailed,
	))
}

// RecordDuration records a duration in seconds.
func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), metricName, duration, labels)
}

// RecordDurationContext records a duration in seconds with context for exemplar correlation.
func (m *MetricsCollector) RecordDurationContext(ctx context.Context, metricName string, duration time.Duration, labels map[string]string) {
	if histogram := m.histogram(metricName); histogram != nil {
		histogram.Record(ctx, duration.Seconds(), attributes(labels))
	}
}

// IncrementCounter adds one to a counter.
func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), metricName, labels)
}

// IncrementCounterContext adds one to a counter with context.
func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	if counter := m.counter(metricName); counter != nil {
		counter.Add(ctx, 1, attributes(labels))
	}
}

// RecordValue records a value, see WithCumulativeValues.
func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), metricName, value, labels)
}

// RecordValueContext records a value with context, see WithCumulativeValues.
func (m *MetricsCollector) RecordValueContext(ctx context.Context, metricName string, value float64, labels map[string]string) {
	if _, ok := m.cumulative[metricName]; ok {
		if sum := m.sum(metricName); sum != nil && value >= 0 {
			sum.Add(ctx, value, attributes(labels))
		}
		return
	}

	if gauge := m.gauge(metricName); gauge != nil {
		gauge.Record(ctx, value, attributes(labels))
	}
}

func (m *MetricsCollector) histogram(name string) metric.Float64Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, ok := m.histograms[name]; ok {
		return histogram
	}

	histogram, err := m.meter.Float64Histogram(name,
		metric.WithDescription("Onboarding call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil
	}
	m.histograms[name] = histogram

	return histogram
}

func (m *MetricsCollector) counter(name string) metric.Int64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, ok := m.counters[name]; ok {
		return counter
	}

	counter, err := m.meter.Int64Counter(name, metric.WithDescription("Onboarding event counter"))
	if err != nil {
		return nil
	}
	m.counters[name] = counter

	return counter
}

func (m *MetricsCollector) sum(name string) metric.Float64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sum, ok := m.sums[name]; ok {
		return sum
	}

	sum, err := m.meter.Float64Counter(name, metric.WithDescription("Onboarding account total"))
	if err != nil {
		return nil
	}
	m.sums[name] = sum

	return sum
}

func (m *MetricsCollector) gauge(name string) metric.Float64Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, ok := m.gauges[name]; ok {
		return gauge
	}

	gauge, err := m.meter.Float64Gauge(name, metric.WithDescription("Onboarding current value"))
	if err != nil {
		return nil
	}
	m.gauges[name] = gauge

	return gauge
}

func attributes(labels map[string]string) metric.MeasurementOption {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for key, value := range labels {
		attrs = append(attrs, attribute.String(key, value))
	}

	return metric.WithAttributes(attrs...)
}

var (
	_ onboarding.MetricsCollector           = (*MetricsCollector)(nil)
	_ onboarding.ContextualMetricsCollector = (*MetricsCollector)(nil)
)
