package oteladapters_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type emittedRecord struct {
	ctx    context.Context
	record log.Record
}

type recordingLogger struct {
	embedded.Logger

	mu      sync.Mutex
	records []emittedRecord
}

func (l *recordingLogger) Emit(ctx context.Context, record log.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, emittedRecord{ctx: ctx, record: record})
}

func (l *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool {
	return true
}

func (l *recordingLogger) Records() []emittedRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]emittedRecord(nil), l.records...)
}

type recordingProvider struct {
	embedded.LoggerProvider

	logger *recordingLogger
}

func (p *recordingProvider) Logger(string, ...log.LoggerOption) log.Logger {
	return p.logger
}

func attrsOf(record log.Record) map[string]log.Value {
	attrs := make(map[string]log.Value)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	return attrs
}

func newMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	return resourceMetrics
}

func findMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	require.Failf(t, "metric not found", "metric %q was not collected", name)

	return metricdata.Metrics{}
}
