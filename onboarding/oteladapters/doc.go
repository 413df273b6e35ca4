// Package oteladapters implements the onboarding observability interfaces on top of OpenTelemetry.
//
// Loggers: SlogBridgeLogger routes through the otelslog bridge and correlates records with the
// active span; OTelLogger emits log records through the OpenTelemetry log API directly.
// MetricsCollector maps durations to histograms, counters to counters and values to gauges,
// or to float counters for metrics registered as cumulative.
// TracingCollector maps the onboarding span statuses (success, partial, error) to span status codes.
package oteladapters
