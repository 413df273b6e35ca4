// Package telemetry sets up the OpenTelemetry SDK for the orgonboard command and hands out
// the onboarding collectors built on it.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/cloudsecops/orgonboard/onboarding/oteladapters"
)

const (
	// DefaultEndpoint is the OTLP gRPC endpoint of a local OpenTelemetry Collector.
	DefaultEndpoint = "localhost:4317"

	// ServiceName identifies the command in exported telemetry.
	ServiceName = "orgonboard"

	instrumentationName = "github.com/cloudsecops/orgonboard"
	exportInterval      = 5 * time.Second
)

// Providers holds the OpenTelemetry SDK providers of one process.
type Providers struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Resource       *resource.Resource
}

// NewProviders creates tracer, meter and logger providers exporting over OTLP gRPC to endpoint
// and installs them as the global providers. An empty endpoint means DefaultEndpoint.
func NewProviders(ctx context.Context, endpoint, serviceVersion string) (*Providers, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	logExporter, err := otlploggrpc.New(
		ctx,
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create log exporter: %w", err)
	}

	return install(res,
		trace.WithBatcher(traceExporter),
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(exportInterval))),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	), nil
}

// NewProvidersWith creates providers from caller supplied span processing, readers and log
// processing, for example in-memory exporters. They are installed globally like NewProviders does.
func NewProvidersWith(
	res *resource.Resource,
	traceOption trace.TracerProviderOption,
	metricOption metric.Option,
	logOption sdklog.LoggerProviderOption,
) *Providers {

	if res == nil {
		res = resource.Default()
	}

	return install(res, traceOption, metricOption, logOption)
}

func install(
	res *resource.Resource,
	traceOption trace.TracerProviderOption,
	metricOption metric.Option,
	logOption sdklog.LoggerProviderOption,
) *Providers {

	tracerProvider := trace.NewTracerProvider(traceOption, trace.WithResource(res))
	meterProvider := metric.NewMeterProvider(metricOption, metric.WithResource(res))
	loggerProvider := sdklog.NewLoggerProvider(logOption, sdklog.WithResource(res))

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	global.SetLoggerProvider(loggerProvider)

	return &Providers{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		LoggerProvider: loggerProvider,
		Resource:       res,
	}
}

// Collectors returns the onboarding collectors backed by these providers.
func (p *Providers) Collectors() (*oteladapters.MetricsCollector, *oteladapters.TracingCollector, *oteladapters.SlogBridgeLogger) {
	metrics := oteladapters.NewOnboardingMetricsCollector(p.MeterProvider.Meter(instrumentationName))
	tracing := oteladapters.NewTracingCollector(p.TracerProvider.Tracer(instrumentationName))
	logger := oteladapters.NewSlogBridgeLoggerWithProvider(instrumentationName, p.LoggerProvider)

	return metrics, tracing, logger
}

// Shutdown flushes and stops all providers. Each is always shut down; errors are joined.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
		p.LoggerProvider.Shutdown(ctx),
	)
}
