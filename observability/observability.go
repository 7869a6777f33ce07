// Package observability provides OpenTelemetry integration for the
// localization engine.
//
// The engine reports cache fills and clears, lookups, parse failures and
// storage operations to the global Observer. Without Init the observer is a
// no-op.
//
// Example usage:
//
//	import "github.com/kdsmith18542/localekit/observability"
//
//	func main() {
//	    if err := observability.Init(observability.Config{
//	        ServiceName:    "my-app",
//	        ServiceVersion: "1.0.0",
//	        Environment:    "production",
//	        EnableMetrics:  true,
//	    }); err != nil {
//	        log.Fatal().Err(err).Msg("observability")
//	    }
//	}
package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kdsmith18542/localekit"

// Config holds the configuration for observability initialization
type Config struct {
	// ServiceName is the name of the service for tracing and metrics
	ServiceName string `yaml:"serviceName" env:"SERVICE_NAME"`
	// ServiceVersion is the version of the service
	ServiceVersion string `yaml:"serviceVersion" env:"SERVICE_VERSION"`
	// Environment is the deployment environment (dev, staging, prod)
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
	// EnableTracing enables distributed tracing
	EnableTracing bool `yaml:"tracing" env:"TRACING"`
	// EnableMetrics enables metrics collection
	EnableMetrics bool `yaml:"metrics" env:"METRICS"`
	// MetricReader receives the collected metrics. Without one the meter
	// provider records but never exports.
	MetricReader sdkmetric.Reader `yaml:"-" env:"-"`
}

// Observer receives engine events.
type Observer interface {
	OnLookup(ctx context.Context, culture string, key string, found bool, duration time.Duration)
	OnCacheFill(ctx context.Context, tier string, duration time.Duration)
	OnCacheClear(ctx context.Context, tier string)
	OnParseFailure(ctx context.Context, resource string, err error)
	OnStorageOperation(ctx context.Context, operation string, storageType string, duration time.Duration, success bool)
}

type holder struct{ Observer }

var globalObserver atomic.Pointer[holder]

func init() {
	globalObserver.Store(&holder{noopObserver{}})
}

// Init initializes the observability system with the given configuration
func Init(config Config) error {
	if !config.EnableTracing && !config.EnableMetrics {
		SetObserver(nil)
		return nil
	}

	if err := initOpenTelemetry(config); err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	observer, err := newOtelObserver(otel.Meter(instrumentationName))
	if err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	SetObserver(observer)
	return nil
}

// SetObserver sets a custom observer. A nil observer restores the no-op.
func SetObserver(observer Observer) {
	if observer == nil {
		observer = noopObserver{}
	}
	globalObserver.Store(&holder{observer})
}

// GetObserver returns the current observer instance
func GetObserver() Observer {
	return globalObserver.Load().Observer
}

// StartSpan starts a new span for tracing
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attributes map[string]string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		attrs := make([]attribute.KeyValue, 0, len(attributes))
		for k, v := range attributes {
			attrs = append(attrs, attribute.String(k, v))
		}
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

type noopObserver struct{}

func (noopObserver) OnLookup(context.Context, string, string, bool, time.Duration) {}
func (noopObserver) OnCacheFill(context.Context, string, time.Duration)           {}
func (noopObserver) OnCacheClear(context.Context, string)                         {}
func (noopObserver) OnParseFailure(context.Context, string, error)                {}
func (noopObserver) OnStorageOperation(context.Context, string, string, time.Duration, bool) {
}

// otelObserver implements Observer using OpenTelemetry
type otelObserver struct {
	lookups        metric.Int64Counter
	lookupDuration metric.Float64Histogram
	cacheFills     metric.Int64Counter
	fillDuration   metric.Float64Histogram
	cacheClears    metric.Int64Counter
	parseFailures  metric.Int64Counter
	storageOps     metric.Int64Counter
	storageLatency metric.Float64Histogram
}

func newOtelObserver(meter metric.Meter) (*otelObserver, error) {
	o := &otelObserver{}
	var err error
	if o.lookups, err = meter.Int64Counter("localekit.lookups",
		metric.WithDescription("Lookups resolved by the engine")); err != nil {
		return nil, err
	}
	if o.lookupDuration, err = meter.Float64Histogram("localekit.lookup.duration",
		metric.WithUnit("ms"), metric.WithDescription("Time spent computing uncached lookups")); err != nil {
		return nil, err
	}
	if o.cacheFills, err = meter.Int64Counter("localekit.cache.fills",
		metric.WithDescription("Cache tier population count")); err != nil {
		return nil, err
	}
	if o.fillDuration, err = meter.Float64Histogram("localekit.cache.fill.duration",
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if o.cacheClears, err = meter.Int64Counter("localekit.cache.clears",
		metric.WithDescription("Cache tier invalidation count")); err != nil {
		return nil, err
	}
	if o.parseFailures, err = meter.Int64Counter("localekit.parse.failures",
		metric.WithDescription("Resources that failed to parse")); err != nil {
		return nil, err
	}
	if o.storageOps, err = meter.Int64Counter("localekit.storage.operations"); err != nil {
		return nil, err
	}
	if o.storageLatency, err = meter.Float64Histogram("localekit.storage.duration",
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return o, nil
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func (o *otelObserver) OnLookup(ctx context.Context, culture string, key string, found bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("culture", culture),
		attribute.Bool("found", found),
	)
	o.lookups.Add(ctx, 1, attrs)
	o.lookupDuration.Record(ctx, millis(duration), attrs)
	AddSpanEvent(ctx, "i18n.lookup", map[string]string{
		"culture": culture,
		"key":     key,
		"found":   fmt.Sprintf("%t", found),
	})
}

func (o *otelObserver) OnCacheFill(ctx context.Context, tier string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("tier", tier))
	o.cacheFills.Add(ctx, 1, attrs)
	o.fillDuration.Record(ctx, millis(duration), attrs)
}

func (o *otelObserver) OnCacheClear(ctx context.Context, tier string) {
	o.cacheClears.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

func (o *otelObserver) OnParseFailure(ctx context.Context, resource string, err error) {
	o.parseFailures.Add(ctx, 1)
	AddSpanEvent(ctx, "i18n.parse.failed", map[string]string{
		"resource": resource,
		"error":    err.Error(),
	})
}

func (o *otelObserver) OnStorageOperation(ctx context.Context, operation string, storageType string, duration time.Duration, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("storage.type", storageType),
		attribute.Bool("success", success),
	)
	o.storageOps.Add(ctx, 1, attrs)
	o.storageLatency.Record(ctx, millis(duration), attrs)
}

// initOpenTelemetry initializes OpenTelemetry with the given configuration
func initOpenTelemetry(config Config) error {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	if config.EnableTracing {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	if config.EnableMetrics {
		opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if config.MetricReader != nil {
			opts = append(opts, sdkmetric.WithReader(config.MetricReader))
		}
		otel.SetMeterProvider(sdkmetric.NewMeterProvider(opts...))
	}

	return nil
}
