package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"verification-service/logging"
)

var (
	// OpenTelemetry metrics
	VerificationsTotal     metric.Int64Counter
	VerificationAttempts   metric.Int64Histogram
	StatusCheckDuration    metric.Float64Histogram
	RedirectsSelectedTotal metric.Int64Counter
	HTTPServerDuration     metric.Float64Histogram
)

// InitTracer initializes OpenTelemetry tracing
func InitTracer(serviceName, endpoint string) (*sdktrace.TracerProvider, trace.Tracer, error) {
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	tracer := tp.Tracer(serviceName)

	logging.Info("Tracing initialized", zap.String("service_name", serviceName))

	return tp, tracer, nil
}

// InitMeter initializes OpenTelemetry metrics with OTLP exporter
func InitMeter(serviceName, endpoint string) (*sdkmetric.MeterProvider, metric.Meter, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)
	meter := mp.Meter(serviceName)

	VerificationsTotal, err = meter.Int64Counter(
		"verifications_total",
		metric.WithDescription("Total number of verification sessions reaching a terminal state"),
	)
	if err != nil {
		return nil, nil, err
	}

	VerificationAttempts, err = meter.Int64Histogram(
		"verification_attempts",
		metric.WithDescription("Status-check attempts used per verification session"),
	)
	if err != nil {
		return nil, nil, err
	}

	StatusCheckDuration, err = meter.Float64Histogram(
		"status_check_duration_seconds",
		metric.WithDescription("Duration of backend transaction status checks"),
	)
	if err != nil {
		return nil, nil, err
	}

	RedirectsSelectedTotal, err = meter.Int64Counter(
		"redirects_selected_total",
		metric.WithDescription("Redirect destinations selected, by kind"),
	)
	if err != nil {
		return nil, nil, err
	}

	HTTPServerDuration, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP server request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, nil, err
	}

	logging.Info("Metrics initialized with OTLP exporter", zap.String("endpoint", endpoint))

	return mp, meter, nil
}
