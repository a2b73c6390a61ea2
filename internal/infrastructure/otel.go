package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"napsidx/internal/config"
)

const (
	ServiceVersion = "1.0.0"
	MeterName      = "napsidx"
)

// OTelProviders holds the OpenTelemetry providers and the Prometheus
// registry backing the metric exporter.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics. Spans go to traceOut when the
// stdout exporter is selected; metrics are always collected into a
// dedicated Prometheus registry.
func InitializeOTel(cfg config.TelemetryConfig, traceOut io.Writer, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if err := initializeTracing(ctx, cfg, traceOut, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(ctx, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func initializeTracing(ctx context.Context, cfg config.TelemetryConfig, out io.Writer, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.TraceExporter {
	case "stdout":
		if out == nil {
			out = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
		otel.SetTracerProvider(tp)
	case "none", "":
		providers.Tracer = otel.Tracer(MeterName)
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	providers.Logger.DebugContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter))
	return nil
}

func initializeMetrics(ctx context.Context, res *resource.Resource, providers *OTelProviders) error {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.Registry = registry
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))
	otel.SetMeterProvider(mp)

	providers.Logger.DebugContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// WriteMetricsFile dumps the current registry in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (p *OTelProviders) WriteMetricsFile(path string) error {
	if p.Registry == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, p.Registry)
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

// PipelineMetrics holds the instruments recorded by the pipeline and the
// query API. A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	FilesScanned          metric.Int64Counter
	FilesSkipped          metric.Int64Counter
	IndexEntries          metric.Int64Gauge
	UndeterminedFrequency metric.Int64Counter
	RowsWritten           metric.Int64Counter
	StepDuration          metric.Float64Histogram
	HTTPRequestsTotal     metric.Int64Counter
	HTTPRequestDuration   metric.Float64Histogram
}

// CreatePipelineMetrics registers the napsidx instruments on meter.
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var (
		m   PipelineMetrics
		err error
	)

	if m.FilesScanned, err = meter.Int64Counter(
		"napsidx_files_scanned",
		metric.WithDescription("Workbooks opened while indexing or extracting"),
	); err != nil {
		return nil, err
	}

	if m.FilesSkipped, err = meter.Int64Counter(
		"napsidx_files_skipped",
		metric.WithDescription("Workbooks skipped because of a structural problem"),
	); err != nil {
		return nil, err
	}

	if m.IndexEntries, err = meter.Int64Gauge(
		"napsidx_index_entries",
		metric.WithDescription("Rows in the master index after the last write"),
	); err != nil {
		return nil, err
	}

	if m.UndeterminedFrequency, err = meter.Int64Counter(
		"napsidx_undetermined_frequency",
		metric.WithDescription("Index rows whose sampling frequency could not be inferred"),
	); err != nil {
		return nil, err
	}

	if m.RowsWritten, err = meter.Int64Counter(
		"napsidx_rows_written",
		metric.WithDescription("Data rows written to processed CSV files"),
	); err != nil {
		return nil, err
	}

	if m.StepDuration, err = meter.Float64Histogram(
		"napsidx_step_duration",
		metric.WithDescription("Pipeline step duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"napsidx_http_requests",
		metric.WithDescription("Query API requests"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"napsidx_http_request_duration",
		metric.WithDescription("Query API request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// FileScanned counts one opened workbook.
func (m *PipelineMetrics) FileScanned(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.FilesScanned.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// FileSkipped counts one skipped workbook.
func (m *PipelineMetrics) FileSkipped(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.FilesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// IndexSize records the number of rows in the master index.
func (m *PipelineMetrics) IndexSize(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.IndexEntries.Record(ctx, int64(n))
}

// Undetermined counts index rows carrying the sentinel frequency.
func (m *PipelineMetrics) Undetermined(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.UndeterminedFrequency.Add(ctx, int64(n))
}

// Rows counts rows written to an output of the given kind.
func (m *PipelineMetrics) Rows(ctx context.Context, kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsWritten.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

// Step records the duration and outcome of a pipeline step.
func (m *PipelineMetrics) Step(ctx context.Context, step string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.StepDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", status),
	))
}

// HTTPRequest records one served API request.
func (m *PipelineMetrics) HTTPRequest(ctx context.Context, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), attrs)
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
