package tracing

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/logtree/internal/pkg/logging"
)

// TracerName — имя tracer'а для спанов logtree.
const TracerName = "github.com/Kargones/logtree"

// NewNopTracerProvider возвращает shutdown-функцию, которая ничего не делает.
func NewNopTracerProvider() func(context.Context) error {
	return func(context.Context) error { return nil }
}

// NewTracerProvider настраивает OTel TracerProvider с OTLP HTTP экспортом
// и регистрирует его глобально. Возвращает shutdown-функцию, которая
// дожидается отправки накопленных спанов.
// При выключенном трейсинге возвращается nop shutdown.
func NewTracerProvider(cfg Config, logger logging.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		logger.Debug("трейсинг выключен")
		return NewNopTracerProvider(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// NewSchemaless: resource.Default() и semconv v1.26.0 имеют разные Schema URL.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	// WithEndpoint принимает только host:port.
	host := cfg.Endpoint
	if u, parseErr := url.Parse(cfg.Endpoint); parseErr == nil && u.Host != "" {
		host = u.Host
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithTimeout(cfg.Timeout),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("OpenTelemetry трейсинг инициализирован",
		"endpoint", cfg.Endpoint,
		"service_name", cfg.ServiceName,
		"sampling_rate", cfg.SamplingRate,
	)

	return tp.Shutdown, nil
}

// ContextWithOTelTraceID привязывает к ctx remote span context с trace ID
// traceIDHex, чтобы спаны команды продолжали внутренний трейс.
// Невалидный hex оставляет ctx без изменений.
func ContextWithOTelTraceID(ctx context.Context, traceIDHex string) context.Context {
	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return ctx
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

// StartCommand открывает корневой спан команды CLI. Внутренний trace ID
// id (пустой генерируется) кладётся в ctx и становится trace ID спана.
func StartCommand(ctx context.Context, command, id string) (context.Context, trace.Span) {
	if id == "" {
		id = GenerateTraceID()
	}
	ctx = WithTraceID(ctx, id)
	ctx = ContextWithOTelTraceID(ctx, id)
	return otel.Tracer(TracerName).Start(ctx, "logtree."+command,
		trace.WithAttributes(attribute.String("logtree.command", command)),
	)
}

// newSampler: ParentBased с TraceIDRatioBased и для корня, и для
// sampled remote parent. ContextWithOTelTraceID всегда ставит
// FlagsSampled, поэтому стандартный AlwaysSample для remote parent
// игнорировал бы rate.
func newSampler(rate float64) sdktrace.Sampler {
	return sdktrace.ParentBased(
		sdktrace.TraceIDRatioBased(rate),
		sdktrace.WithRemoteParentSampled(sdktrace.TraceIDRatioBased(rate)),
	)
}
