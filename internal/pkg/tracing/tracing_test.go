package tracing

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/logtree/internal/pkg/logging"
)

// Тесты модифицируют глобальный TracerProvider: без t.Parallel().

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Enabled:      true,
		Endpoint:     "http://collector:4318",
		ServiceName:  "logtree",
		Timeout:      time.Second,
		SamplingRate: 0.5,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"валидная", func(*Config) {}, nil},
		{"выключен", func(c *Config) { *c = Config{} }, nil},
		{"нет endpoint", func(c *Config) { c.Endpoint = "" }, ErrTracingEndpointRequired},
		{"endpoint без host", func(c *Config) { c.Endpoint = "collector:4318" }, ErrTracingEndpointInvalidFormat},
		{"нет service name", func(c *Config) { c.ServiceName = "" }, ErrTracingServiceNameRequired},
		{"нулевой timeout", func(c *Config) { c.Timeout = 0 }, ErrTracingTimeoutInvalid},
		{"rate > 1", func(c *Config) { c.SamplingRate = 1.5 }, ErrTracingSamplingRateInvalid},
		{"rate < 0", func(c *Config) { c.SamplingRate = -0.1 }, ErrTracingSamplingRateInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "logtree", cfg.ServiceName)
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	cfg.Endpoint = "http://localhost:4318"
	assert.NoError(t, cfg.Validate(), "значения по умолчанию валидны и при включении")
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	shutdown, err := NewTracerProvider(Config{}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NoError(t, shutdown(context.Background()), "повторный shutdown безопасен")
}

func TestNewTracerProvider_Invalid(t *testing.T) {
	shutdown, err := NewTracerProvider(Config{Enabled: true, ServiceName: "x", Timeout: time.Second}, logging.NewNopLogger())
	assert.ErrorIs(t, err, ErrTracingEndpointRequired)
	assert.Nil(t, shutdown)
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "http://127.0.0.1:1"
	cfg.Insecure = true
	cfg.Timeout = 100 * time.Millisecond

	shutdown, err := NewTracerProvider(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "provider зарегистрирован глобально")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx) //nolint:errcheck // экспорт в недоступный коллектор может вернуть ошибку
}

func TestTraceIDContext(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
	assert.Empty(t, TraceIDFromContext(nil)) //nolint:staticcheck // проверка nil context

	ctx := WithTraceID(context.Background(), "abc")
	assert.Equal(t, "abc", TraceIDFromContext(ctx))
	assert.Equal(t, "def", TraceIDFromContext(WithTraceID(ctx, "def")))
}

func TestIDsFromContext(t *testing.T) {
	_, _, ok := IDsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithTraceID(context.Background(), "internal-id")
	traceID, spanID, ok := IDsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "internal-id", traceID)
	assert.Empty(t, spanID)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	traceID, spanID, ok = IDsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID, "OTel span context важнее внутреннего ID")
	assert.Equal(t, span.SpanContext().SpanID().String(), spanID)
}

func TestGenerateTraceID(t *testing.T) {
	seen := make(map[string]struct{})
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := GenerateTraceID()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 64)

	for id := range seen {
		assert.Len(t, id, 32)
		_, err := hex.DecodeString(id)
		assert.NoError(t, err)
		_, err = trace.TraceIDFromHex(id)
		assert.NoError(t, err, "совместим с W3C trace id")
	}
}

func TestFallbackTraceID(t *testing.T) {
	a, b := fallbackTraceID(), fallbackTraceID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestContextWithOTelTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ContextWithOTelTraceID(ctx, "not-hex"))

	id := GenerateTraceID()
	sc := trace.SpanContextFromContext(ContextWithOTelTraceID(ctx, id))
	assert.True(t, sc.IsRemote())
	assert.True(t, sc.IsSampled())
	assert.Equal(t, id, sc.TraceID().String())
}

func TestStartCommand(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	ctx, span := StartCommand(context.Background(), "emit", "")
	span.End()

	id := GenerateTraceID()
	_, span = StartCommand(context.Background(), "serve", id)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "logtree.emit", spans[0].Name)
	assert.Equal(t, TraceIDFromContext(ctx), spans[0].SpanContext.TraceID().String(),
		"спан продолжает внутренний trace ID")
	assert.Equal(t, id, spans[1].SpanContext.TraceID().String())
}

func TestNewSampler(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(newSampler(0)))
	ctx := ContextWithOTelTraceID(context.Background(), GenerateTraceID())
	_, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled(), "rate=0 действует и для sampled remote parent")
}
