package processors

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/record"
	"github.com/Kargones/logtree/internal/pkg/sink/sinktest"
	"github.com/Kargones/logtree/internal/pkg/tracing"
)

var zeroTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// logOne пишет одну запись через логгер с процессорами procs и возвращает её.
func logOne(t *testing.T, ctx context.Context, procs ...logtree.Processor) *record.Record {
	t.Helper()
	l := logtree.New(logtree.NewContext(logtree.WithDefaultProcessors(procs...)), "svc.api", level.Unset)
	rec := sinktest.NewRecorder(level.Unset)
	l.AddSink(rec)
	l.LogContext(ctx, level.Info, "request")
	require.Equal(t, 1, rec.Len())
	return rec.Records()[0]
}

func TestStatic(t *testing.T) {
	fields := map[string]any{"env": "prod", "region": "eu"}
	p := Static(fields)
	fields["env"] = "mutated"

	l := logtree.New(nil, "x", level.Unset)
	rec := record.New("x", level.Info, zeroTime, "m", nil)
	rec.Set("region", "us")
	require.NoError(t, p.Process(l, rec))

	assert.Equal(t, "prod", rec.Fields["env"], "поля копируются при создании")
	assert.Equal(t, "us", rec.Fields["region"], "заданные поля не перезаписываются")
}

func TestHostnameAndPID(t *testing.T) {
	rec := logOne(t, context.Background(), Hostname(), PID())

	host, _ := os.Hostname() //nolint:errcheck // сравнение с тем же источником
	if host == "" {
		host = "unknown"
	}
	assert.Equal(t, host, rec.Fields[FieldHostname])
	assert.Equal(t, os.Getpid(), rec.Fields[FieldPID])
}

func TestRecordID(t *testing.T) {
	a := logOne(t, context.Background(), RecordID())
	b := logOne(t, context.Background(), RecordID())

	idA, ok := a.Fields[FieldRecordID].(string)
	require.True(t, ok)
	parsed, err := uuid.Parse(idA)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.NotEqual(t, idA, b.Fields[FieldRecordID])
}

func TestRecordID_KeepsExisting(t *testing.T) {
	l := logtree.New(nil, "x", level.Unset)
	rec := record.New("x", level.Info, zeroTime, "m", nil)
	rec.Set(FieldRecordID, "from-upstream")
	require.NoError(t, RecordID().Process(l, rec))
	assert.Equal(t, "from-upstream", rec.Fields[FieldRecordID])
}

func TestTraceContext(t *testing.T) {
	t.Run("без трейса", func(t *testing.T) {
		rec := logOne(t, context.Background(), TraceContext())
		assert.NotContains(t, rec.Fields, FieldTraceID)
	})

	t.Run("внутренний trace id", func(t *testing.T) {
		ctx := tracing.WithTraceID(context.Background(), "0123456789abcdef0123456789abcdef")
		rec := logOne(t, ctx, TraceContext())
		assert.Equal(t, "0123456789abcdef0123456789abcdef", rec.Fields[FieldTraceID])
		assert.NotContains(t, rec.Fields, FieldSpanID)
	})

	t.Run("otel span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		rec := logOne(t, ctx, TraceContext())
		assert.Equal(t, span.SpanContext().TraceID().String(), rec.Fields[FieldTraceID])
		assert.Equal(t, span.SpanContext().SpanID().String(), rec.Fields[FieldSpanID])
	})
}

func TestRedact(t *testing.T) {
	fields := map[string]any{
		"user":     "alice",
		"Password": "hunter2",
		"request": map[string]any{
			"token": "abc",
			"path":  "/login",
		},
	}
	// Redact — процессор логгера: выполняется после процессоров Context.
	l := logtree.New(nil, "auth", level.Unset)
	l.AddProcessor(logtree.ProcessorFunc(func(_ *logtree.Logger, rec *record.Record) error {
		for k, v := range fields {
			rec.Set(k, v)
		}
		return nil
	}))
	l.AddProcessor(Redact("password", "TOKEN"))
	sink := sinktest.NewRecorder(level.Unset)
	l.AddSink(sink)

	l.Info("login")

	got := sink.Records()[0].Fields
	assert.Equal(t, "alice", got["user"])
	assert.Equal(t, Redacted, got["Password"])
	nested, ok := got["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Redacted, nested["token"])
	assert.Equal(t, "/login", nested["path"])
}

func TestRedact_SharedNestedMapUntouched(t *testing.T) {
	request := map[string]any{"token": "abc", "path": "/login"}
	l := logtree.New(nil, "auth", level.Unset)
	l.AddProcessor(Static(map[string]any{"request": request}))
	l.AddProcessor(Redact("token"))
	sink := sinktest.NewRecorder(level.Unset)
	l.AddSink(sink)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Info("login")
		}()
	}
	wg.Wait()

	assert.Equal(t, "abc", request["token"], "общая map процессора Static не меняется")
	require.Equal(t, writers, sink.Len())
	for _, rec := range sink.Records() {
		nested := rec.Fields["request"].(map[string]any)
		assert.Equal(t, Redacted, nested["token"])
		assert.Equal(t, "/login", nested["path"])
	}
}

func TestRedact_NoFields(t *testing.T) {
	rec := record.New("x", level.Info, zeroTime, "m", nil)
	assert.NoError(t, Redact("password").Process(logtree.New(nil, "x", level.Unset), rec))
	assert.Nil(t, rec.Fields)
}

func TestLoggerName(t *testing.T) {
	h := logtree.NewHierarchy(logtree.NewContext(logtree.WithDefaultProcessors(LoggerName("source"))), level.Unset)
	sink := sinktest.NewRecorder(level.Unset)
	h.Root().AddSink(sink)

	h.Logger("a.b").Info("x")
	assert.Equal(t, "a.b", sink.Records()[0].Fields["source"], "процессор Context получает логгер вызова")
}
