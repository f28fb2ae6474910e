package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/logtree/internal/pkg/apperrors"
	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/record"
	"github.com/Kargones/logtree/internal/pkg/sink/sinktest"
)

// dropRecorder считает отброшенные записи по причинам.
type dropRecorder struct {
	*metrics.NopCollector
	mu      sync.Mutex
	drops   map[string]int
	batches int
}

func newDropRecorder() *dropRecorder {
	return &dropRecorder{NopCollector: metrics.NewNopCollector(), drops: make(map[string]int)}
}

func (d *dropRecorder) RecordDropped(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drops[reason]++
}

func (d *dropRecorder) RecordBatch(int, time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches++
}

func (d *dropRecorder) dropped(reason string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drops[reason]
}

// collector — тестовый приёмник, запоминающий тела запросов.
type collector struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	status   []int
	calls    atomic.Int32
}

func (c *collector) handler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(c.calls.Add(1)) - 1
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		c.mu.Lock()
		c.requests = append(c.requests, r)
		c.bodies = append(c.bodies, body)
		status := http.StatusOK
		if n < len(c.status) {
			status = c.status[n]
		}
		c.mu.Unlock()

		w.WriteHeader(status)
	}
}

func (c *collector) snapshot() ([]*http.Request, [][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*http.Request(nil), c.requests...), append([][]byte(nil), c.bodies...)
}

func newTestProxy(t *testing.T, config HTTPConfig, m metrics.Collector) *HTTPProxy {
	t.Helper()
	p, err := NewHTTPProxy(config, nil, m)
	require.NoError(t, err)
	p.backoff = time.Millisecond
	p.maxBackoff = 4 * time.Millisecond
	return p
}

func testRecord(name, msg string) *record.Record {
	return record.New(name, level.Info, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), msg, nil)
}

func TestHTTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		config HTTPConfig
		want   error
	}{
		{"ok", HTTPConfig{URL: "http://collector:8080/ingest"}, nil},
		{"zstd", HTTPConfig{URL: "https://c/ingest", Compression: CompressionZstd}, nil},
		{"empty url", HTTPConfig{}, ErrURLRequired},
		{"no scheme", HTTPConfig{URL: "collector:8080"}, ErrURLInvalid},
		{"unknown compression", HTTPConfig{URL: "http://c", Compression: "gzip"}, ErrUnknownCompression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPProxy_BatchOnClose(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	p := newTestProxy(t, HTTPConfig{
		URL:           srv.URL,
		Token:         "secret",
		Headers:       map[string]string{"X-Source": "svc"},
		FlushInterval: time.Hour,
	}, nil)

	require.NoError(t, p.SendRecord(testRecord("app", "one")))
	require.NoError(t, p.SendRecord(testRecord("app.db", "two")))
	require.NoError(t, p.Close(context.Background()))

	reqs, bodies := c.snapshot()
	require.Len(t, reqs, 1, "одна пачка при закрытии")
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "svc", reqs[0].Header.Get("X-Source"))

	recs, err := record.ParseJSON(bodies[0])
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "one", recs[0].Message)
	assert.Equal(t, "app.db", recs[1].Name)
}

func TestHTTPProxy_BatchSize(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	p := newTestProxy(t, HTTPConfig{URL: srv.URL, BatchSize: 2, FlushInterval: time.Hour}, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.SendRecord(testRecord("app", "m")))
	}
	require.NoError(t, p.Close(context.Background()))

	_, bodies := c.snapshot()
	require.Len(t, bodies, 3)
	var total int
	for _, b := range bodies {
		var arr []json.RawMessage
		require.NoError(t, json.Unmarshal(b, &arr))
		assert.LessOrEqual(t, len(arr), 2)
		total += len(arr)
	}
	assert.Equal(t, 5, total)
}

func TestHTTPProxy_FlushInterval(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	p := newTestProxy(t, HTTPConfig{URL: srv.URL, FlushInterval: 10 * time.Millisecond}, nil)
	defer p.Close(context.Background()) //nolint:errcheck // test cleanup

	require.NoError(t, p.SendRecord(testRecord("app", "tick")))
	assert.Eventually(t, func() bool { return c.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHTTPProxy_Zstd(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	p := newTestProxy(t, HTTPConfig{URL: srv.URL, Compression: CompressionZstd, FlushInterval: time.Hour}, nil)
	require.NoError(t, p.SendRecord(testRecord("app", "packed")))
	require.NoError(t, p.Close(context.Background()))

	reqs, bodies := c.snapshot()
	require.Len(t, reqs, 1)
	assert.Equal(t, "zstd", reqs[0].Header.Get("Content-Encoding"))

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	raw, err := dec.DecodeAll(bodies[0], nil)
	require.NoError(t, err)

	recs, err := record.ParseJSON(raw)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "packed", recs[0].Message)
}

func TestHTTPProxy_RetryOnServerError(t *testing.T) {
	c := &collector{status: []int{http.StatusBadGateway, http.StatusServiceUnavailable}}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	m := newDropRecorder()
	p := newTestProxy(t, HTTPConfig{URL: srv.URL, MaxRetries: 3, FlushInterval: time.Hour}, m)
	require.NoError(t, p.SendRecord(testRecord("app", "retry")))
	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, int32(3), c.calls.Load(), "две неудачи и успех")
	assert.Zero(t, m.dropped(dropSendFailed))
}

func TestHTTPProxy_NoRetryOnClientError(t *testing.T) {
	c := &collector{status: []int{http.StatusUnauthorized}}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	m := newDropRecorder()
	p := newTestProxy(t, HTTPConfig{URL: srv.URL, MaxRetries: 3, FlushInterval: time.Hour}, m)
	require.NoError(t, p.SendRecord(testRecord("app", "a")))
	require.NoError(t, p.SendRecord(testRecord("app", "b")))
	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, int32(1), c.calls.Load())
	assert.Equal(t, 2, m.dropped(dropSendFailed))
}

func TestHTTPProxy_GivesUpAfterRetries(t *testing.T) {
	c := &collector{status: []int{500, 500, 500}}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	m := newDropRecorder()
	p := newTestProxy(t, HTTPConfig{URL: srv.URL, MaxRetries: 2, FlushInterval: time.Hour}, m)
	require.NoError(t, p.SendRecord(testRecord("app", "x")))
	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, int32(3), c.calls.Load())
	assert.Equal(t, 1, m.dropped(dropSendFailed))
}

func TestHTTPProxy_QueueFull(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(block)

	m := newDropRecorder()
	p := newTestProxy(t, HTTPConfig{URL: srv.URL, QueueSize: 1, BatchSize: 1, FlushInterval: time.Hour}, m)

	var dropped error
	for i := 0; i < 10 && dropped == nil; i++ {
		dropped = p.SendRecord(testRecord("app", "flood"))
	}
	require.Error(t, dropped)
	assert.ErrorIs(t, dropped, ErrQueueFull)
	assert.Equal(t, apperrors.ErrProxyDropped, apperrors.CodeOf(dropped))
	assert.Equal(t, 1, m.dropped(dropQueueFull))
}

func TestHTTPProxy_SendAfterClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newDropRecorder()
	p := newTestProxy(t, HTTPConfig{URL: srv.URL}, m)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()), "повторный Close безопасен")

	err := p.SendRecord(testRecord("app", "late"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, m.dropped(dropClosed))
}

func TestHTTPProxy_CloseTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := newTestProxy(t, HTTPConfig{URL: srv.URL, MaxRetries: 0, FlushInterval: time.Hour}, nil)
	require.NoError(t, p.SendRecord(testRecord("app", "stuck")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
}

func TestHTTPProxy_WithLogger(t *testing.T) {
	var got []string
	ctx := logtree.NewContext(logtree.WithReporter(reporterFunc(func(_ string, err error) {
		got = append(got, apperrors.CodeOf(err))
	})))
	c := &collector{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	p := newTestProxy(t, HTTPConfig{URL: srv.URL, FlushInterval: time.Hour}, nil)
	ctx.SetProxy(p)

	l := logtree.New(ctx, "svc", level.Info)
	local := sinktest.NewRecorder(level.Unset)
	l.AddSink(local)

	l.Info("forwarded", "k", 1)
	l.Debug("filtered")
	require.NoError(t, p.Close(context.Background()))

	l.Warn("after close")
	assert.Equal(t, []string{apperrors.ErrProxyDropped}, got)
	assert.Equal(t, []string{"forwarded", "after close"}, local.Messages(), "локальная доставка не зависит от proxy")

	_, bodies := c.snapshot()
	require.Len(t, bodies, 1)
	recs, err := record.ParseJSON(bodies[0])
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "forwarded", recs[0].Message)
}

type reporterFunc func(logger string, err error)

func (f reporterFunc) Report(logger string, err error) { f(logger, err) }

func TestChannelProxy(t *testing.T) {
	m := newDropRecorder()
	p := NewChannelProxy(2, m)

	require.NoError(t, p.SendRecord(testRecord("a", "1")))
	require.NoError(t, p.SendRecord(testRecord("a.b", "2")))
	err := p.SendRecord(testRecord("a", "3"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, apperrors.ErrProxyDropped, apperrors.CodeOf(err))

	target := logtree.NewHierarchy(nil, level.Critical)
	sink := sinktest.NewRecorder(level.Unset)
	target.Root().AddSink(sink)
	own := sinktest.NewRecorder(level.Unset)
	target.Logger("a.b").AddSink(own)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.SendRecord(testRecord("a", "4")), ErrClosed)

	require.NoError(t, p.Forward(context.Background(), target))
	assert.Equal(t, []string{"1", "2"}, sink.Messages(), "уровень корня target не проверяется")
	assert.Equal(t, []string{"2"}, own.Messages())
	assert.Equal(t, []string{"", "a", "a.b"}, target.Names(), "Forward не создаёт логгеров")
	assert.Equal(t, 1, m.dropped(dropQueueFull))
	assert.Equal(t, 1, m.dropped(dropClosed))
}

func TestChannelProxy_ForwardCancel(t *testing.T) {
	p := NewChannelProxy(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Forward(ctx, logtree.NewHierarchy(nil, level.Unset)), context.Canceled)
}

func newTestReceiver(t *testing.T, config ReceiverConfig) (*Receiver, *logtree.Hierarchy, *sinktest.Recorder) {
	t.Helper()
	h := logtree.NewHierarchy(nil, level.Critical)
	sink := sinktest.NewRecorder(level.Unset)
	h.Root().AddSink(sink)
	r, err := NewReceiver(h, config, nil)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, h, sink
}

func TestReceiver_ServeHTTP(t *testing.T) {
	r, h, sink := newTestReceiver(t, ReceiverConfig{})
	child := sinktest.NewRecorder(level.Error)
	h.Logger("remote.api").AddSink(child)

	body := `[
		{"name":"remote.api","level":20,"timestamp":"2026-03-01T12:00:00Z","message":"ok"},
		{"name":"remote.api","level":"error","timestamp":1772366400123,"message":"boom"},
		{"name":"remote","level":20,"message":"no timestamp"}
	]`
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res ReceiveResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Rejected)
	assert.Len(t, res.Errors, 1)

	assert.Equal(t, []string{"ok", "boom"}, sink.Messages())
	assert.Equal(t, []string{"boom"}, child.Messages(), "порог sink действует")
}

func TestReceiver_Errors(t *testing.T) {
	r, _, sink := newTestReceiver(t, ReceiverConfig{Token: "t0k", MaxBodySize: 64})

	tests := []struct {
		name   string
		method string
		auth   string
		body   string
		want   int
	}{
		{"method", http.MethodGet, "Bearer t0k", "", http.StatusMethodNotAllowed},
		{"no token", http.MethodPost, "", `{}`, http.StatusUnauthorized},
		{"wrong token", http.MethodPost, "Bearer nope", `{}`, http.StatusUnauthorized},
		{"invalid json", http.MethodPost, "Bearer t0k", `{"name":`, http.StatusBadRequest},
		{"scalar", http.MethodPost, "Bearer t0k", `42`, http.StatusBadRequest},
		{"too large", http.MethodPost, "Bearer t0k", `{"message":"` + strings.Repeat("x", 100) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/ingest", strings.NewReader(tt.body))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	assert.Zero(t, sink.Len())
}

func TestReceiver_Zstd(t *testing.T) {
	r, _, sink := newTestReceiver(t, ReceiverConfig{})

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	packed := enc.EncodeAll([]byte(`{"name":"x","level":30,"timestamp":"2026-03-01T12:00:00Z","message":"zipped"}`), nil)
	require.NoError(t, enc.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(packed))
	req.Header.Set("Content-Encoding", "zstd")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"zipped"}, sink.Messages())
}

func TestProxyReceiverRoundTrip(t *testing.T) {
	recv, h, sink := newTestReceiver(t, ReceiverConfig{Token: "s3cr3t"})
	srv := httptest.NewServer(recv)
	defer srv.Close()

	p := newTestProxy(t, HTTPConfig{
		URL:           srv.URL,
		Token:         "s3cr3t",
		Compression:   CompressionZstd,
		FlushInterval: time.Hour,
	}, nil)

	src := logtree.NewHierarchy(logtree.NewContext(logtree.WithProxy(p)), level.Info)
	src.Logger("billing.invoice").AddProcessor(logtree.ProcessorFunc(func(_ *logtree.Logger, rec *record.Record) error {
		rec.Set("invoice", "INV-7")
		return nil
	}))
	src.Logger("billing.invoice").Warn("overdue", 3)
	src.Logger("billing").Debug("dropped at source")
	require.NoError(t, p.Close(context.Background()))

	recs := sink.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "billing.invoice", recs[0].Name)
	assert.Equal(t, level.Warn, recs[0].Level)
	assert.Equal(t, "overdue", recs[0].Message)
	assert.Equal(t, "INV-7", recs[0].Fields["invoice"])
	assert.Equal(t, []any{float64(3)}, recs[0].Args)

	_, ok := h.Lookup("billing.invoice")
	assert.False(t, ok, "имена отправителя не регистрируются в принимающей иерархии")
}

func TestReceiver_RemoteNamesNotRegistered(t *testing.T) {
	r, h, sink := newTestReceiver(t, ReceiverConfig{})
	billing := sinktest.NewRecorder(level.Unset)
	h.Logger("billing").AddSink(billing)

	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < 5000; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"name":"x%d.y%d","level":20,"timestamp":1772366400000,"message":"m"}`, i, i)
	}
	b.WriteString(`,{"name":"billing.invoice.pdf","level":20,"timestamp":1772366400000,"message":"nested"}]`)

	res, err := r.Ingest([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 5001, res.Accepted)

	assert.Equal(t, []string{"", "billing"}, h.Names())
	assert.Equal(t, 5001, sink.Len())
	assert.Equal(t, []string{"nested"}, billing.Messages(), "запись идёт через ближайшего существующего предка")
}
