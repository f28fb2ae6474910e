package diag

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/logtree/internal/pkg/apperrors"
	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/sink/sinktest"
)

type failureCounter struct {
	*metrics.NopCollector
	mu    sync.Mutex
	codes map[string]int
}

func newFailureCounter() *failureCounter {
	return &failureCounter{NopCollector: metrics.NewNopCollector(), codes: make(map[string]int)}
}

func (f *failureCounter) RecordFailure(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code]++
}

func TestReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(logging.Config{Level: "debug"}, &buf)
	counter := newFailureCounter()
	r := NewReporter(logger, counter, time.Hour)

	sinkErr := apperrors.NewAppError(apperrors.ErrSinkWrite, "ошибка записи в sink", errors.New("disk full"))
	r.Report("app.db", sinkErr)
	r.Report("app.db", sinkErr)
	r.Report("app.db", apperrors.NewAppError(apperrors.ErrProxyDropped, "очередь заполнена", nil))
	r.Report("app", errors.New("plain"))
	r.Report("app", nil)

	assert.Equal(t, map[string]int{
		apperrors.ErrSinkWrite:    2,
		apperrors.ErrProxyDropped: 1,
		codeUnknown:               1,
	}, counter.codes, "метрики учитывают каждый сбой")

	out := buf.String()
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("code=SINK.WRITE_FAILED")), "повтор подавлен")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "logger=app.db")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "code=UNKNOWN")
}

func TestReporter_Defaults(t *testing.T) {
	r := NewReporter(nil, nil, 0)
	assert.NotPanics(t, func() { r.Report("x", errors.New("y")) })
}

func TestReporter_WiredIntoTree(t *testing.T) {
	var buf bytes.Buffer
	counter := newFailureCounter()
	r := NewReporter(logging.NewLoggerWithWriter(logging.Config{}, &buf), counter, DefaultWindow)

	h := logtree.NewHierarchy(logtree.NewContext(logtree.WithReporter(r)), level.Unset)
	h.Root().AddSink(&sinktest.Recorder{Err: errors.New("connection reset")})
	ok := sinktest.NewRecorder(level.Unset)
	h.Root().AddSink(ok)

	h.Logger("svc").Info("hello")

	require.Equal(t, 1, ok.Len())
	assert.Equal(t, 1, counter.codes[apperrors.ErrSinkWrite])
	assert.Contains(t, buf.String(), "logger=svc")
	assert.Contains(t, buf.String(), "connection reset")
}
