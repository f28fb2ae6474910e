// Package diag — диагностический канал дерева логгеров. Сбои
// процессоров, sinks и proxy пишутся в операционный журнал logtree
// (internal/pkg/logging) и учитываются в метриках, но никогда не
// возвращаются в само дерево.
package diag

import (
	"time"

	"github.com/Kargones/logtree/internal/pkg/apperrors"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/ratelimit"
)

// DefaultWindow — окно подавления повторных сообщений по умолчанию.
const DefaultWindow = 10 * time.Second

// codeUnknown используется для ошибок без кода apperrors.
const codeUnknown = "UNKNOWN"

// Reporter реализует logtree.Reporter.
//
// Каждый сбой учитывается в метриках. В журнал пишется первый сбой
// пары (логгер, код) за окно, остальные подавляются и сообщаются
// счётчиком suppressed при следующей записи.
type Reporter struct {
	logger  logging.Logger
	metrics metrics.Collector
	limiter *ratelimit.Limiter
}

var _ logtree.Reporter = (*Reporter)(nil)

// NewReporter создаёт Reporter. nil logger и nil collector заменяются
// на no-op реализации.
func NewReporter(logger logging.Logger, collector metrics.Collector, window time.Duration) *Reporter {
	logger = logging.OrNop(logger)
	if collector == nil {
		collector = metrics.NewNopCollector()
	}
	return &Reporter{
		logger:  logger,
		metrics: collector,
		limiter: ratelimit.New(window),
	}
}

// Report реализует logtree.Reporter.
func (r *Reporter) Report(loggerName string, err error) {
	if err == nil {
		return
	}
	code := apperrors.CodeOf(err)
	if code == "" {
		code = codeUnknown
	}
	r.metrics.RecordFailure(code)

	ok, suppressed := r.limiter.Allow(loggerName + "|" + code)
	if !ok {
		return
	}

	args := []any{
		"logger", loggerName,
		"code", code,
		"error", err.Error(),
	}
	if suppressed > 0 {
		args = append(args, "suppressed", suppressed)
	}

	switch code {
	case apperrors.ErrProxyDropped, apperrors.ErrLevelUnknown:
		r.logger.Warn("logtree: сбой диспетчеризации", args...)
	default:
		r.logger.Error("logtree: сбой диспетчеризации", args...)
	}
}
