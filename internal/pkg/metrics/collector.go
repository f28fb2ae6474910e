// Package metrics собирает счётчики работы дерева логгеров и отправляет
// их в Prometheus Pushgateway.
//
// NewCollector возвращает NopCollector при выключенных метриках,
// поэтому вызывающий код не проверяет конфигурацию сам.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/Kargones/logtree/internal/pkg/level"
)

// Collector — приёмник метрик logtree.
type Collector interface {
	// RecordDispatched учитывает принятую логгером запись.
	RecordDispatched(logger string, lvl level.Level)

	// RecordFailure учитывает сбой по коду apperrors
	// (SINK.WRITE_FAILED, PROCESSOR.FAILED, ...).
	RecordFailure(code string)

	// RecordDropped учитывает запись, отброшенную proxy.
	RecordDropped(reason string)

	// RecordBatch учитывает отправку пачки записей proxy.
	RecordBatch(size int, duration time.Duration, success bool)

	// RecordCommandEnd учитывает завершение команды CLI.
	RecordCommandEnd(command string, duration time.Duration, success bool)

	// Handler отдаёт метрики в текстовом формате Prometheus.
	Handler() http.Handler

	// Push отправляет метрики в Pushgateway. Ошибка отправки логируется
	// и не возвращается: метрики не должны ронять команду.
	Push(ctx context.Context) error
}
