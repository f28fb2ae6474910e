package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/Kargones/logtree/internal/pkg/level"
)

// NopCollector ничего не собирает.
type NopCollector struct{}

var _ Collector = (*NopCollector)(nil)

// NewNopCollector создаёт NopCollector.
func NewNopCollector() *NopCollector {
	return &NopCollector{}
}

// RecordDispatched ничего не делает.
func (c *NopCollector) RecordDispatched(string, level.Level) {}

// RecordFailure ничего не делает.
func (c *NopCollector) RecordFailure(string) {}

// RecordDropped ничего не делает.
func (c *NopCollector) RecordDropped(string) {}

// RecordBatch ничего не делает.
func (c *NopCollector) RecordBatch(int, time.Duration, bool) {}

// RecordCommandEnd ничего не делает.
func (c *NopCollector) RecordCommandEnd(string, time.Duration, bool) {}

// Handler отвечает 404: метрики выключены.
func (c *NopCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}

// Push всегда возвращает nil.
func (c *NopCollector) Push(context.Context) error {
	return nil
}
