package metrics

import (
	"fmt"

	"github.com/Kargones/logtree/internal/pkg/logging"
)

// NewCollector создаёт Collector из config. Результат всегда пригоден
// к использованию: при выключенных метриках и при ошибке конфигурации
// это NopCollector, ошибка возвращается вторым значением.
func NewCollector(config Config, logger logging.Logger) (Collector, error) {
	if !config.Enabled {
		return NewNopCollector(), nil
	}
	logger = logging.OrNop(logger).Component("metrics")
	c, err := NewPrometheusCollector(config, logger)
	if err != nil {
		return NewNopCollector(), fmt.Errorf("metrics: %w", err)
	}
	logger.Debug("метрики включены", "pushgateway", config.PushgatewayURL, "job", config.JobName)
	return c, nil
}
