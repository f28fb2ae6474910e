package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Kargones/logtree/internal/constants"
	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/urlutil"
)

const namespace = constants.AppName

// PrometheusCollector собирает метрики в собственный registry.
type PrometheusCollector struct {
	config   Config
	logger   logging.Logger
	registry *prometheus.Registry
	instance string

	dispatched      *prometheus.CounterVec
	failures        *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
	batchRecords    prometheus.Counter
	commandDuration *prometheus.HistogramVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector регистрирует метрики:
//   - logtree_records_dispatched_total{logger,level}
//   - logtree_failures_total{code}
//   - logtree_proxy_dropped_total{reason}
//   - logtree_proxy_batch_duration_seconds{status}
//   - logtree_proxy_records_sent_total
//   - logtree_command_duration_seconds{command,status}
func NewPrometheusCollector(config Config, logger logging.Logger) (*PrometheusCollector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	instance := config.InstanceLabel
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			logger.Warn("не удалось получить hostname для label instance", "error", err.Error())
			hostname = "unknown"
		}
		instance = hostname
	}

	c := &PrometheusCollector{
		config:   config,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		instance: instance,
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dispatched_total",
			Help:      "Records accepted by a logger and dispatched to sinks",
		}, []string{"logger", "level"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Isolated failures of processors, sinks and proxy by error code",
		}, []string{"code"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_dropped_total",
			Help:      "Records dropped by the proxy",
		}, []string{"reason"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_batch_duration_seconds",
			Help:      "Duration of proxy batch delivery including retries",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"status"}),
		batchRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_records_sent_total",
			Help:      "Records delivered by the proxy",
		}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of CLI command execution",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"command", "status"}),
	}

	for _, m := range []prometheus.Collector{
		c.dispatched, c.failures, c.dropped, c.batchDuration, c.batchRecords, c.commandDuration,
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, fmt.Errorf("ошибка регистрации метрики: %w", err)
		}
	}
	return c, nil
}

// maxLabelLength ограничивает длину значения label.
const maxLabelLength = 128

// sanitizeLabel заменяет управляющие символы на '_' и обрезает значение
// до maxLabelLength рун.
func sanitizeLabel(value string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, value)

	runes := []rune(clean)
	if len(runes) > maxLabelLength {
		return string(runes[:maxLabelLength])
	}
	return clean
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordDispatched учитывает принятую запись. Корневой логгер
// учитывается под именем "root".
func (c *PrometheusCollector) RecordDispatched(logger string, lvl level.Level) {
	if logger == "" {
		logger = "root"
	}
	c.dispatched.WithLabelValues(sanitizeLabel(logger), lvl.Name()).Inc()
}

// RecordFailure учитывает сбой.
func (c *PrometheusCollector) RecordFailure(code string) {
	c.failures.WithLabelValues(sanitizeLabel(code)).Inc()
}

// RecordDropped учитывает отброшенную запись.
func (c *PrometheusCollector) RecordDropped(reason string) {
	c.dropped.WithLabelValues(sanitizeLabel(reason)).Inc()
}

// RecordBatch учитывает отправку пачки.
func (c *PrometheusCollector) RecordBatch(size int, duration time.Duration, success bool) {
	c.batchDuration.WithLabelValues(status(success)).Observe(duration.Seconds())
	if success {
		c.batchRecords.Add(float64(size))
	}
}

// RecordCommandEnd учитывает завершение команды.
func (c *PrometheusCollector) RecordCommandEnd(command string, duration time.Duration, success bool) {
	c.commandDuration.WithLabelValues(sanitizeLabel(command), status(success)).Observe(duration.Seconds())
	c.logger.Debug("metrics: команда завершена",
		"command", command,
		"duration_ms", duration.Milliseconds(),
		"success", success,
	)
}

// Handler отдаёт метрики registry коллектора.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Push отправляет метрики в Pushgateway. Всегда возвращает nil.
func (c *PrometheusCollector) Push(ctx context.Context) error {
	if c.config.PushgatewayURL == "" {
		return nil
	}
	if ctx.Err() != nil {
		c.logger.Debug("metrics push отменён")
		return nil
	}

	pushCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	err := push.New(c.config.PushgatewayURL, c.config.JobName).
		Gatherer(c.registry).
		Grouping("instance", c.instance).
		PushContext(pushCtx)
	if err != nil {
		c.logger.Error("ошибка отправки метрик в Pushgateway",
			"error", err.Error(),
			"url", urlutil.MaskURL(c.config.PushgatewayURL),
			"job", c.config.JobName,
		)
		return nil
	}

	c.logger.Info("метрики отправлены в Pushgateway",
		"url", urlutil.MaskURL(c.config.PushgatewayURL),
		"job", c.config.JobName,
		"instance", c.instance,
	)
	return nil
}

// Registry возвращает registry коллектора.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}
