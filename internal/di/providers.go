package di

import (
	"context"
	"log/slog"

	"github.com/Kargones/logtree/internal/app"
	"github.com/Kargones/logtree/internal/config"
	"github.com/Kargones/logtree/internal/constants"
	"github.com/Kargones/logtree/internal/pkg/diag"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/proxy"
	"github.com/Kargones/logtree/internal/pkg/tracing"
)

// ProvideLogger создаёт журнал самодиагностики из секции logging.
// При nil Config используются значения по умолчанию.
func ProvideLogger(cfg *config.Config) logging.Logger {
	if cfg == nil {
		return logging.NewLogger(logging.DefaultConfig())
	}
	return logging.NewLogger(cfg.Logging.ToLogging())
}

// ProvideTraceID генерирует trace_id запуска.
func ProvideTraceID() string {
	return tracing.GenerateTraceID()
}

// ProvideMetricsCollector создаёт Collector из секции metrics.
// При ошибке создания возвращает NopCollector и логирует ошибку.
func ProvideMetricsCollector(cfg *config.Config, logger logging.Logger) metrics.Collector {
	if cfg == nil {
		return metrics.NewNopCollector()
	}

	collector, err := metrics.NewCollector(cfg.Metrics.ToMetrics(), logger)
	if err != nil {
		logger.Error("ошибка создания MetricsCollector, используется NopCollector",
			slog.String("error", err.Error()),
		)
	}
	return collector
}

// ProvideTracerProvider инициализирует OTel TracerProvider и возвращает
// shutdown function. При ошибке возвращает nop shutdown и логирует ошибку.
func ProvideTracerProvider(cfg *config.Config, logger logging.Logger) func(context.Context) error {
	if cfg == nil {
		return tracing.NewNopTracerProvider()
	}

	tracingCfg := cfg.Tracing.ToTracing()
	tracingCfg.Version = constants.Version

	shutdown, err := tracing.NewTracerProvider(tracingCfg, logger)
	if err != nil {
		logger.Error("ошибка инициализации tracing, используется nop provider",
			slog.String("error", err.Error()),
		)
		return tracing.NewNopTracerProvider()
	}
	return shutdown
}

// ProvideReporter создаёт диагностический канал дерева: сбои пишутся
// в журнал самодиагностики и учитываются в метриках.
func ProvideReporter(logger logging.Logger, collector metrics.Collector) *diag.Reporter {
	return diag.NewReporter(logger, collector, diag.DefaultWindow)
}

// ProvideProxy создаёт HTTPProxy из секции proxy. Возвращает nil,
// если proxy выключен.
func ProvideProxy(cfg *config.Config, logger logging.Logger, collector metrics.Collector) (*proxy.HTTPProxy, error) {
	if cfg == nil || !cfg.Proxy.Enabled {
		return nil, nil
	}
	return proxy.NewHTTPProxy(cfg.Proxy.ToHTTP(), logger.Component("proxy"), collector)
}

// ProvideHierarchy собирает дерево логгеров из секции tree.
func ProvideHierarchy(cfg *config.Config, reporter *diag.Reporter, collector metrics.Collector, p *proxy.HTTPProxy) (*logtree.Hierarchy, error) {
	deps := app.Deps{
		Reporter: reporter,
		Metrics:  collector,
	}
	// nil *HTTPProxy в интерфейсе logtree.Proxy не равен nil.
	if p != nil {
		deps.Proxy = p
	}
	tree := config.TreeConfig{RootLevel: "info"}
	if cfg != nil {
		tree = cfg.Tree
	}
	return app.BuildHierarchy(tree, deps)
}
