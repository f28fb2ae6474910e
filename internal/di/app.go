package di

import (
	"context"
	"errors"
	"time"

	"github.com/Kargones/logtree/internal/config"
	"github.com/Kargones/logtree/internal/pkg/diag"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/proxy"
)

// App содержит инициализированные зависимости приложения.
// Создаётся через Wire DI в InitializeApp().
//
// При добавлении новых зависимостей:
// 1. Добавить поле в App struct
// 2. Создать провайдер в providers.go
// 3. Добавить провайдер в ProviderSet в wire.go
// 4. Перегенерировать wire_gen.go: go generate ./internal/di/...
type App struct {
	// Config содержит конфигурацию приложения.
	Config *config.Config

	// Logger — журнал самодиагностики logtree (не дерево логгеров).
	Logger logging.Logger

	// TraceID — идентификатор запуска для корреляции журнала.
	TraceID string

	// MetricsCollector собирает метрики дерева и отправляет их в Pushgateway.
	// Если метрики отключены — NopCollector.
	MetricsCollector metrics.Collector

	// TracerShutdown завершает OTel TracerProvider.
	// Если трейсинг отключён — nop function.
	TracerShutdown func(context.Context) error

	// Reporter — диагностический канал дерева.
	Reporter *diag.Reporter

	// Proxy пересылает записи в удалённый Receiver. nil, если выключен.
	Proxy *proxy.HTTPProxy

	// Hierarchy — дерево логгеров, собранное из config.Tree.
	Hierarchy *logtree.Hierarchy
}

// Close отправляет накопленные записи proxy, закрывает sinks и
// завершает трейсинг. Ошибки всех шагов объединяются.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Proxy != nil {
		errs = append(errs, a.Proxy.Close(ctx))
	}
	if a.Hierarchy != nil {
		errs = append(errs, a.Hierarchy.Close())
	}
	if a.TracerShutdown != nil {
		errs = append(errs, a.TracerShutdown(ctx))
	}
	return errors.Join(errs...)
}

// partialCloseTimeout ограничивает отправку очереди proxy при сбое сборки App.
const partialCloseTimeout = 5 * time.Second

// closePartial освобождает proxy и трейсинг, если сборка App прервалась
// после их создания.
func closePartial(p *proxy.HTTPProxy, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), partialCloseTimeout)
	defer cancel()
	_ = (&App{Proxy: p, TracerShutdown: shutdown}).Close(ctx)
}
