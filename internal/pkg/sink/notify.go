package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/ratelimit"
	"github.com/Kargones/logtree/internal/pkg/record"
)

// Значения по умолчанию для sinks уведомлений (webhook, telegram).
const (
	// DefaultNotifyLevel — порог sink'а уведомлений, если Level не задан.
	DefaultNotifyLevel = level.Error

	// DefaultNotifyTimeout — таймаут одного HTTP запроса.
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultRateLimitWindow — окно подавления повторов одного логгера и уровня.
	DefaultRateLimitWindow = time.Minute

	// DefaultRetryBackoff — первая пауза между повторами webhook.
	DefaultRetryBackoff = time.Second

	// maxRetryBackoff ограничивает рост паузы между повторами.
	maxRetryBackoff = 4 * time.Second

	// maxResponseBodySize ограничивает чтение тела ответа.
	maxResponseBodySize = 1024
)

// HTTPClient — HTTP клиент sinks уведомлений. Подменяется в тестах.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotifyRules фильтрует записи sinks уведомлений сверх порога уровня.
type NotifyRules struct {
	// IncludeLoggers — если задан, уведомления идут только от этих
	// логгеров и их потомков ("app" включает "app.db").
	IncludeLoggers []string

	// ExcludeLoggers — логгеры (с потомками), от которых уведомления
	// не отправляются. Проверяется, только если IncludeLoggers пуст.
	ExcludeLoggers []string

	// RateLimitWindow — не более одного уведомления на пару
	// (логгер, уровень) за окно. 0 — DefaultRateLimitWindow,
	// отрицательное значение отключает ограничение.
	RateLimitWindow time.Duration
}

// notifier — общая часть webhook и telegram sinks: правила отбора,
// подавление повторов и HTTP клиент.
type notifier struct {
	Threshold
	include  []string
	exclude  []string
	limiter  *ratelimit.Limiter
	client   HTTPClient
	timeout  time.Duration
	hostname string
}

func newNotifier(rules NotifyRules, timeout time.Duration, opts []Option) notifier {
	o := buildOptions(opts)
	if o.level == level.Unset {
		o.level = DefaultNotifyLevel
	}
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	window := rules.RateLimitWindow
	if window == 0 {
		window = DefaultRateLimitWindow
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return notifier{
		Threshold: Threshold{min: o.level},
		include:   trimNames(rules.IncludeLoggers),
		exclude:   trimNames(rules.ExcludeLoggers),
		limiter:   ratelimit.New(window),
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
		hostname:  hostname,
	}
}

// SetHTTPClient подменяет HTTP клиент.
func (n *notifier) SetHTTPClient(client HTTPClient) {
	n.client = client
}

// admit применяет правила к записи. Возвращает false, если запись
// отфильтрована или подавлена; при true — число подавленных с прошлого
// уведомления записей того же логгера и уровня.
func (n *notifier) admit(rec *record.Record) (bool, int) {
	if len(n.include) > 0 {
		if !matchesAny(rec.Name, n.include) {
			return false, 0
		}
	} else if matchesAny(rec.Name, n.exclude) {
		return false, 0
	}
	return n.limiter.Allow(rec.Name + "|" + rec.Level.Name())
}

// matchesAny сообщает, совпадает ли name с одним из имён или является
// потомком одного из них. Пустое имя в списке — корневой логгер, он
// совпадает со всеми.
func matchesAny(name string, names []string) bool {
	for _, n := range names {
		if n == "" || name == n || strings.HasPrefix(name, n+".") {
			return true
		}
	}
	return false
}

func trimNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.Trim(n, "."))
	}
	return out
}

// requestContext возвращает контекст одной доставки. Write не получает
// контекст вызова, поэтому время ограничивается таймаутом sink'а.
func (n *notifier) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), n.timeout)
}

// httpError — ответ получателя с кодом не 2xx.
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// isClientHTTPError: 4xx не повторяются, это ошибка конфигурации получателя.
func isClientHTTPError(err error) bool {
	var he *httpError
	if !errors.As(err, &he) {
		return false
	}
	return he.StatusCode >= 400 && he.StatusCode < 500
}
