package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Kargones/logtree/internal/constants"
	"github.com/Kargones/logtree/internal/pkg/record"
	"github.com/Kargones/logtree/internal/pkg/urlutil"
)

// WebhookConfig содержит параметры webhook sink'а.
type WebhookConfig struct {
	// URLs — адреса получателей. Запись отправляется на каждый.
	URLs []string

	// Headers — дополнительные HTTP заголовки (например Authorization).
	Headers map[string]string

	// Timeout — таймаут одного запроса. По умолчанию DefaultNotifyTimeout.
	Timeout time.Duration

	// MaxRetries — число повторов при сетевых ошибках и ответах 5xx.
	MaxRetries int

	// RetryBackoff — первая пауза между повторами, удваивается до 4s.
	RetryBackoff time.Duration

	// Rules — отбор и подавление повторов.
	Rules NotifyRules
}

// WebhookPayload — JSON тело запроса webhook.
type WebhookPayload struct {
	Logger     string         `json:"logger"`
	Level      string         `json:"level"`
	LevelNo    int            `json:"level_no"`
	Message    string         `json:"message"`
	Timestamp  time.Time      `json:"timestamp"`
	Fields     map[string]any `json:"fields,omitempty"`
	Suppressed int            `json:"suppressed,omitempty"`
	Source     string         `json:"source"`
	Hostname   string         `json:"hostname,omitempty"`
}

// WebhookSink отправляет записи POST запросом с JSON телом.
// По умолчанию принимает записи от ERROR и выше.
type WebhookSink struct {
	notifier
	config  WebhookConfig
	backoff time.Duration
}

// Compile-time проверка реализации интерфейса
var _ Sink = (*WebhookSink)(nil)

// NewWebhookSink создаёт WebhookSink. Из опций учитывается только WithLevel.
func NewWebhookSink(config WebhookConfig, opts ...Option) (*WebhookSink, error) {
	if len(config.URLs) == 0 {
		return nil, ErrWebhookURLRequired
	}
	for _, u := range config.URLs {
		if u == "" {
			return nil, ErrWebhookURLRequired
		}
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	backoff := config.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	return &WebhookSink{
		notifier: newNotifier(config.Rules, config.Timeout, opts),
		config:   config,
		backoff:  backoff,
	}, nil
}

// Write отправляет запись на все URL. Ошибка доставки на один адрес не
// прерывает отправку на остальные; ошибки всех адресов объединяются.
func (w *WebhookSink) Write(rec *record.Record) error {
	ok, suppressed := w.admit(rec)
	if !ok {
		return nil
	}

	body, err := json.Marshal(w.payload(rec, suppressed))
	if err != nil {
		return fmt.Errorf("webhook: сериализация записи: %w", err)
	}

	var errs []error
	for _, url := range w.config.URLs {
		if err := w.sendWithRetry(url, body); err != nil {
			errs = append(errs, fmt.Errorf("webhook %s: %w", urlutil.MaskURL(url), err))
		}
	}
	return errors.Join(errs...)
}

func (w *WebhookSink) payload(rec *record.Record, suppressed int) WebhookPayload {
	return WebhookPayload{
		Logger:     rec.Name,
		Level:      rec.Level.Name(),
		LevelNo:    int(rec.Level),
		Message:    rec.Text(),
		Timestamp:  rec.Timestamp,
		Fields:     rec.Fields,
		Suppressed: suppressed,
		Source:     constants.AppName,
		Hostname:   w.hostname,
	}
}

// sendWithRetry повторяет запрос при сетевых ошибках и 5xx с
// экспоненциальной паузой. 4xx не повторяются.
func (w *WebhookSink) sendWithRetry(url string, body []byte) error {
	var lastErr error
	backoff := w.backoff
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxRetryBackoff {
				backoff = maxRetryBackoff
			}
		}

		lastErr = w.send(url, body)
		if lastErr == nil {
			return nil
		}
		if isClientHTTPError(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("все %d попыток неудачны: %w", w.config.MaxRetries+1, lastErr)
}

func (w *WebhookSink) send(url string, body []byte) error {
	ctx, cancel := w.requestContext()
	defer cancel()
	return w.post(ctx, url, body)
}

func (w *WebhookSink) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", constants.UserAgent())
	for k, v := range w.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize)) //nolint:errcheck // best-effort drain
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize)) //nolint:errcheck // тело только для диагностики
	return &httpError{StatusCode: resp.StatusCode, Body: string(respBody)}
}
