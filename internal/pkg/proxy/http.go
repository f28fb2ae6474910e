package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Kargones/logtree/internal/constants"
	"github.com/Kargones/logtree/internal/pkg/apperrors"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/record"
	"github.com/Kargones/logtree/internal/pkg/urlutil"
)

// maxResponseBodySize ограничивает чтение тела ответа приёмника.
const maxResponseBodySize = 1024

// Причины отбрасывания записей для метрик.
const (
	dropQueueFull  = "queue_full"
	dropClosed     = "closed"
	dropSendFailed = "send_failed"
	dropEncode     = "encode_failed"
)

// HTTPClient — минимальный интерфейс HTTP клиента.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// httpError — ответ приёмника с кодом не 2xx.
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// isClientHTTPError: 4xx не повторяются, это ошибка конфигурации или данных.
func isClientHTTPError(err error) bool {
	var he *httpError
	if !errors.As(err, &he) {
		return false
	}
	return he.StatusCode >= 400 && he.StatusCode < 500
}

// HTTPProxy реализует logtree.Proxy: записи сериализуются в JSON,
// ставятся в очередь и отправляются фоновой горутиной пачками
// (JSON-массив) при заполнении пачки или по таймеру.
//
// SendRecord не блокируется: при заполненной очереди запись отбрасывается.
type HTTPProxy struct {
	config  HTTPConfig
	logger  logging.Logger
	metrics metrics.Collector
	client  HTTPClient
	encoder *zstd.Encoder

	queue chan []byte
	done  chan struct{}
	wg    sync.WaitGroup

	// ctx отменяется, если Close не дождался отправки.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once

	backoff    time.Duration
	maxBackoff time.Duration
}

var _ logtree.Proxy = (*HTTPProxy)(nil)

// NewHTTPProxy создаёт proxy и запускает фоновую отправку.
func NewHTTPProxy(config HTTPConfig, logger logging.Logger, collector metrics.Collector) (*HTTPProxy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()
	logger = logging.OrNop(logger)
	if collector == nil {
		collector = metrics.NewNopCollector()
	}

	p := &HTTPProxy{
		config:     config,
		logger:     logger,
		metrics:    collector,
		client:     &http.Client{Timeout: config.Timeout},
		queue:      make(chan []byte, config.QueueSize),
		done:       make(chan struct{}),
		backoff:    time.Second,
		maxBackoff: 4 * time.Second,
	}
	if config.Compression == CompressionZstd {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("proxy: zstd encoder: %w", err)
		}
		p.encoder = enc
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go p.runLoop()

	return p, nil
}

// SetHTTPClient подменяет HTTP клиент. Вызывается до первой записи.
func (p *HTTPProxy) SetHTTPClient(client HTTPClient) {
	p.client = client
}

// SendRecord реализует logtree.Proxy.
func (p *HTTPProxy) SendRecord(rec *record.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		p.metrics.RecordDropped(dropEncode)
		return fmt.Errorf("proxy: сериализация записи: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.RecordDropped(dropClosed)
		return apperrors.NewAppError(apperrors.ErrProxyDropped, "proxy закрыт, запись отброшена", ErrClosed)
	}

	select {
	case p.queue <- data:
		return nil
	default:
		p.metrics.RecordDropped(dropQueueFull)
		return apperrors.NewAppError(apperrors.ErrProxyDropped, "очередь proxy заполнена, запись отброшена", ErrQueueFull)
	}
}

// Close прекращает приём записей и отправляет накопленные. Если ctx
// истекает раньше, текущая отправка прерывается и возвращается ctx.Err().
func (p *HTTPProxy) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.done)
	})

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-finished
		return ctx.Err()
	}
}

func (p *HTTPProxy) runLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	batch := make([][]byte, 0, p.config.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.sendBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case data := <-p.queue:
			batch = append(batch, data)
			if len(batch) >= p.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-p.done:
			for {
				select {
				case data := <-p.queue:
					batch = append(batch, data)
					if len(batch) >= p.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// sendBatch собирает JSON-массив и отправляет его с повторами.
func (p *HTTPProxy) sendBatch(batch [][]byte) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, b := range batch {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(b)
	}
	buf.WriteByte(']')

	body := buf.Bytes()
	if p.encoder != nil {
		body = p.encoder.EncodeAll(body, make([]byte, 0, len(body)/2))
	}

	start := time.Now()
	err := p.sendWithRetry(p.ctx, body)
	p.metrics.RecordBatch(len(batch), time.Since(start), err == nil)

	if err != nil {
		for range batch {
			p.metrics.RecordDropped(dropSendFailed)
		}
		p.logger.Error("proxy: пачка записей не доставлена",
			"error", err.Error(),
			"url", urlutil.MaskURL(p.config.URL),
			"records", len(batch),
		)
		return
	}
	p.logger.Debug("proxy: пачка записей отправлена",
		"records", len(batch),
		"bytes", len(body),
	)
}

// sendWithRetry повторяет запрос при сетевой ошибке и 5xx с
// экспоненциальной задержкой (backoff, 2*backoff, ... до maxBackoff).
func (p *HTTPProxy) sendWithRetry(ctx context.Context, body []byte) error {
	var lastErr error
	backoff := p.backoff

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > p.maxBackoff {
					backoff = p.maxBackoff
				}
			}
			p.logger.Debug("proxy: повтор отправки",
				"attempt", attempt,
				"max_retries", p.config.MaxRetries,
				"error", lastErr.Error(),
			)
		}

		lastErr = p.sendRequest(ctx, body)
		if lastErr == nil {
			return nil
		}
		if isClientHTTPError(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("все %d попыток неудачны: %w", p.config.MaxRetries+1, lastErr)
}

func (p *HTTPProxy) sendRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", constants.UserAgent())
	if p.encoder != nil {
		req.Header.Set("Content-Encoding", CompressionZstd)
	}
	if p.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.Token)
	}
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
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
