// Package proxy пересылает записи дерева логгеров за пределы процесса
// и принимает их обратно: HTTPProxy отправляет пачки записей по HTTP,
// Receiver принимает их и диспетчеризует в локальную иерархию,
// ChannelProxy передаёт записи внутри процесса.
package proxy

import (
	"errors"
	"net/url"
	"time"
)

// Сжатие тела запроса.
const (
	CompressionNone = ""
	CompressionZstd = "zstd"
)

// Значения по умолчанию для HTTPConfig.
const (
	DefaultQueueSize     = 10000
	DefaultBatchSize     = 100
	DefaultFlushInterval = time.Second
	DefaultTimeout       = 5 * time.Second
	DefaultMaxRetries    = 3
	DefaultMaxBodySize   = 8 << 20
)

// Ошибки конфигурации и работы proxy.
var (
	// ErrURLRequired — не указан URL приёмника.
	ErrURLRequired = errors.New("proxy: url обязателен")

	// ErrURLInvalid — URL без схемы или host.
	ErrURLInvalid = errors.New("proxy: невалидный url")

	// ErrUnknownCompression — неподдерживаемый алгоритм сжатия.
	ErrUnknownCompression = errors.New("proxy: неизвестный алгоритм сжатия")

	// ErrClosed — proxy закрыт.
	ErrClosed = errors.New("proxy: закрыт")

	// ErrQueueFull — очередь заполнена, запись отброшена.
	ErrQueueFull = errors.New("proxy: очередь заполнена")
)

// HTTPConfig — настройки HTTPProxy.
type HTTPConfig struct {
	// URL — адрес Receiver, например "http://collector:8080/ingest".
	URL string

	// Token — bearer-токен. Пусто — без авторизации.
	Token string

	// Headers — дополнительные заголовки запроса.
	Headers map[string]string

	// QueueSize — ёмкость очереди записей.
	QueueSize int

	// BatchSize — максимальный размер пачки.
	BatchSize int

	// FlushInterval — период отправки неполной пачки.
	FlushInterval time.Duration

	// Timeout — таймаут одного HTTP запроса.
	Timeout time.Duration

	// MaxRetries — число повторов при сетевой ошибке или 5xx.
	MaxRetries int

	// Compression — "" или "zstd".
	Compression string
}

// DefaultHTTPConfig возвращает конфигурацию со значениями по умолчанию
// и пустым URL.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		QueueSize:     DefaultQueueSize,
		BatchSize:     DefaultBatchSize,
		FlushInterval: DefaultFlushInterval,
		Timeout:       DefaultTimeout,
		MaxRetries:    DefaultMaxRetries,
	}
}

// Validate проверяет конфигурацию.
func (c *HTTPConfig) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}
	if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return ErrURLInvalid
	}
	switch c.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return ErrUnknownCompression
	}
	return nil
}

// withDefaults заполняет незаданные числовые поля.
func (c HTTPConfig) withDefaults() HTTPConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}
