package metrics

import (
	"net/url"
	"time"

	"github.com/Kargones/logtree/internal/constants"
)

// Config — настройки метрик.
type Config struct {
	// Enabled — включены ли метрики.
	Enabled bool

	// PushgatewayURL — URL Pushgateway, например "http://pushgateway:9091".
	PushgatewayURL string

	// JobName — job в Pushgateway.
	JobName string

	// Timeout — таймаут HTTP запросов к Pushgateway.
	Timeout time.Duration

	// InstanceLabel — значение label instance. Пусто — hostname.
	InstanceLabel string
}

// Validate проверяет конфигурацию. Выключенные метрики всегда валидны.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.PushgatewayURL == "" {
		return ErrPushgatewayURLRequired
	}
	u, err := url.Parse(c.PushgatewayURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrPushgatewayURLInvalid
	}
	if c.JobName == "" {
		return ErrJobNameRequired
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию (метрики выключены).
func DefaultConfig() Config {
	return Config{
		JobName: constants.AppName,
		Timeout: 10 * time.Second,
	}
}
