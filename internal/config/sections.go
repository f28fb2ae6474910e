package config

import (
	"fmt"
	"time"

	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/logging"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/proxy"
	"github.com/Kargones/logtree/internal/pkg/tracing"
)

// LoggingConfig — журнал самодиагностики logtree (не дерево логгеров).
type LoggingConfig struct {
	// Level — уровень журнала (trace, debug, info, warn, error, critical).
	Level string `yaml:"level" env:"LT_LOG_LEVEL" env-default:"info"`

	// Format — text или json.
	Format string `yaml:"format" env:"LT_LOG_FORMAT" env-default:"text"`

	// Output — stderr или file.
	Output string `yaml:"output" env:"LT_LOG_OUTPUT" env-default:"stderr"`

	// FilePath — путь к файлу при output=file.
	FilePath string `yaml:"filePath" env:"LT_LOG_FILE_PATH" env-default:"/var/log/logtree/diag.log"`

	MaxSize    int  `yaml:"maxSize" env:"LT_LOG_MAX_SIZE" env-default:"100"`
	MaxBackups int  `yaml:"maxBackups" env:"LT_LOG_MAX_BACKUPS" env-default:"3"`
	MaxAge     int  `yaml:"maxAge" env:"LT_LOG_MAX_AGE" env-default:"7"`
	Compress   bool `yaml:"compress" env:"LT_LOG_COMPRESS"`
}

func (c *LoggingConfig) validate() error {
	if _, err := level.Parse(c.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("logging: неизвестный формат %q", c.Format)
	}
	switch c.Output {
	case logging.OutputStderr, logging.OutputFile:
	default:
		return fmt.Errorf("logging: неизвестный вывод %q", c.Output)
	}
	return nil
}

// ToLogging конвертирует секцию в logging.Config.
func (c *LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// ProxyConfig — пересылка записей в удалённый Receiver.
type ProxyConfig struct {
	// Enabled включает HTTPProxy в Context дерева.
	Enabled bool `yaml:"enabled" env:"LT_PROXY_ENABLED"`

	// URL — адрес Receiver.
	URL string `yaml:"url" env:"LT_PROXY_URL"`

	// Token — bearer-токен.
	Token string `yaml:"token" env:"LT_PROXY_TOKEN"`

	// Headers — дополнительные заголовки. Только из YAML:
	// cleanenv не разбирает map из окружения в нужном виде.
	Headers map[string]string `yaml:"headers"`

	QueueSize     int           `yaml:"queueSize" env:"LT_PROXY_QUEUE_SIZE" env-default:"10000"`
	BatchSize     int           `yaml:"batchSize" env:"LT_PROXY_BATCH_SIZE" env-default:"100"`
	FlushInterval time.Duration `yaml:"flushInterval" env:"LT_PROXY_FLUSH_INTERVAL" env-default:"1s"`
	Timeout       time.Duration `yaml:"timeout" env:"LT_PROXY_TIMEOUT" env-default:"5s"`
	MaxRetries    int           `yaml:"maxRetries" env:"LT_PROXY_MAX_RETRIES"`

	// Compression — пусто или zstd.
	Compression string `yaml:"compression" env:"LT_PROXY_COMPRESSION"`
}

func (c *ProxyConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	h := c.ToHTTP()
	return h.Validate()
}

// ToHTTP конвертирует секцию в proxy.HTTPConfig.
func (c *ProxyConfig) ToHTTP() proxy.HTTPConfig {
	return proxy.HTTPConfig{
		URL:           c.URL,
		Token:         c.Token,
		Headers:       c.Headers,
		QueueSize:     c.QueueSize,
		BatchSize:     c.BatchSize,
		FlushInterval: c.FlushInterval,
		Timeout:       c.Timeout,
		MaxRetries:    c.MaxRetries,
		Compression:   c.Compression,
	}
}

// HealthPath — путь проверки живости сервера serve.
const HealthPath = "/healthz"

// ReceiverConfig — HTTP сервер команды serve.
type ReceiverConfig struct {
	// Listen — адрес сервера.
	Listen string `yaml:"listen" env:"LT_RECEIVER_LISTEN" env-default:":8080"`

	// Path — путь приёма записей.
	Path string `yaml:"path" env:"LT_RECEIVER_PATH" env-default:"/ingest"`

	// MetricsPath — путь отдачи метрик Prometheus. Пусто — не отдавать.
	MetricsPath string `yaml:"metricsPath" env:"LT_RECEIVER_METRICS_PATH" env-default:"/metrics"`

	// Token — ожидаемый bearer-токен.
	Token string `yaml:"token" env:"LT_RECEIVER_TOKEN"`

	// MaxBodySize — максимальный размер тела в байтах.
	MaxBodySize int64 `yaml:"maxBodySize" env:"LT_RECEIVER_MAX_BODY_SIZE" env-default:"8388608"`

	// ShutdownTimeout — время на завершение активных запросов.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"LT_RECEIVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

func (c *ReceiverConfig) validate() error {
	if c.Path == "" || c.Path[0] != '/' {
		return fmt.Errorf("receiver: path должен начинаться с '/': %q", c.Path)
	}
	if c.Path == HealthPath {
		return fmt.Errorf("receiver: path совпадает с %s", HealthPath)
	}
	if c.MetricsPath != "" {
		if c.MetricsPath[0] != '/' {
			return fmt.Errorf("receiver: metricsPath должен начинаться с '/': %q", c.MetricsPath)
		}
		if c.MetricsPath == c.Path || c.MetricsPath == HealthPath {
			return fmt.Errorf("receiver: metricsPath %q совпадает с другим путём сервера", c.MetricsPath)
		}
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("receiver: maxBodySize не может быть отрицательным")
	}
	return nil
}

// ToReceiver конвертирует секцию в proxy.ReceiverConfig.
func (c *ReceiverConfig) ToReceiver() proxy.ReceiverConfig {
	return proxy.ReceiverConfig{
		Token:       c.Token,
		MaxBodySize: c.MaxBodySize,
	}
}

// MetricsConfig — Prometheus Pushgateway.
type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled" env:"LT_METRICS_ENABLED"`
	PushgatewayURL string        `yaml:"pushgatewayUrl" env:"LT_METRICS_PUSHGATEWAY_URL"`
	JobName        string        `yaml:"jobName" env:"LT_METRICS_JOB_NAME" env-default:"logtree"`
	Timeout        time.Duration `yaml:"timeout" env:"LT_METRICS_TIMEOUT" env-default:"10s"`
	InstanceLabel  string        `yaml:"instanceLabel" env:"LT_METRICS_INSTANCE"`
}

// ToMetrics конвертирует секцию в metrics.Config.
func (c *MetricsConfig) ToMetrics() metrics.Config {
	return metrics.Config{
		Enabled:        c.Enabled,
		PushgatewayURL: c.PushgatewayURL,
		JobName:        c.JobName,
		Timeout:        c.Timeout,
		InstanceLabel:  c.InstanceLabel,
	}
}

// TracingConfig — OpenTelemetry трейсинг.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" env:"LT_TRACING_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"LT_TRACING_ENDPOINT"`
	ServiceName string `yaml:"serviceName" env:"LT_TRACING_SERVICE_NAME" env-default:"logtree"`
	Environment string `yaml:"environment" env:"LT_TRACING_ENVIRONMENT" env-default:"production"`

	// Insecure — HTTP вместо HTTPS. По умолчанию true (см. defaultConfig).
	Insecure bool `yaml:"insecure" env:"LT_TRACING_INSECURE"`

	Timeout      time.Duration `yaml:"timeout" env:"LT_TRACING_TIMEOUT" env-default:"5s"`
	SamplingRate float64       `yaml:"samplingRate" env:"LT_TRACING_SAMPLING_RATE"`
}

// ToTracing конвертирует секцию в tracing.Config.
func (c *TracingConfig) ToTracing() tracing.Config {
	return tracing.Config{
		Enabled:      c.Enabled,
		Endpoint:     c.Endpoint,
		ServiceName:  c.ServiceName,
		Environment:  c.Environment,
		Insecure:     c.Insecure,
		Timeout:      c.Timeout,
		SamplingRate: c.SamplingRate,
	}
}
