package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/sink"
)

// Имена процессоров, допустимые в tree.processors и loggers.*.processors.
const (
	ProcessorHostname     = "hostname"
	ProcessorPID          = "pid"
	ProcessorRecordID     = "record_id"
	ProcessorTraceContext = "trace_context"
	ProcessorLoggerName   = "logger_name"
)

// DefaultSinkName — sink корня в дереве по умолчанию.
const DefaultSinkName = "console"

// ErrUnknownSink — логгер ссылается на необъявленный sink.
var ErrUnknownSink = errors.New("tree: неизвестный sink")

// ErrUnknownProcessor — неизвестное имя процессора.
var ErrUnknownProcessor = errors.New("tree: неизвестный процессор")

// TreeConfig описывает дерево логгеров: именованные sinks, корень и
// логгеры с точечными именами.
type TreeConfig struct {
	// RootLevel — уровень корня. "unset" — принимать всё.
	RootLevel string `yaml:"rootLevel" env:"LT_ROOT_LEVEL" env-default:"info"`

	// RootSinks — имена sinks корня.
	RootSinks []string `yaml:"rootSinks"`

	// Processors — процессоры Context, применяются ко всем записям.
	Processors []string `yaml:"processors"`

	// Static — поля, добавляемые в каждую запись.
	Static map[string]string `yaml:"static"`

	// Redact — ключи полей, значения которых маскируются.
	Redact []string `yaml:"redact"`

	// Sinks — именованные sinks.
	Sinks map[string]SinkConfig `yaml:"sinks"`

	// Loggers — логгеры по точечному имени.
	Loggers map[string]LoggerConfig `yaml:"loggers"`
}

// LoggerConfig — настройки одного логгера.
type LoggerConfig struct {
	// Level — уровень логгера. Пусто — наследовать.
	Level string `yaml:"level"`

	// Propagate — передавать ли записи sinks предков. nil — true.
	Propagate *bool `yaml:"propagate"`

	// Sinks — имена sinks логгера.
	Sinks []string `yaml:"sinks"`

	// Processors — процессоры логгера.
	Processors []string `yaml:"processors"`
}

// SinkConfig — настройки именованного sink'а.
type SinkConfig struct {
	// Type — stderr, stdout, file, sql, webhook, telegram.
	Type string `yaml:"type"`

	// Format — text или json.
	Format string `yaml:"format"`

	// Level — порог sink'а. Пусто — принимать всё.
	Level string `yaml:"level"`

	// Encoding — кодировка вывода, например windows-1251.
	Encoding string `yaml:"encoding"`

	File     FileSinkConfig     `yaml:"file"`
	SQL      SQLSinkConfig      `yaml:"sql"`
	Webhook  WebhookSinkConfig  `yaml:"webhook"`
	Telegram TelegramSinkConfig `yaml:"telegram"`
}

// FileSinkConfig — параметры sink'а type=file.
type FileSinkConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

// SQLSinkConfig — параметры sink'а type=sql.
type SQLSinkConfig struct {
	Driver  string        `yaml:"driver"`
	DSN     string        `yaml:"dsn"`
	Table   string        `yaml:"table"`
	Dialect string        `yaml:"dialect"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotifyRulesConfig — отбор записей для sinks уведомлений.
type NotifyRulesConfig struct {
	// IncludeLoggers — только эти логгеры и их потомки.
	IncludeLoggers []string `yaml:"includeLoggers"`

	// ExcludeLoggers — кроме этих логгеров и их потомков.
	ExcludeLoggers []string `yaml:"excludeLoggers"`

	// RateLimitWindow — окно подавления повторов. По умолчанию 1m,
	// отрицательное значение отключает подавление.
	RateLimitWindow time.Duration `yaml:"rateLimitWindow"`
}

// WebhookSinkConfig — параметры sink'а type=webhook.
type WebhookSinkConfig struct {
	URLs         []string          `yaml:"urls"`
	Headers      map[string]string `yaml:"headers"`
	Timeout      time.Duration     `yaml:"timeout"`
	MaxRetries   int               `yaml:"maxRetries"`
	RetryBackoff time.Duration     `yaml:"retryBackoff"`
	Rules        NotifyRulesConfig `yaml:"rules"`
}

// TelegramSinkConfig — параметры sink'а type=telegram.
type TelegramSinkConfig struct {
	BotToken string            `yaml:"botToken"`
	ChatIDs  []string          `yaml:"chatIds"`
	APIURL   string            `yaml:"apiUrl"`
	Timeout  time.Duration     `yaml:"timeout"`
	Rules    NotifyRulesConfig `yaml:"rules"`
}

func (c NotifyRulesConfig) toRules() sink.NotifyRules {
	return sink.NotifyRules{
		IncludeLoggers:  c.IncludeLoggers,
		ExcludeLoggers:  c.ExcludeLoggers,
		RateLimitWindow: c.RateLimitWindow,
	}
}

// defaultTree — корень с одним текстовым sink'ом в stderr.
func defaultTree() TreeConfig {
	return TreeConfig{
		RootSinks: []string{DefaultSinkName},
		Sinks: map[string]SinkConfig{
			DefaultSinkName: {Type: sink.TypeStderr, Format: sink.FormatText},
		},
	}
}

// ShouldPropagate возвращает значение propagate с учётом умолчания.
func (c LoggerConfig) ShouldPropagate() bool {
	return c.Propagate == nil || *c.Propagate
}

// ToSink конвертирует секцию в sink.Config.
func (c SinkConfig) ToSink() (sink.Config, error) {
	lvl, err := level.Parse(c.Level)
	if err != nil {
		return sink.Config{}, err
	}
	return sink.Config{
		Type:     c.Type,
		Format:   c.Format,
		Level:    lvl,
		Encoding: c.Encoding,
		File: sink.FileConfig{
			Path:       c.File.Path,
			MaxSize:    c.File.MaxSize,
			MaxBackups: c.File.MaxBackups,
			MaxAge:     c.File.MaxAge,
			Compress:   c.File.Compress,
		},
		SQL: sink.SQLConfig{
			Driver:  c.SQL.Driver,
			DSN:     c.SQL.DSN,
			Table:   c.SQL.Table,
			Dialect: c.SQL.Dialect,
			Timeout: c.SQL.Timeout,
		},
		Webhook: sink.WebhookConfig{
			URLs:         c.Webhook.URLs,
			Headers:      c.Webhook.Headers,
			Timeout:      c.Webhook.Timeout,
			MaxRetries:   c.Webhook.MaxRetries,
			RetryBackoff: c.Webhook.RetryBackoff,
			Rules:        c.Webhook.Rules.toRules(),
		},
		Telegram: sink.TelegramConfig{
			BotToken: c.Telegram.BotToken,
			ChatIDs:  c.Telegram.ChatIDs,
			APIURL:   c.Telegram.APIURL,
			Timeout:  c.Telegram.Timeout,
			Rules:    c.Telegram.Rules.toRules(),
		},
	}, nil
}

// LoggerNames возвращает имена логгеров в порядке сортировки: предок
// всегда идёт раньше потомка.
func (c *TreeConfig) LoggerNames() []string {
	names := make([]string, 0, len(c.Loggers))
	for name := range c.Loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate проверяет уровни, ссылки на sinks и имена процессоров.
func (c *TreeConfig) Validate() error {
	var errs []error

	if _, err := level.Parse(c.RootLevel); err != nil {
		errs = append(errs, fmt.Errorf("tree.rootLevel: %w", err))
	}
	errs = append(errs, c.checkSinkRefs("tree.rootSinks", c.RootSinks)...)
	errs = append(errs, checkProcessors("tree.processors", c.Processors)...)

	for name, s := range c.Sinks {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("tree.sinks.%s: %w", name, err))
		}
	}
	for _, name := range c.LoggerNames() {
		l := c.Loggers[name]
		if _, err := level.Parse(l.Level); err != nil {
			errs = append(errs, fmt.Errorf("tree.loggers.%s.level: %w", name, err))
		}
		errs = append(errs, c.checkSinkRefs("tree.loggers."+name+".sinks", l.Sinks)...)
		errs = append(errs, checkProcessors("tree.loggers."+name+".processors", l.Processors)...)
	}
	return errors.Join(errs...)
}

func (c *TreeConfig) checkSinkRefs(path string, names []string) []error {
	var errs []error
	for _, n := range names {
		if _, ok := c.Sinks[n]; !ok {
			errs = append(errs, fmt.Errorf("%s: %w: %q", path, ErrUnknownSink, n))
		}
	}
	return errs
}

func checkProcessors(path string, names []string) []error {
	var errs []error
	for _, n := range names {
		switch n {
		case ProcessorHostname, ProcessorPID, ProcessorRecordID, ProcessorTraceContext, ProcessorLoggerName:
		default:
			errs = append(errs, fmt.Errorf("%s: %w: %q", path, ErrUnknownProcessor, n))
		}
	}
	return errs
}

func (c SinkConfig) validate() error {
	if _, err := level.Parse(c.Level); err != nil {
		return err
	}
	if _, err := sink.NewFormatter(c.Format); err != nil {
		return err
	}
	switch c.Type {
	case sink.TypeStderr, sink.TypeStdout, "":
	case sink.TypeFile:
		if c.File.Path == "" {
			return sink.ErrFilePathRequired
		}
	case sink.TypeSQL:
		if c.SQL.DSN == "" {
			return sink.ErrDSNRequired
		}
	case sink.TypeWebhook:
		if len(c.Webhook.URLs) == 0 {
			return sink.ErrWebhookURLRequired
		}
		for i, u := range c.Webhook.URLs {
			if parsed, err := url.ParseRequestURI(u); err != nil || parsed.Host == "" {
				return fmt.Errorf("webhook.urls[%d]: невалидный URL", i)
			}
		}
	case sink.TypeTelegram:
		if c.Telegram.BotToken == "" {
			return sink.ErrTelegramTokenRequired
		}
		if len(c.Telegram.ChatIDs) == 0 {
			return sink.ErrTelegramChatRequired
		}
	default:
		return fmt.Errorf("%w: %q", sink.ErrUnknownType, c.Type)
	}
	return nil
}
