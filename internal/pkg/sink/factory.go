package sink

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	// blank import для драйвера SQL Server (driver name "sqlserver")
	_ "github.com/denisenkom/go-mssqldb"

	"github.com/Kargones/logtree/internal/pkg/level"
)

// Поддерживаемые типы sink'ов для фабрики New.
const (
	TypeStderr = "stderr"
	TypeStdout = "stdout"
	TypeFile   = "file"
	TypeSQL    = "sql"

	TypeWebhook  = "webhook"
	TypeTelegram = "telegram"
)

// DefaultSQLDriver — драйвер database/sql по умолчанию для TypeSQL.
const DefaultSQLDriver = "sqlserver"

// SQLConfig содержит параметры SQL sink'а.
type SQLConfig struct {
	// Driver — имя драйвера database/sql. По умолчанию "sqlserver".
	Driver string

	// DSN — строка подключения. Обязательна.
	DSN string

	// Table — имя таблицы для вставки.
	Table string

	// Dialect — стиль плейсхолдеров. По умолчанию совпадает с Driver.
	Dialect string

	// Timeout — таймаут одной вставки.
	Timeout time.Duration
}

// Config описывает sink для фабрики New.
type Config struct {
	// Type — тип sink'а: stderr, stdout, file, sql, webhook, telegram.
	Type string

	// Format — формат вывода: text или json. Для sql и sinks
	// уведомлений не используется.
	Format string

	// Level — порог sink'а.
	Level level.Level

	// Encoding — кодировка вывода (WHATWG имя). Пусто — UTF-8.
	Encoding string

	// File — параметры для Type=file.
	File FileConfig

	// SQL — параметры для Type=sql.
	SQL SQLConfig

	// Webhook — параметры для Type=webhook.
	Webhook WebhookConfig

	// Telegram — параметры для Type=telegram.
	Telegram TelegramConfig
}

// New создаёт Sink по конфигурации.
func New(cfg Config) (Sink, error) {
	formatter, err := NewFormatter(cfg.Format)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithLevel(cfg.Level),
		WithFormatter(formatter),
		WithEncoding(cfg.Encoding),
	}

	switch cfg.Type {
	case TypeStderr, "":
		return NewWriterSink(stdStream{os.Stderr}, opts...)
	case TypeStdout:
		return NewWriterSink(stdStream{os.Stdout}, opts...)
	case TypeFile:
		return NewFileSink(cfg.File, opts...)
	case TypeSQL:
		return newSQLFromConfig(cfg.SQL, opts)
	case TypeWebhook:
		return NewWebhookSink(cfg.Webhook, opts...)
	case TypeTelegram:
		return NewTelegramSink(cfg.Telegram, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}

func newSQLFromConfig(cfg SQLConfig, opts []Option) (Sink, error) {
	if cfg.DSN == "" {
		return nil, ErrDSNRequired
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DefaultSQLDriver
	}
	dialect := cfg.Dialect
	if dialect == "" {
		dialect = driver
	}

	// sql.Open не устанавливает соединение: оно создаётся при первой вставке.
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sink: ошибка открытия БД: %w", err)
	}
	s, err := NewSQLSink(db, cfg.Table, dialect, cfg.Timeout, opts...)
	if err != nil {
		_ = db.Close() //nolint:errcheck // соединение ещё не использовалось
		return nil, err
	}
	return s, nil
}

// stdStream скрывает Close у os.Stderr/os.Stdout, чтобы закрытие
// sink'а не закрывало стандартные потоки процесса.
type stdStream struct {
	w io.Writer
}

func (s stdStream) Write(p []byte) (int, error) {
	return s.w.Write(p)
}
