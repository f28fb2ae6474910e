package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Kargones/logtree/internal/pkg/record"
)

// Диалекты плейсхолдеров SQL.
const (
	DialectSQLServer = "sqlserver"
	DialectPostgres  = "postgres"
	DialectGeneric   = "generic"
)

// DefaultSQLTimeout — таймаут одной вставки по умолчанию.
const DefaultSQLTimeout = 5 * time.Second

// tableNameRe — допустимое имя таблицы: идентификаторы через точку.
// Имя подставляется в текст запроса, поэтому параметризация невозможна
// и имя проверяется строго.
var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// SQLSink вставляет записи в таблицу БД. Ожидаемая схема:
//
//	logger  NVARCHAR(255)
//	level   INT
//	ts      DATETIME2
//	message NVARCHAR(MAX)
//	fields  NVARCHAR(MAX)  -- JSON
type SQLSink struct {
	Threshold
	db      *sql.DB
	query   string
	timeout time.Duration
}

// Compile-time проверка реализации интерфейса
var _ Sink = (*SQLSink)(nil)

// NewSQLSink создаёт SQLSink для таблицы table с плейсхолдерами dialect.
func NewSQLSink(db *sql.DB, table, dialect string, timeout time.Duration, opts ...Option) (*SQLSink, error) {
	if db == nil {
		return nil, ErrNilWriter
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if timeout <= 0 {
		timeout = DefaultSQLTimeout
	}
	o := buildOptions(opts)
	return &SQLSink{
		Threshold: Threshold{min: o.level},
		db:        db,
		query:     insertQuery(table, dialect),
		timeout:   timeout,
	}, nil
}

// insertQuery строит INSERT с плейсхолдерами нужного диалекта.
func insertQuery(table, dialect string) string {
	ph := make([]string, 5)
	for i := range ph {
		switch dialect {
		case DialectSQLServer:
			ph[i] = fmt.Sprintf("@p%d", i+1)
		case DialectPostgres:
			ph[i] = fmt.Sprintf("$%d", i+1)
		default:
			ph[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (logger, level, ts, message, fields) VALUES (%s)",
		table, strings.Join(ph, ", "))
}

// Query возвращает текст INSERT запроса (для диагностики и тестов).
func (s *SQLSink) Query() string {
	return s.query
}

// Write реализует Sink. Поля записи сохраняются как JSON.
// Вставка не зависит от отмены контекста вызова: используется
// собственный таймаут.
func (s *SQLSink) Write(rec *record.Record) error {
	var fields string
	if len(rec.Fields) > 0 {
		b, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("sink: ошибка сериализации полей: %w", err)
		}
		fields = string(b)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.query,
		rec.Name, int(rec.Level), rec.Timestamp.UTC(), rec.Text(), fields); err != nil {
		return fmt.Errorf("sink: ошибка вставки записи: %w", err)
	}
	return nil
}

// Close закрывает пул соединений.
func (s *SQLSink) Close() error {
	return s.db.Close()
}
