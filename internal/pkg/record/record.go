// Package record описывает Record — снимок одного события логирования.
//
// Record создаётся на каждый принятый вызов логгера. После фазы
// процессоров запись считается запечатанной: sinks получают её только
// для чтения и не должны изменять.
package record

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Kargones/logtree/internal/pkg/level"
)

// Record представляет одно событие логирования.
type Record struct {
	// Name — имя логгера, на котором был сделан вызов.
	Name string

	// Level — числовой ранг записи.
	Level level.Level

	// Timestamp — момент создания записи.
	Timestamp time.Time

	// Message — сообщение. Символы '%' не интерпретируются:
	// форматирование выполняет Logger.Logf до создания записи.
	Message string

	// Args — позиционные аргументы вызова.
	Args []any

	// Fields — поля, добавленные процессорами.
	Fields map[string]any

	ctx context.Context
}

// New создаёт Record с указанными полями.
func New(name string, lvl level.Level, ts time.Time, msg string, args []any) *Record {
	return &Record{
		Name:      name,
		Level:     lvl,
		Timestamp: ts,
		Message:   msg,
		Args:      args,
	}
}

// Context возвращает контекст вызова. Никогда не возвращает nil.
func (r *Record) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// SetContext привязывает контекст вызова к записи.
func (r *Record) SetContext(ctx context.Context) {
	r.ctx = ctx
}

// Set добавляет или перезаписывает поле записи.
func (r *Record) Set(key string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = value
}

// Get возвращает значение поля записи.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Text возвращает сообщение, за которым через пробел следуют аргументы.
func (r *Record) Text() string {
	if len(r.Args) == 0 {
		return r.Message
	}
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range r.Args {
		b.WriteByte(' ')
		fmt.Fprint(&b, a)
	}
	return b.String()
}

// Wire-имена полей записи.
const (
	KeyName      = "name"
	KeyLevel     = "level"
	KeyTimestamp = "timestamp"
	KeyMessage   = "message"
	KeyArgs      = "args"
	KeyFields    = "fields"
)

// wireRecord — JSON-представление записи для пересылки между процессами.
type wireRecord struct {
	Name      string         `json:"name"`
	Level     int            `json:"level"`
	Timestamp string         `json:"timestamp"`
	Message   string         `json:"message"`
	Args      []any          `json:"args,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// MarshalJSON сериализует запись. Уровень пишется числом,
// время — в RFC 3339 с наносекундами.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		Name:      r.Name,
		Level:     int(r.Level),
		Timestamp: r.Timestamp.Format(time.RFC3339Nano),
		Message:   r.Message,
		Args:      r.Args,
		Fields:    r.Fields,
	})
}
