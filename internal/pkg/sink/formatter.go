package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Kargones/logtree/internal/pkg/record"
)

// Поддерживаемые форматы вывода.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Formatter превращает запись в строку вывода (с завершающим переводом строки).
type Formatter interface {
	Format(rec *record.Record) ([]byte, error)
}

// NewFormatter возвращает форматтер по имени формата.
// Пустое имя — текстовый формат.
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DefaultTimeFormat — формат времени TextFormatter по умолчанию.
const DefaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TextFormatter выводит запись одной строкой:
//
//	2026-03-01T12:00:00.000Z INFO [app.db] connected host=node-1
type TextFormatter struct {
	// TimeFormat — layout для time.Format. Пусто — DefaultTimeFormat.
	TimeFormat string
}

// Format реализует Formatter.
func (f *TextFormatter) Format(rec *record.Record) ([]byte, error) {
	layout := f.TimeFormat
	if layout == "" {
		layout = DefaultTimeFormat
	}

	var b bytes.Buffer
	b.WriteString(rec.Timestamp.Format(layout))
	b.WriteByte(' ')
	b.WriteString(rec.Level.String())
	if rec.Name != "" {
		b.WriteString(" [")
		b.WriteString(rec.Name)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(rec.Text())

	for _, k := range sortedKeys(rec.Fields) {
		fmt.Fprintf(&b, " %s=%v", k, rec.Fields[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// JSONFormatter выводит запись в формате JSON Lines.
type JSONFormatter struct{}

// jsonLine — JSON-представление строки лога.
type jsonLine struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Logger  string         `json:"logger,omitempty"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Format реализует Formatter.
func (f *JSONFormatter) Format(rec *record.Record) ([]byte, error) {
	b, err := json.Marshal(jsonLine{
		Time:    rec.Timestamp.Format(time.RFC3339Nano),
		Level:   rec.Level.String(),
		Logger:  rec.Name,
		Message: rec.Text(),
		Fields:  rec.Fields,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: ошибка сериализации записи: %w", err)
	}
	return append(b, '\n'), nil
}

// sortedKeys возвращает ключи map в детерминированном порядке.
func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
