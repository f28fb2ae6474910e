// Package sink предоставляет интерфейс Sink и стандартные реализации
// вывода записей: io.Writer, файл с ротацией, slog.Handler, SQL таблица,
// уведомления через webhook и Telegram и адаптер для простой функции записи.
//
// Каждый sink имеет собственный порог (Level). Запись передаётся в Write
// только если её уровень не ниже порога; порог 0 принимает всё.
// Проверку порога выполняет диспетчер логгера, а не сам sink.
package sink

import (
	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/record"
)

// Sink принимает записи и выполняет вывод.
type Sink interface {
	// Write выводит запись. Запись нельзя изменять.
	Write(rec *record.Record) error

	// Level возвращает порог sink'а. level.Unset — принимать всё.
	Level() level.Level
}

// Accepts сообщает, должен ли sink получить запись.
func Accepts(s Sink, rec *record.Record) bool {
	return rec.Level >= s.Level()
}

// Threshold хранит порог sink'а. Встраивается в реализации.
type Threshold struct {
	min level.Level
}

// Level возвращает порог.
func (t *Threshold) Level() level.Level {
	return t.min
}

// SetLevel меняет порог. Как и остальная конфигурация дерева,
// вызывается до начала конкурентного логирования.
func (t *Threshold) SetLevel(l level.Level) {
	t.min = l
}

// options — общие параметры конструкторов sink'ов.
type options struct {
	level     level.Level
	formatter Formatter
	encoding  string
}

// Option настраивает sink при создании.
type Option func(*options)

// WithLevel задаёт порог sink'а.
func WithLevel(l level.Level) Option {
	return func(o *options) {
		o.level = l
	}
}

// WithFormatter задаёт форматтер. По умолчанию — TextFormatter.
func WithFormatter(f Formatter) Option {
	return func(o *options) {
		if f != nil {
			o.formatter = f
		}
	}
}

// WithEncoding задаёт кодировку вывода по имени из WHATWG Encoding
// (например "windows-1251"). Пустое значение — UTF-8 без преобразования.
func WithEncoding(name string) Option {
	return func(o *options) {
		o.encoding = name
	}
}

func buildOptions(opts []Option) options {
	o := options{formatter: &TextFormatter{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
