package logtree

import (
	"fmt"
	"os"

	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/record"
)

// Proxy пересылает записи за пределы процесса.
// Вызывается синхронно из Log после процессоров и до локальной
// диспетчеризации. Ошибка пересылки не влияет на локальную доставку.
// Реализация не должна блокироваться надолго.
type Proxy interface {
	SendRecord(rec *record.Record) error
}

// Reporter — диагностический канал для сбоев процессоров, sinks и proxy.
// Не должен писать обратно в дерево логгеров, иначе сбой sink'а
// может привести к бесконечной рекурсии.
type Reporter interface {
	// Report получает имя логгера и ошибку (как правило *apperrors.AppError).
	Report(logger string, err error)
}

// Metrics принимает счётчики диспетчеризации.
type Metrics interface {
	// RecordDispatched вызывается для каждой принятой записи.
	RecordDispatched(logger string, lvl level.Level)
}

// Context — общая конфигурация набора логгеров: процессоры по умолчанию,
// применяемые к каждой записи, и необязательный proxy.
//
// Context изменяется только на этапе настройки, до начала
// конкурентного логирования.
type Context struct {
	processors []Processor
	proxy      Proxy
	reporter   Reporter
	metrics    Metrics
}

// Option настраивает Context при создании.
type Option func(*Context)

// WithProxy задаёт proxy для пересылки записей.
func WithProxy(p Proxy) Option {
	return func(c *Context) {
		c.proxy = p
	}
}

// WithReporter задаёт диагностический канал.
func WithReporter(r Reporter) Option {
	return func(c *Context) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithMetrics задаёт приёмник счётчиков.
func WithMetrics(m Metrics) Option {
	return func(c *Context) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithDefaultProcessors добавляет процессоры по умолчанию.
func WithDefaultProcessors(procs ...Processor) Option {
	return func(c *Context) {
		c.processors = append(c.processors, procs...)
	}
}

// NewContext создаёт Context. Без WithReporter сбои пишутся строкой в stderr.
func NewContext(opts ...Option) *Context {
	c := &Context{
		reporter: stderrReporter{},
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddDefaultProcessor добавляет процессор, применяемый ко всем записям
// логгеров этого Context. Процессоры Context выполняются раньше
// процессоров логгера.
func (c *Context) AddDefaultProcessor(p Processor) {
	c.processors = append(c.processors, p)
}

// DefaultProcessors возвращает копию списка процессоров по умолчанию.
func (c *Context) DefaultProcessors() []Processor {
	out := make([]Processor, len(c.processors))
	copy(out, c.processors)
	return out
}

// SetProxy задаёт или снимает (nil) proxy.
func (c *Context) SetProxy(p Proxy) {
	c.proxy = p
}

// Proxy возвращает текущий proxy или nil.
func (c *Context) Proxy() Proxy {
	return c.proxy
}

// Reporter возвращает диагностический канал.
func (c *Context) Reporter() Reporter {
	return c.reporter
}

// stderrReporter — диагностический канал по умолчанию.
type stderrReporter struct{}

func (stderrReporter) Report(logger string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "logtree: logger %q: %v\n", logger, err) //nolint:errcheck // диагностика best-effort
}

type nopMetrics struct{}

func (nopMetrics) RecordDispatched(string, level.Level) {}
