// Package logtree реализует иерархию логгеров и диспетчеризацию записей.
//
// Логгеры образуют дерево через ссылку на родителя. Эффективный уровень
// логгера наследуется от ближайшего предка с заданным уровнем. Принятая
// запись проходит через процессоры Context и логгера, при наличии
// отправляется в proxy, затем передаётся sinks логгера и, пока включено
// распространение (propagate), sinks его предков.
//
// Дерево навигируемо только вверх: логгер не хранит список потомков.
// Построение дерева — ответственность вызывающего кода (см. Hierarchy).
//
// Вся работа выполняется синхронно в вызывающей горутине. Конфигурация
// (SetLevel, SetParent, AddSink, AddProcessor и т.п.) не защищена
// блокировками и должна выполняться до начала конкурентного логирования.
package logtree

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kargones/logtree/internal/pkg/apperrors"
	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/record"
	"github.com/Kargones/logtree/internal/pkg/sink"
)

// ErrCycle возвращается SetParent, если новый родитель замкнул бы цикл.
var ErrCycle = errors.New("logtree: родитель образует цикл в иерархии")

// Logger — узел иерархии логгеров.
type Logger struct {
	ctx        *Context
	name       string
	level      level.Level
	parent     *Logger
	sinks      []sink.Sink
	processors []Processor
	propagate  bool
}

// New создаёт корневой логгер (без родителя) с уровнем lvl.
// level.Unset означает "наследовать" (для корня — принимать всё).
// При c == nil создаётся Context по умолчанию.
func New(c *Context, name string, lvl level.Level) *Logger {
	if c == nil {
		c = NewContext()
	}
	return &Logger{
		ctx:       c,
		name:      name,
		level:     lvl,
		propagate: true,
	}
}

// Name возвращает имя логгера.
func (l *Logger) Name() string {
	return l.name
}

// Context возвращает общий Context логгера.
func (l *Logger) Context() *Context {
	return l.ctx
}

// Parent возвращает родителя или nil для корня.
func (l *Logger) Parent() *Logger {
	return l.parent
}

// SetParent делает p родителем логгера (nil — отвязать).
// Возвращает ErrCycle, если l уже является предком p.
func (l *Logger) SetParent(p *Logger) error {
	for a := p; a != nil; a = a.parent {
		if a == l {
			return fmt.Errorf("%w: %q -> %q", ErrCycle, l.name, p.name)
		}
	}
	l.parent = p
	return nil
}

// Level возвращает явно заданный уровень логгера (Unset, если не задан).
func (l *Logger) Level() level.Level {
	return l.level
}

// SetLevel задаёт уровень логгера. level.Unset — наследовать от предков.
func (l *Logger) SetLevel(lvl level.Level) {
	l.level = lvl
}

// SetLevelName задаёт уровень по символьному имени.
func (l *Logger) SetLevelName(name string) error {
	lvl, err := level.Parse(name)
	if err != nil {
		return err
	}
	l.level = lvl
	return nil
}

// Propagate сообщает, передаются ли записи sinks предков.
func (l *Logger) Propagate() bool {
	return l.propagate
}

// SetPropagate включает или выключает распространение к предкам.
func (l *Logger) SetPropagate(v bool) {
	l.propagate = v
}

// AddSink добавляет sink в конец списка. nil игнорируется.
func (l *Logger) AddSink(s sink.Sink) {
	if s == nil {
		return
	}
	l.sinks = append(l.sinks, s)
}

// AddWriteFunc оборачивает функцию записи в sink с форматтером
// по умолчанию и добавляет его.
func (l *Logger) AddWriteFunc(fn sink.WriteFunc, opts ...sink.Option) error {
	s, err := sink.NewFuncSink(fn, opts...)
	if err != nil {
		return err
	}
	l.sinks = append(l.sinks, s)
	return nil
}

// Sinks возвращает копию списка sinks логгера.
func (l *Logger) Sinks() []sink.Sink {
	out := make([]sink.Sink, len(l.sinks))
	copy(out, l.sinks)
	return out
}

// AddProcessor добавляет процессор в конец списка логгера.
func (l *Logger) AddProcessor(p Processor) {
	l.processors = append(l.processors, p)
}

// EffectiveLevel возвращает первый заданный уровень на пути от логгера
// к корню, либо level.Unset, если уровень не задан нигде.
// Результат не кэшируется: смена уровня предка видна сразу.
func (l *Logger) EffectiveLevel() level.Level {
	for a := l; a != nil; a = a.parent {
		if a.level != level.Unset {
			return a.level
		}
	}
	return level.Unset
}

// IsEnabledFor сообщает, будет ли принята запись уровня lvl.
func (l *Logger) IsEnabledFor(lvl level.Level) bool {
	return lvl >= l.EffectiveLevel()
}

// CreateRecord создаёт запись с текущим временем и применяет к ней
// процессоры Context, затем процессоры логгера.
func (l *Logger) CreateRecord(lvl level.Level, msg string, args []any) *record.Record {
	return l.createRecord(context.Background(), lvl, msg, args)
}

func (l *Logger) createRecord(ctx context.Context, lvl level.Level, msg string, args []any) *record.Record {
	rec := record.New(l.name, lvl, time.Now(), msg, args)
	rec.SetContext(ctx)

	for _, p := range l.ctx.processors {
		l.runProcessor(p, rec)
	}
	for _, p := range l.processors {
		l.runProcessor(p, rec)
	}
	return rec
}

// ImportRecord строит запись из данных, полученных из другого процесса.
// Процессоры не применяются: запись считается завершённой.
func (l *Logger) ImportRecord(data map[string]any) (*record.Record, error) {
	rec, err := record.Import(data)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrRecordImport, "не удалось импортировать запись", err)
	}
	return rec, nil
}

// CallSinks передаёт запись sinks этого логгера в порядке добавления.
// Sink получает запись, только если её уровень не ниже порога sink'а.
func (l *Logger) CallSinks(rec *record.Record) {
	for _, s := range l.sinks {
		if sink.Accepts(s, rec) {
			l.writeSink(s, rec)
		}
	}
}

// Dispatch передаёт запись sinks логгера, затем, пока у текущего логгера
// включён propagate и есть родитель, — sinks родителя. Уровни предков
// повторно не проверяются: действуют только пороги их sinks.
func (l *Logger) Dispatch(rec *record.Record) {
	for a := l; a != nil; a = a.parent {
		a.CallSinks(rec)
		if !a.propagate {
			return
		}
	}
}

// Log записывает сообщение уровня lvl. Если уровень ниже эффективного,
// вызов ничего не делает и запись не создаётся.
func (l *Logger) Log(lvl level.Level, msg string, args ...any) {
	l.log(context.Background(), lvl, msg, args)
}

// LogContext работает как Log, но привязывает ctx к записи,
// чтобы процессоры могли извлечь из него данные (например trace id).
func (l *Logger) LogContext(ctx context.Context, lvl level.Level, msg string, args ...any) {
	l.log(ctx, lvl, msg, args)
}

// Logf записывает сообщение, отформатированное через fmt.Sprintf.
// Форматирование выполняется только для включённого уровня.
func (l *Logger) Logf(lvl level.Level, format string, args ...any) {
	l.logf(context.Background(), lvl, format, args)
}

// LogfContext работает как Logf с привязкой ctx к записи.
func (l *Logger) LogfContext(ctx context.Context, lvl level.Level, format string, args ...any) {
	l.logf(ctx, lvl, format, args)
}

func (l *Logger) logf(ctx context.Context, lvl level.Level, format string, args []any) {
	if !l.IsEnabledFor(lvl) {
		return
	}
	l.log(ctx, lvl, fmt.Sprintf(format, args...), nil)
}

// LogName записывает сообщение уровня, заданного символьным именем.
// Неизвестное имя трактуется как "не включено": запись не создаётся,
// сбой передаётся в Reporter.
func (l *Logger) LogName(name, msg string, args ...any) {
	lvl, err := level.Parse(name)
	if err != nil {
		l.report(apperrors.ErrLevelUnknown, "неизвестный уровень, запись отброшена", err)
		return
	}
	l.log(context.Background(), lvl, msg, args)
}

func (l *Logger) log(ctx context.Context, lvl level.Level, msg string, args []any) {
	if !l.IsEnabledFor(lvl) {
		return
	}

	rec := l.createRecord(ctx, lvl, msg, args)

	if p := l.ctx.proxy; p != nil {
		l.sendProxy(p, rec)
	}

	l.ctx.metrics.RecordDispatched(l.name, lvl)
	l.Dispatch(rec)
}

// runProcessor вызывает процессор, изолируя ошибку и panic.
func (l *Logger) runProcessor(p Processor, rec *record.Record) {
	defer func() {
		if r := recover(); r != nil {
			l.report(apperrors.ErrProcessorFailed, "panic в процессоре", fmt.Errorf("panic: %v", r))
		}
	}()
	if err := p.Process(l, rec); err != nil {
		l.report(apperrors.ErrProcessorFailed, "ошибка процессора", err)
	}
}

// writeSink вызывает sink, изолируя ошибку и panic.
// В отчёте указывается логгер, которому принадлежит sink.
func (l *Logger) writeSink(s sink.Sink, rec *record.Record) {
	defer func() {
		if r := recover(); r != nil {
			l.report(apperrors.ErrSinkWrite, "panic в sink", fmt.Errorf("panic: %v", r))
		}
	}()
	if err := s.Write(rec); err != nil {
		l.report(apperrors.ErrSinkWrite, "ошибка записи в sink", err)
	}
}

// sendProxy передаёт запись в proxy, изолируя ошибку и panic.
// Ошибка с кодом apperrors (например PROXY.DROPPED) передаётся как есть.
func (l *Logger) sendProxy(p Proxy, rec *record.Record) {
	defer func() {
		if r := recover(); r != nil {
			l.report(apperrors.ErrProxySend, "panic в proxy", fmt.Errorf("panic: %v", r))
		}
	}()
	err := p.SendRecord(rec)
	if err == nil {
		return
	}
	if apperrors.CodeOf(err) != "" {
		l.reportError(err)
		return
	}
	l.report(apperrors.ErrProxySend, "ошибка пересылки записи", err)
}

// report передаёт сбой в диагностический канал Context.
// panic самого Reporter'а не выходит за пределы вызова логгера.
func (l *Logger) report(code, msg string, cause error) {
	l.reportError(apperrors.NewAppError(code, msg, cause))
}

func (l *Logger) reportError(err error) {
	defer func() {
		_ = recover() //nolint:errcheck // диагностический канал недоступен, сообщить некуда
	}()
	l.ctx.reporter.Report(l.name, err)
}
