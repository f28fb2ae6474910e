// Package app собирает дерево логгеров logtree из конфигурации.
package app

import (
	"errors"
	"fmt"

	"github.com/Kargones/logtree/internal/config"
	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/processors"
	"github.com/Kargones/logtree/internal/pkg/sink"
)

// LoggerNameField — поле, которое добавляет процессор logger_name.
const LoggerNameField = "logger"

// SinkFactory создаёт sink по конфигурации. В тестах подменяется,
// чтобы не открывать файлы и соединения с БД.
type SinkFactory func(cfg sink.Config) (sink.Sink, error)

// Deps — внешние зависимости дерева. Нулевые поля допустимы.
type Deps struct {
	// Reporter получает сбои процессоров, sinks и proxy.
	Reporter logtree.Reporter

	// Metrics учитывает принятые записи.
	Metrics logtree.Metrics

	// Proxy пересылает записи за пределы процесса.
	Proxy logtree.Proxy

	// NewSink создаёт sinks. nil — sink.New.
	NewSink SinkFactory
}

// BuildHierarchy строит иерархию: Context с процессорами по умолчанию,
// корень с уровнем rootLevel и его sinks, затем логгеры в порядке
// имён (предок раньше потомка).
//
// Sink с одним именем создаётся один раз и разделяется логгерами.
// Создаются только sinks, на которые есть ссылки. При ошибке
// уже созданные sinks закрываются.
func BuildHierarchy(cfg config.TreeConfig, deps Deps) (*logtree.Hierarchy, error) {
	rootLevel, err := level.Parse(cfg.RootLevel)
	if err != nil {
		return nil, fmt.Errorf("tree.rootLevel: %w", err)
	}

	opts := []logtree.Option{
		logtree.WithReporter(deps.Reporter),
		logtree.WithMetrics(deps.Metrics),
	}
	if deps.Proxy != nil {
		opts = append(opts, logtree.WithProxy(deps.Proxy))
	}
	ctx := logtree.NewContext(opts...)

	procs, err := contextProcessors(cfg)
	if err != nil {
		return nil, err
	}
	for _, p := range procs {
		ctx.AddDefaultProcessor(p)
	}

	h := logtree.NewHierarchy(ctx, rootLevel)
	b := &builder{cfg: cfg, newSink: deps.NewSink, built: make(map[string]sink.Sink)}
	if b.newSink == nil {
		b.newSink = sink.New
	}

	if err := b.attachSinks(h.Root(), cfg.RootSinks); err != nil {
		return nil, errors.Join(err, h.Close())
	}

	for _, name := range cfg.LoggerNames() {
		lc := cfg.Loggers[name]
		l := h.Logger(name)
		if err := l.SetLevelName(lc.Level); err != nil {
			return nil, errors.Join(fmt.Errorf("tree.loggers.%s.level: %w", name, err), h.Close())
		}
		l.SetPropagate(lc.ShouldPropagate())
		if err := b.attachSinks(l, lc.Sinks); err != nil {
			return nil, errors.Join(fmt.Errorf("tree.loggers.%s: %w", name, err), h.Close())
		}
		for _, pn := range lc.Processors {
			p, err := processorByName(pn)
			if err != nil {
				return nil, errors.Join(fmt.Errorf("tree.loggers.%s: %w", name, err), h.Close())
			}
			l.AddProcessor(p)
		}
	}

	return h, nil
}

// contextProcessors: static поля, затем именованные процессоры,
// затем маскирование, чтобы оно видело все добавленные поля.
func contextProcessors(cfg config.TreeConfig) ([]logtree.Processor, error) {
	var out []logtree.Processor
	if len(cfg.Static) > 0 {
		fields := make(map[string]any, len(cfg.Static))
		for k, v := range cfg.Static {
			fields[k] = v
		}
		out = append(out, processors.Static(fields))
	}
	for _, name := range cfg.Processors {
		p, err := processorByName(name)
		if err != nil {
			return nil, fmt.Errorf("tree.processors: %w", err)
		}
		out = append(out, p)
	}
	if len(cfg.Redact) > 0 {
		out = append(out, processors.Redact(cfg.Redact...))
	}
	return out, nil
}

func processorByName(name string) (logtree.Processor, error) {
	switch name {
	case config.ProcessorHostname:
		return processors.Hostname(), nil
	case config.ProcessorPID:
		return processors.PID(), nil
	case config.ProcessorRecordID:
		return processors.RecordID(), nil
	case config.ProcessorTraceContext:
		return processors.TraceContext(), nil
	case config.ProcessorLoggerName:
		return processors.LoggerName(LoggerNameField), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProcessor, name)
	}
}

type builder struct {
	cfg     config.TreeConfig
	newSink SinkFactory
	built   map[string]sink.Sink
}

func (b *builder) attachSinks(l *logtree.Logger, names []string) error {
	for _, name := range names {
		s, err := b.sink(name)
		if err != nil {
			return err
		}
		l.AddSink(s)
	}
	return nil
}

func (b *builder) sink(name string) (sink.Sink, error) {
	if s, ok := b.built[name]; ok {
		return s, nil
	}
	sc, ok := b.cfg.Sinks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownSink, name)
	}
	scfg, err := sc.ToSink()
	if err != nil {
		return nil, fmt.Errorf("sink %q: %w", name, err)
	}
	s, err := b.newSink(scfg)
	if err != nil {
		return nil, fmt.Errorf("sink %q: %w", name, err)
	}
	b.built[name] = s
	return s, nil
}
