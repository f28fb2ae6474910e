package sink

import (
	"log/slog"

	"github.com/Kargones/logtree/internal/pkg/record"
)

// LoggerKey — имя атрибута slog с именем логгера.
const LoggerKey = "logger"

// SlogSink передаёт записи в slog.Handler. Позволяет использовать
// любой обработчик экосистемы slog как sink дерева логгеров.
type SlogSink struct {
	Threshold
	handler slog.Handler
}

// Compile-time проверка реализации интерфейса
var _ Sink = (*SlogSink)(nil)

// NewSlogSink создаёт SlogSink. Из опций учитывается только WithLevel.
func NewSlogSink(h slog.Handler, opts ...Option) (*SlogSink, error) {
	if h == nil {
		return nil, ErrNilWriter
	}
	o := buildOptions(opts)
	return &SlogSink{Threshold: Threshold{min: o.level}, handler: h}, nil
}

// Write реализует Sink. Записи, отклонённые handler.Enabled, пропускаются.
func (s *SlogSink) Write(rec *record.Record) error {
	ctx := rec.Context()
	lvl := rec.Level.ToSlog()
	if !s.handler.Enabled(ctx, lvl) {
		return nil
	}

	r := slog.NewRecord(rec.Timestamp, lvl, rec.Text(), 0)
	if rec.Name != "" {
		r.AddAttrs(slog.String(LoggerKey, rec.Name))
	}
	for _, k := range sortedKeys(rec.Fields) {
		r.AddAttrs(slog.Any(k, rec.Fields[k]))
	}
	return s.handler.Handle(ctx, r)
}
