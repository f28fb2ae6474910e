package logging

import (
	"context"
	"log/slog"
)

// SlogAdapter реализует Logger поверх *slog.Logger.
type SlogAdapter struct {
	logger    *slog.Logger
	component string
}

// NewSlogAdapter оборачивает logger. При nil используется slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (s *SlogAdapter) log(lvl slog.Level, msg string, args []any) {
	ctx := context.Background()
	if !s.logger.Enabled(ctx, lvl) {
		return
	}
	if s.component != "" {
		args = append([]any{ComponentKey, s.component}, args...)
	}
	s.logger.Log(ctx, lvl, msg, args...)
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.log(slog.LevelDebug, msg, args) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.log(slog.LevelInfo, msg, args) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.log(slog.LevelWarn, msg, args) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.log(slog.LevelError, msg, args) }

// With возвращает новый адаптер с добавленными атрибутами.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...), component: s.component}
}

// Component возвращает адаптер подсистемы name. Имена вложенных
// подсистем соединяются точкой, как имена логгеров дерева:
// Component("serve").Component("receiver") пишет component=serve.receiver.
// Атрибут добавляется при записи, поэтому не дублируется.
func (s *SlogAdapter) Component(name string) Logger {
	full := name
	if s.component != "" {
		full = s.component + "." + name
	}
	return &SlogAdapter{logger: s.logger, component: full}
}
