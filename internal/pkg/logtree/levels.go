package logtree

import (
	"context"

	"github.com/Kargones/logtree/internal/pkg/level"
)

// Trace записывает сообщение уровня TRACE.
func (l *Logger) Trace(msg string, args ...any) {
	l.log(context.Background(), level.Trace, msg, args)
}

// Debug записывает сообщение уровня DEBUG.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), level.Debug, msg, args)
}

// Info записывает сообщение уровня INFO.
func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), level.Info, msg, args)
}

// Warn записывает сообщение уровня WARN.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(context.Background(), level.Warn, msg, args)
}

// Error записывает сообщение уровня ERROR.
func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), level.Error, msg, args)
}

// Critical записывает сообщение уровня CRITICAL.
func (l *Logger) Critical(msg string, args ...any) {
	l.log(context.Background(), level.Critical, msg, args)
}

// InfoContext записывает сообщение уровня INFO с привязкой ctx.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, level.Info, msg, args)
}

// ErrorContext записывает сообщение уровня ERROR с привязкой ctx.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, level.Error, msg, args)
}

// Debugf записывает отформатированное сообщение уровня DEBUG.
func (l *Logger) Debugf(format string, args ...any) {
	l.logf(context.Background(), level.Debug, format, args)
}

// Infof записывает отформатированное сообщение уровня INFO.
func (l *Logger) Infof(format string, args ...any) {
	l.logf(context.Background(), level.Info, format, args)
}

// Warnf записывает отформатированное сообщение уровня WARN.
func (l *Logger) Warnf(format string, args ...any) {
	l.logf(context.Background(), level.Warn, format, args)
}

// Errorf записывает отформатированное сообщение уровня ERROR.
func (l *Logger) Errorf(format string, args ...any) {
	l.logf(context.Background(), level.Error, format, args)
}
