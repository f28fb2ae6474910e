// Package logging — операционный журнал самого logtree: ошибки sinks,
// процессоров и proxy, старт и остановка команд CLI.
//
// Этот журнал не является частью дерева логгеров и никогда не пишет
// в его sinks, поэтому сбой sink'а не может рекурсивно вызвать сам себя.
package logging

// Logger — интерфейс структурированного журнала с key-value атрибутами:
//
//	logger.Info("receiver запущен", "addr", addr)
//
// Журнал пишет в stderr или в файл, но не в stdout: stdout занят
// выводом команд CLI.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With возвращает Logger с атрибутами, добавляемыми к каждой записи.
	With(args ...any) Logger

	// Component возвращает Logger подсистемы (атрибут ComponentKey).
	Component(name string) Logger
}

// ComponentKey — атрибут журнала с именем подсистемы logtree.
const ComponentKey = "component"
