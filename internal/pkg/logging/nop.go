package logging

// NopLogger отбрасывает все сообщения. Используется, когда журнал
// самодиагностики не передан (nil) в Reporter, proxy или Receiver.
type NopLogger struct{}

// NewNopLogger создаёт NopLogger.
func NewNopLogger() Logger {
	return NopLogger{}
}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

func (n NopLogger) With(...any) Logger      { return n }
func (n NopLogger) Component(string) Logger { return n }

// OrNop возвращает l или NopLogger, если l == nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
