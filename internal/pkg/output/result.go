// Package output форматирует результаты команд logtree в JSON или
// человекочитаемый текст (LT_OUTPUT_FORMAT).
package output

import "io"

// StatusSuccess и StatusError — возможные значения поля Status в Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIVersion — версия формата Result.
const APIVersion = "v1"

// Result — результат выполнения команды.
type Result struct {
	// Status — "success" или "error".
	Status string `json:"status"`

	// Command — имя выполненной команды.
	Command string `json:"command"`

	// Data — данные команды (LevelsData, EmitData, ...).
	Data any `json:"data,omitempty"`

	// Error — информация об ошибке (только при status="error").
	Error *ErrorInfo `json:"error,omitempty"`

	// Metadata — метаданные выполнения.
	Metadata *Metadata `json:"metadata,omitempty"`
}

// ErrorInfo содержит информацию об ошибке.
// Code — код apperrors (например, "CONFIG.LOAD_FAILED").
// Message НЕ ДОЛЖЕН содержать секреты.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata содержит метаданные выполнения команды.
type Metadata struct {
	// DurationMs — время выполнения в миллисекундах.
	DurationMs int64 `json:"duration_ms"`

	// TraceID — идентификатор трассировки запуска.
	TraceID string `json:"trace_id,omitempty"`

	// APIVersion — версия формата.
	APIVersion string `json:"api_version"`
}

// TextRenderer — данные, которые умеют выводить себя текстом.
// TextWriter использует его вместо JSON для поля Data.
type TextRenderer interface {
	WriteText(w io.Writer) error
}
