// Package apperrors содержит ошибки logtree с машиночитаемым кодом.
// Такие ошибки получает Reporter дерева логгеров и выводит CLI.
package apperrors

import (
	"errors"
	"fmt"
)

// Коды ошибок в формате CATEGORY.SPECIFIC.
const (
	// Category: CONFIG — ошибки загрузки и парсинга конфигурации.
	ErrConfigLoad     = "CONFIG.LOAD_FAILED"
	ErrConfigParse    = "CONFIG.PARSE_FAILED"
	ErrConfigValidate = "CONFIG.VALIDATION_FAILED"

	// Category: COMMAND — ошибки выполнения команд CLI.
	ErrCommandNotFound = "COMMAND.NOT_FOUND"
	ErrCommandExec     = "COMMAND.EXEC_FAILED"

	// Category: LEVEL — ошибки разрешения уровня логирования.
	ErrLevelUnknown = "LEVEL.UNKNOWN"

	// Category: PROCESSOR — сбой процессора записи (ошибка или panic).
	ErrProcessorFailed = "PROCESSOR.FAILED"

	// Category: SINK — сбой записи в sink (ошибка или panic).
	ErrSinkWrite = "SINK.WRITE_FAILED"

	// Category: PROXY — сбой пересылки записи через proxy.
	ErrProxySend    = "PROXY.SEND_FAILED"
	ErrProxyDropped = "PROXY.DROPPED"

	// Category: RECORD — ошибки импорта записей из другого процесса.
	ErrRecordImport = "RECORD.IMPORT_FAILED"
)

// CodeOf возвращает код AppError из цепочки ошибок или пустую строку.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// AppError — ошибка с кодом. Cause доступна через errors.Is/As.
//
// Message попадает в вывод CLI и в журнал и не должен содержать
// секретов: токенов proxy, DSN sink'ов.
type AppError struct {
	// Code — машиночитаемый код ошибки в формате CATEGORY.SPECIFIC.
	Code string `json:"code"`

	// Message — описание для человека.
	Message string `json:"message"`

	// Cause — исходная ошибка. В JSON не попадает.
	Cause error `json:"-"`
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает wrapped ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError создаёт AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
