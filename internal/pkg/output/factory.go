package output

import "strings"

// Форматы вывода (LT_OUTPUT_FORMAT).
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatYAML = "yaml"
)

// NewWriter создаёт Writer по формату (регистр не важен).
// Неизвестный формат выводится текстом: результат команды важнее
// опечатки в переменной окружения.
func NewWriter(format string) Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return NewJSONWriter()
	case FormatYAML:
		return NewYAMLWriter()
	}
	return NewTextWriter()
}
