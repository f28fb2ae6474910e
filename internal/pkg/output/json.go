package output

import (
	"encoding/json"
	"io"
)

// Writer выводит Result команды в w.
type Writer interface {
	Write(w io.Writer, result *Result) error
}

// JSONWriter выводит Result одним JSON документом с отступами.
// HTML-символы в сообщениях логов не экранируются.
type JSONWriter struct{}

// NewJSONWriter создаёт JSONWriter.
func NewJSONWriter() *JSONWriter {
	return &JSONWriter{}
}

// Write реализует Writer.
func (j *JSONWriter) Write(w io.Writer, result *Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
