package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter выводит Result YAML документом. Имена полей совпадают
// с JSON: Result сначала кодируется в JSON, затем в YAML (ключи
// объектов сортируются).
type YAMLWriter struct{}

// NewYAMLWriter создаёт YAMLWriter.
func NewYAMLWriter() *YAMLWriter {
	return &YAMLWriter{}
}

// Write реализует Writer.
func (y *YAMLWriter) Write(w io.Writer, result *Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("output: кодирование результата: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("output: разбор результата: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("output: кодирование YAML: %w", err)
	}
	return enc.Close()
}
