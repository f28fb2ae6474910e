// Package processors содержит готовые процессоры записей для
// logtree.Context и отдельных логгеров.
package processors

import (
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/record"
	"github.com/Kargones/logtree/internal/pkg/tracing"
)

// Имена полей, добавляемых процессорами.
const (
	FieldHostname = "hostname"
	FieldPID      = "pid"
	FieldRecordID = "record_id"
	FieldTraceID  = "trace_id"
	FieldSpanID   = "span_id"
)

// Redacted — значение, которым Redact заменяет скрытые поля.
const Redacted = "[REDACTED]"

// Static добавляет фиксированные поля. Уже заданные поля не перезаписываются.
func Static(fields map[string]any) logtree.Processor {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return logtree.ProcessorFunc(func(_ *logtree.Logger, rec *record.Record) error {
		for k, v := range copied {
			if _, ok := rec.Get(k); !ok {
				rec.Set(k, v)
			}
		}
		return nil
	})
}

// Hostname добавляет поле hostname. Имя хоста читается один раз;
// при ошибке используется "unknown".
func Hostname() logtree.Processor {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return Static(map[string]any{FieldHostname: host})
}

// PID добавляет идентификатор процесса.
func PID() logtree.Processor {
	return Static(map[string]any{FieldPID: os.Getpid()})
}

// RecordID добавляет уникальный идентификатор записи (UUID v4).
// Идентификатор сохраняется при пересылке, поэтому копии одной записи
// в разных процессах можно сопоставить.
func RecordID() logtree.Processor {
	return logtree.ProcessorFunc(func(_ *logtree.Logger, rec *record.Record) error {
		if _, ok := rec.Get(FieldRecordID); ok {
			return nil
		}
		id, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		rec.Set(FieldRecordID, id.String())
		return nil
	})
}

// TraceContext добавляет trace_id и span_id из context записи
// (см. Logger.LogContext). Без трейса в context запись не меняется.
func TraceContext() logtree.Processor {
	return logtree.ProcessorFunc(func(_ *logtree.Logger, rec *record.Record) error {
		traceID, spanID, ok := tracing.IDsFromContext(rec.Context())
		if !ok {
			return nil
		}
		rec.Set(FieldTraceID, traceID)
		if spanID != "" {
			rec.Set(FieldSpanID, spanID)
		}
		return nil
	})
}

// Redact заменяет значения полей с указанными именами (без учёта
// регистра) на Redacted. Вложенные map[string]any обходятся рекурсивно;
// изменённая вложенная map заменяется копией, исходная не трогается:
// она может быть общей для многих записей (см. Static).
func Redact(keys ...string) logtree.Processor {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	return logtree.ProcessorFunc(func(_ *logtree.Logger, rec *record.Record) error {
		for k, v := range rec.Fields {
			if _, ok := set[strings.ToLower(k)]; ok {
				rec.Fields[k] = Redacted
				continue
			}
			if nested, ok := v.(map[string]any); ok {
				if cleaned, changed := redactMap(nested, set); changed {
					rec.Fields[k] = cleaned
				}
			}
		}
		return nil
	})
}

// redactMap возвращает копию m со скрытыми значениями или саму m,
// если скрывать нечего.
func redactMap(m map[string]any, keys map[string]struct{}) (map[string]any, bool) {
	var out map[string]any
	for k, v := range m {
		var repl any
		if _, ok := keys[strings.ToLower(k)]; ok {
			repl = Redacted
		} else if nested, ok := v.(map[string]any); ok {
			cleaned, changed := redactMap(nested, keys)
			if !changed {
				continue
			}
			repl = cleaned
		} else {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(m))
			for k2, v2 := range m {
				out[k2] = v2
			}
		}
		out[k] = repl
	}
	if out == nil {
		return m, false
	}
	return out, true
}

// LoggerName добавляет поле с именем логгера, на котором сделан вызов.
// Полезно для sinks, форматы которых не выводят имя логгера.
func LoggerName(field string) logtree.Processor {
	return logtree.ProcessorFunc(func(l *logtree.Logger, rec *record.Record) error {
		rec.Set(field, l.Name())
		return nil
	})
}
