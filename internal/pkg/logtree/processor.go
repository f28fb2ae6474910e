package logtree

import "github.com/Kargones/logtree/internal/pkg/record"

// Processor обогащает запись перед диспетчеризацией: добавляет или
// меняет поля на месте. Возвращённое значение, кроме ошибки, не используется.
//
// Контракт: и процессоры Context, и процессоры логгера получают
// логгер, на котором был сделан вызов (а не тот, которому принадлежит
// процессор). Ошибка или panic процессора изолируются: они передаются
// в Reporter, остальные процессоры продолжают работу.
type Processor interface {
	Process(l *Logger, rec *record.Record) error
}

// ProcessorFunc адаптирует функцию к интерфейсу Processor.
type ProcessorFunc func(l *Logger, rec *record.Record) error

// Process реализует Processor.
func (f ProcessorFunc) Process(l *Logger, rec *record.Record) error {
	return f(l, rec)
}
