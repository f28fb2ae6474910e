// Package sinktest содержит тестовые реализации sink.Sink.
package sinktest

import (
	"sync"

	"github.com/Kargones/logtree/internal/pkg/level"
	"github.com/Kargones/logtree/internal/pkg/record"
)

// Recorder — sink, запоминающий все полученные записи.
// Поля Err и Panic позволяют имитировать сбой записи.
type Recorder struct {
	// Min — порог sink'а.
	Min level.Level

	// Err возвращается из Write, если не nil.
	Err error

	// Panic вызывает panic с этим значением в Write, если не nil.
	Panic any

	mu      sync.Mutex
	records []*record.Record
}

// NewRecorder создаёт Recorder с порогом min.
func NewRecorder(min level.Level) *Recorder {
	return &Recorder{Min: min}
}

// Level реализует sink.Sink.
func (r *Recorder) Level() level.Level {
	return r.Min
}

// Write реализует sink.Sink. Запись запоминается даже если затем
// возвращается ошибка или вызывается panic.
func (r *Recorder) Write(rec *record.Record) error {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	if r.Panic != nil {
		panic(r.Panic)
	}
	return r.Err
}

// Records возвращает копию списка полученных записей.
func (r *Recorder) Records() []*record.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*record.Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len возвращает количество полученных записей.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Messages возвращает сообщения полученных записей по порядку.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Message
	}
	return out
}

// Reset очищает список записей.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
