// Package tracing отвечает за корреляцию записей с трейсами: генерацию
// внутреннего trace ID, его хранение в context и инициализацию
// OpenTelemetry TracerProvider.
//
// Формат trace ID совместим с W3C Trace Context: 32 hex-символа (16 байт).
package tracing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var fallbackCounter atomic.Uint64

// GenerateTraceID возвращает случайный trace ID из crypto/rand.
// Если источник случайности недоступен, ID строится из времени и счётчика.
func GenerateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fallbackTraceID()
	}
	return hex.EncodeToString(b)
}

// fallbackTraceID всегда даёт ровно 32 hex-символа: %016x для двух uint64.
func fallbackTraceID() string {
	n := fallbackCounter.Add(1)
	return fmt.Sprintf("%016x%016x", uint64(time.Now().UnixNano()), n)
}
