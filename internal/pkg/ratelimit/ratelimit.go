// Package ratelimit ограничивает частоту повторяющихся событий по ключу:
// диагностики дерева и уведомлений webhook/telegram sinks.
package ratelimit

import (
	"sync"
	"time"
)

// cleanupThreshold — число ключей, после которого устаревшие записи
// удаляются при очередном Allow.
const cleanupThreshold = 100

// Limiter пропускает не более одного события на ключ за окно window
// и считает подавленные события. Безопасен для конкурентного использования.
type Limiter struct {
	mu         sync.Mutex
	window     time.Duration
	last       map[string]time.Time
	suppressed map[string]int
	now        func() time.Time
}

// New создаёт Limiter. window <= 0 отключает ограничение.
func New(window time.Duration) *Limiter {
	return &Limiter{
		window:     window,
		last:       make(map[string]time.Time),
		suppressed: make(map[string]int),
		now:        time.Now,
	}
}

// Allow сообщает, можно ли пропустить событие с ключом key. При true
// возвращает число событий, подавленных с прошлого пропуска, и обнуляет его.
func (r *Limiter) Allow(key string) (bool, int) {
	if r.window <= 0 {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if len(r.last) > cleanupThreshold {
		r.cleanupLocked(now)
	}

	if last, ok := r.last[key]; ok && now.Sub(last) < r.window {
		r.suppressed[key]++
		return false, 0
	}
	r.last[key] = now
	n := r.suppressed[key]
	delete(r.suppressed, key)
	return true, n
}

// cleanupLocked удаляет ключи с истёкшим окном и без подавленных событий.
func (r *Limiter) cleanupLocked(now time.Time) {
	for key, last := range r.last {
		if now.Sub(last) >= r.window && r.suppressed[key] == 0 {
			delete(r.last, key)
		}
	}
}

// SetNowFunc подменяет источник времени.
func (r *Limiter) SetNowFunc(fn func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = fn
}
