package proxy

import (
	"context"
	"sync"

	"github.com/Kargones/logtree/internal/pkg/apperrors"
	"github.com/Kargones/logtree/internal/pkg/logtree"
	"github.com/Kargones/logtree/internal/pkg/metrics"
	"github.com/Kargones/logtree/internal/pkg/record"
)

// ChannelProxy передаёт записи в буферизованный канал внутри процесса,
// например в отдельную иерархию с другими sinks. SendRecord не
// блокируется: при заполненном буфере запись отбрасывается.
type ChannelProxy struct {
	ch      chan *record.Record
	metrics metrics.Collector

	mu     sync.RWMutex
	closed bool
}

var _ logtree.Proxy = (*ChannelProxy)(nil)

// NewChannelProxy создаёт proxy с буфером size (не меньше 1).
func NewChannelProxy(size int, collector metrics.Collector) *ChannelProxy {
	if size < 1 {
		size = 1
	}
	if collector == nil {
		collector = metrics.NewNopCollector()
	}
	return &ChannelProxy{
		ch:      make(chan *record.Record, size),
		metrics: collector,
	}
}

// SendRecord реализует logtree.Proxy.
func (p *ChannelProxy) SendRecord(rec *record.Record) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.RecordDropped(dropClosed)
		return apperrors.NewAppError(apperrors.ErrProxyDropped, "proxy закрыт, запись отброшена", ErrClosed)
	}

	select {
	case p.ch <- rec:
		return nil
	default:
		p.metrics.RecordDropped(dropQueueFull)
		return apperrors.NewAppError(apperrors.ErrProxyDropped, "канал proxy заполнен, запись отброшена", ErrQueueFull)
	}
}

// Records возвращает канал для чтения. Канал закрывается в Close.
func (p *ChannelProxy) Records() <-chan *record.Record {
	return p.ch
}

// Close прекращает приём записей и закрывает канал. Повторный вызов
// ничего не делает.
func (p *ChannelProxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// Forward читает записи и диспетчеризует их в target по имени записи,
// пока канал не закрыт или ctx не отменён. Процессоры и уровни
// логгеров target не применяются, действуют только пороги sinks.
func (p *ChannelProxy) Forward(ctx context.Context, target *logtree.Hierarchy) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-p.ch:
			if !ok {
				return nil
			}
			target.Nearest(rec.Name).Dispatch(rec)
		}
	}
}
