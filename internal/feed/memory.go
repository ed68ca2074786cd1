package feed

import (
	"context"
	"sync"

	"github.com/joestump/frequency/internal/metrics"
)

// Memory is an in-process feed. It only reaches subscribers in the same
// process, which is enough for a single instance.
type Memory struct {
	mu     sync.RWMutex
	subs   map[*memorySub]struct{}
	closed bool
}

type memorySub struct {
	tables map[string]bool
	ch     chan Event
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[*memorySub]struct{})}
}

func (m *Memory) Publish(_ context.Context, e Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	metrics.FeedEventsTotal.WithLabelValues(e.Table).Inc()
	for s := range m.subs {
		if !wants(s.tables, e.Table) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			metrics.FeedDroppedTotal.WithLabelValues(e.Table).Inc()
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, tables ...string) (<-chan Event, error) {
	s := &memorySub{tables: tableSet(tables), ch: make(chan Event, subscriberBuffer)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.subs[s] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.remove(s)
	}()
	return s.ch, nil
}

func (m *Memory) remove(s *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[s]; ok {
		delete(m.subs, s)
		close(s.ch)
	}
}

// Close closes every open subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for s := range m.subs {
		delete(m.subs, s)
		close(s.ch)
	}
	return nil
}
