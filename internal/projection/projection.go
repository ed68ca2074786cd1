// Package projection holds the per-user derived views (friend lists,
// playlist lists) that are rebuilt from the store on every change.
//
// A Cache keeps the last good value per key so a failed refresh leaves the
// previous projection in place. Watch drives refreshes from the change feed.
package projection

import (
	"context"
	"sync"

	"github.com/joestump/frequency/internal/feed"
)

// Cache remembers the last successful load per key.
type Cache[T any] struct {
	mu   sync.Mutex
	last map[string]T
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{last: make(map[string]T)}
}

// Load calls fetch and caches the result under key. When fetch fails the
// last good value is returned together with the error; ok reports whether
// such a value existed.
func (c *Cache[T]) Load(ctx context.Context, key string, fetch func(context.Context) (T, error)) (v T, ok bool, err error) {
	v, err = fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.last[key] = v
		return v, true, nil
	}
	prev, ok := c.last[key]
	return prev, ok, err
}

// Forget drops the cached value for key. A later failed Load for key
// reports no previous value.
func (c *Cache[T]) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, key)
}

// Watch calls load and hands the result to fn once immediately and again
// after every event on tables that concerns self, until ctx ends. Each
// refresh is a full reload; events are not applied incrementally. Watch
// blocks and returns ctx.Err() once ctx is done, or the subscribe error.
func Watch[T any](ctx context.Context, f feed.Feed, self string, tables []string, load func(context.Context) (T, error), fn func(T, error)) error {
	events, err := f.Subscribe(ctx, tables...)
	if err != nil {
		return err
	}

	fn(load(ctx))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if !e.Concerns(self) {
				continue
			}
			// Collapse a burst of events into one reload.
			drain(events)
			fn(load(ctx))
		}
	}
}

func drain(events <-chan feed.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
