package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/joestump/frequency/internal/metrics"
)

// ChannelPrefix namespaces the per-table channel names on shared brokers.
const ChannelPrefix = "frequency.feed."

// Channel returns the broker channel carrying events for table.
func Channel(table string) string {
	return ChannelPrefix + table
}

// Redis fans events out over Redis pub/sub, one channel per table, so every
// instance behind a load balancer sees every change.
type Redis struct {
	rdb    *redis.Client
	logger *log.Logger
}

// NewRedis wraps rdb. The caller keeps ownership of the client.
func NewRedis(rdb *redis.Client, logger *log.Logger) *Redis {
	return &Redis{rdb: rdb, logger: logger}
}

func (r *Redis) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.rdb.Publish(ctx, Channel(e.Table), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	metrics.FeedEventsTotal.WithLabelValues(e.Table).Inc()
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, tables ...string) (<-chan Event, error) {
	if len(tables) == 0 {
		tables = AllTables()
	}
	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = Channel(t)
	}

	ps := r.rdb.Subscribe(ctx, channels...)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					r.logger.Warn("dropping malformed feed event", "channel", msg.Channel, "err", err)
					continue
				}
				select {
				case out <- e:
				default:
					metrics.FeedDroppedTotal.WithLabelValues(e.Table).Inc()
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the Redis client belongs to the caller.
func (r *Redis) Close() error { return nil }
