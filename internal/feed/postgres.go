package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joestump/frequency/internal/metrics"
)

// Postgres carries events over LISTEN/NOTIFY on the application database,
// which removes the need for a separate broker when running on PostgreSQL.
// Each subscription holds one pooled connection for its lifetime.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres opens a dedicated pgx pool for the feed.
func NewPostgres(ctx context.Context, dsn string, logger *log.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel(e.Table), string(payload)); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	metrics.FeedEventsTotal.WithLabelValues(e.Table).Inc()
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, tables ...string) (<-chan Event, error) {
	if len(tables) == 0 {
		tables = AllTables()
	}
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	for _, t := range tables {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel(t)}.Sanitize()); err != nil {
			conn.Release()
			return nil, fmt.Errorf("listen %s: %w", t, err)
		}
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() {
			// The connection returns to the pool, so drop its subscriptions first.
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
		}()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					p.logger.Error("feed listener stopped", "err", err)
				}
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(n.Payload), &e); err != nil {
				p.logger.Warn("dropping malformed feed event", "channel", n.Channel, "err", err)
				continue
			}
			select {
			case out <- e:
			default:
				metrics.FeedDroppedTotal.WithLabelValues(e.Table).Inc()
			}
		}
	}()
	return out, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
