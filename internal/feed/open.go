package feed

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Options selects and configures a feed driver.
type Options struct {
	Driver        string // memory, redis or postgres
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PostgresDSN   string
}

// Open builds the feed named by opts.Driver.
func Open(ctx context.Context, opts Options, logger *log.Logger) (Feed, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis at %s: %w", opts.RedisAddr, err)
		}
		return &ownedRedis{Redis: NewRedis(rdb, logger), rdb: rdb}, nil
	case "postgres":
		return NewPostgres(ctx, opts.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unknown feed driver %q", opts.Driver)
	}
}

// ownedRedis closes the client Open created for it.
type ownedRedis struct {
	*Redis
	rdb *redis.Client
}

func (o *ownedRedis) Close() error { return o.rdb.Close() }
