package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/config"
)

// NewRedis creates the client used for login sessions and presence. It
// parses the URL and waits for the server like NewMariaDB does.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := waitReady("redis", ping); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
