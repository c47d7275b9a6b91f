package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Check pings both stores once. Used by the /healthz endpoint; a nil db or
// rdb is skipped.
func Check(ctx context.Context, db *sql.DB, rdb *redis.Client) error {
	if db != nil {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("mariadb: %w", err)
		}
	}
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
