// Package database provides connection setup for MariaDB and Redis and runs
// schema migrations. Connections are created once at startup and shared
// through dependency injection.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver -- imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/config"
)

// connectAttempts bounds how long startup waits for a backing service.
const connectAttempts = 10

// NewMariaDB opens the availability/session store pool and waits for the
// server to answer a ping. MariaDB is often still booting when the app
// container starts, so pings are retried with exponential backoff.
func NewMariaDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitReady("mariadb", db.PingContext); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// waitReady calls ping until it succeeds or connectAttempts is exhausted.
func waitReady(name string, ping func(context.Context) error) error {
	backoff := time.Second
	var err error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}

		slog.Warn(name+" not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", connectAttempts),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)
		time.Sleep(backoff)
		backoff = min(backoff*2, 30*time.Second)
	}

	return fmt.Errorf("pinging %s after %d attempts: %w", name, connectAttempts, err)
}
