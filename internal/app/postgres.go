package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guttosm/nsepulse/config"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

const pingTimeout = 5 * time.Second

// InitPostgres opens the connection pool described by cfg.Postgres and
// verifies it with a ping before returning it.
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	dsn := cfg.Postgres.URL
	if dsn == "" {
		dsn = cfg.Postgres.DSN()
	}

	db, err := sqlOpener("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// postgresOpener is an indirection used by InitializeApp; overridden in tests to avoid real connections.
var postgresOpener = InitPostgres
