// Package sqlstore persists expenses through database/sql, against
// PostgreSQL (pgx) or a local SQLite file (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config describes a database connection.
type Config struct {
	Driver          string
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// Open connects to the configured database and returns a handle ready for
// New. PostgreSQL goes through a pgx pool wrapped as *sql.DB.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*sql.DB, Dialect, error) {
	log.Info().Str("driver", cfg.Driver).Msg("connecting to database")

	switch cfg.Driver {
	case DriverPostgres:
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, Dialect{}, fmt.Errorf("Open: parse DSN: %w", err)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "zenspend"

		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			return nil, Dialect{}, fmt.Errorf("Open: connect: %w", err)
		}
		if err := pool.Ping(dialCtx); err != nil {
			pool.Close()
			return nil, Dialect{}, fmt.Errorf("Open: ping: %w", err)
		}
		log.Info().Msg("connected to postgres")
		return stdlib.OpenDBFromPool(pool), Postgres, nil

	case DriverSQLite:
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, Dialect{}, fmt.Errorf("Open: %w", err)
		}
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, Dialect{}, fmt.Errorf("Open: ping: %w", err)
		}
		log.Info().Str("dsn", cfg.DSN).Msg("opened sqlite database")
		return db, SQLite, nil

	default:
		return nil, Dialect{}, fmt.Errorf("Open: unsupported driver %q", cfg.Driver)
	}
}
