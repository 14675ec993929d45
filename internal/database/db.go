// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the shared pool, set by ConnectDB.
var DB *pgxpool.Pool

// Execer is the subset of pgxpool.Pool and pgx.Tx used by the write helpers.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ConnectDB opens the pool and pings the server.
func ConnectDB(ctx context.Context, connStr string) error {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("db ping error: %w", err)
	}

	DB = pool
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id            UUID PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	players       TEXT[] NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL DEFAULT 'in_progress',
	totals        INT[],
	winner        TEXT,
	winner_score  INT,
	rounds_played INT NOT NULL DEFAULT 0,
	start_time    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS round_scores (
	game_id      UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	round_number INT NOT NULL,
	player_name  TEXT NOT NULL,
	bid          INT NOT NULL,
	tricks_taken INT NOT NULL,
	final_score  INT NOT NULL,
	closed_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (game_id, round_number, player_name)
);

CREATE INDEX IF NOT EXISTS games_owner_idx ON games (owner_id, status);
`

// EnsureSchema creates the tables if they are missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// WithTx runs f inside a transaction on DB.
func WithTx(ctx context.Context, f func(tx pgx.Tx) error) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, f)
}
