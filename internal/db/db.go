package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the part of *pgxpool.Pool the bot uses.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type DB struct {
	pool Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// RunMigrations runs database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id BIGINT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS pairing_cycles (
			id UUID PRIMARY KEY,
			guild_id BIGINT NOT NULL,
			participant_count INT NOT NULL,
			leftover_id TEXT,
			announced_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pairing_cycles_guild ON pairing_cycles(guild_id, announced_at DESC);
		CREATE TABLE IF NOT EXISTS pairing_teams (
			cycle_id UUID NOT NULL REFERENCES pairing_cycles(id) ON DELETE CASCADE,
			first_id TEXT NOT NULL,
			second_id TEXT NOT NULL,
			rematch BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (cycle_id, first_id, second_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
