package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Pool bounds the connections the application holds open.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

func (p Pool) apply(db *sql.DB) {
	idle := p.MaxIdleConns
	if p.MaxOpenConns > 0 {
		idle = min(idle, p.MaxOpenConns)
	}

	db.SetMaxOpenConns(p.MaxOpenConns)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)
}

// New opens a pgx backed pool and waits up to ConnectTimeout for Postgres to
// answer.
func New(ctx context.Context, connStr string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := ping(ctx, db, pool); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func ping(ctx context.Context, db *sql.DB, pool Pool) error {
	pool.apply(db)

	if pool.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pool.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	return nil
}
