package db

import (
	"context"
	"fmt"
	"time"

	"campus-eats/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

// Init opens the shared pool and checks the server answers.
func Init(ctx context.Context, cfg config.DBConfig) error {
	pool, err := pgxpool.New(ctx, cfg.URL())
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	Pool = pool
	return nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
