package docstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultChannel is the LISTEN/NOTIFY channel used by PGFeed.
const DefaultChannel = "docstore_changes"

// PGFeed uses PostgreSQL LISTEN/NOTIFY. The payload is the collection name.
type PGFeed struct {
	pool    *pgxpool.Pool
	channel string
}

func NewPGFeed(pool *pgxpool.Pool, channel string) *PGFeed {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PGFeed{pool: pool, channel: channel}
}

func (f *PGFeed) Publish(ctx context.Context, collection string) error {
	if _, err := f.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, f.channel, collection); err != nil {
		return fmt.Errorf("notify %s: %w", f.channel, err)
	}
	return nil
}

func (f *PGFeed) Listen(ctx context.Context, fn func(ctx context.Context, collection string)) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", f.channel, err)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait notification: %w", err)
		}
		fn(ctx, n.Payload)
	}
}
