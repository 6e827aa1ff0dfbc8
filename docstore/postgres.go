package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres keeps documents in the documents table (see migrations). Subscribers are local
// to the process; writes from any process reach them through the Feed once Run is started.
// Without a feed, only local writes refresh subscribers.
type Postgres struct {
	pool *pgxpool.Pool
	feed Feed
	log  *zap.Logger

	mu   sync.Mutex
	subs subscribers
}

func NewPostgres(pool *pgxpool.Pool, feed Feed, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{
		pool: pool,
		feed: feed,
		log:  log.Named("docstore"),
		subs: newSubscribers(),
	}
}

// Run listens on the feed and refreshes local subscribers until ctx is done.
func (p *Postgres) Run(ctx context.Context) error {
	if p.feed == nil {
		<-ctx.Done()
		return nil
	}
	err := p.feed.Listen(ctx, func(ctx context.Context, collection string) {
		p.refresh(ctx, collection)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Subscribe registers before reading, so a write that lands while the first query runs is
// still delivered by the refresh it triggers.
func (p *Postgres) Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (func(), error) {
	sub := newSubscriber(onSnapshot, onError)
	p.mu.Lock()
	id := p.subs.add(collection, sub)
	version := p.subs.bump(collection)
	p.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			sub.cancel()
			p.mu.Lock()
			p.subs.remove(collection, id)
			p.mu.Unlock()
		})
	}

	docs, err := p.Query(ctx, collection)
	if err != nil {
		unsub()
		return nil, err
	}
	sub.deliver(version, docs)
	return unsub, nil
}

// refresh re-reads collection for its subscribers. The version is taken before the
// query starts, so the highest version delivered always reflects every committed write.
func (p *Postgres) refresh(ctx context.Context, collection string) {
	p.mu.Lock()
	subs := p.subs.list(collection)
	version := p.subs.bump(collection)
	p.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	docs, err := p.Query(ctx, collection)
	for _, s := range subs {
		if err != nil {
			s.fail(err)
			continue
		}
		s.deliver(version, docs)
	}
}

// changed announces a write. Falls back to a local refresh when there is no feed or
// publishing fails.
func (p *Postgres) changed(ctx context.Context, collection string) {
	if p.feed != nil {
		err := p.feed.Publish(ctx, collection)
		if err == nil {
			return
		}
		p.log.Warn("publish change", zap.String("collection", collection), zap.Error(err))
	}
	p.refresh(ctx, collection)
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Data: data}, nil
}

func (p *Postgres) Add(ctx context.Context, collection string, data any) (string, error) {
	body, err := encode(data)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`,
		collection, id, string(body),
	)
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	p.changed(ctx, collection)
	return id, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data any) error {
	body, err := encode(data)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, string(body),
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	p.changed(ctx, collection)
	return nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, string(b),
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	p.changed(ctx, collection)
	return nil
}

func (p *Postgres) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	q := `SELECT id, data FROM documents WHERE collection = $1`
	args := []any{collection}
	for _, f := range filters {
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal filter %s: %w", f.Field, err)
		}
		args = append(args, f.Field, string(v))
		q += fmt.Sprintf(` AND data -> $%d::text = $%d::jsonb`, len(args)-1, len(args))
	}
	q += ` ORDER BY created_at, id`

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, Document{ID: id, Data: data})
	}
	return out, rows.Err()
}
