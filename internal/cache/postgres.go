
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the shared-database Store backend, for deployments where
// several hosts want to reuse one warm cache.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("cache dsn parse: %w", err)
	}
	if cfg.MaxConns <= 0 || cfg.MaxConns > 4 {
		cfg.MaxConns = 4
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cache connect: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_cache (
			key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			stored_at BIGINT NOT NULL
		)`)
	return err
}

func (p *Postgres) Get(ctx context.Context, key string) (Entry, bool, error) {
	var payload string
	var storedAt int64
	err := p.pool.QueryRow(ctx,
		`SELECT payload, stored_at FROM price_cache WHERE key=$1`, key,
	).Scan(&payload, &storedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var pl Payload
	if err := json.Unmarshal([]byte(payload), &pl); err != nil {
		_ = p.Delete(ctx, key)
		return Entry{}, false, nil
	}
	return Entry{Payload: pl, StoredAt: time.Unix(storedAt, 0)}, true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, e Entry) error {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO price_cache(key, payload, stored_at) VALUES($1,$2,$3)
		 ON CONFLICT (key) DO UPDATE SET payload=excluded.payload, stored_at=excluded.stored_at`,
		key, string(b), e.StoredAt.Unix())
	return err
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM price_cache WHERE key=$1`, key)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
