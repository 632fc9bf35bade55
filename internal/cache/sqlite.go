
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the default Store backend, a single-file local database.
type SQLite struct {
	sql *sql.DB
}

func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable defaults
	sqldb.SetMaxOpenConns(1) // SQLite best practice for embedded use
	sqldb.SetConnMaxLifetime(0)

	s := &SQLite{sql: sqldb}
	if err := s.migrate(context.Background()); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_cache (
			key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			stored_at INTEGER NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := s.sql.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (Entry, bool, error) {
	var payload string
	var storedAt int64
	err := s.sql.QueryRowContext(ctx,
		`SELECT payload, stored_at FROM price_cache WHERE key=?`, key,
	).Scan(&payload, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var p Payload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		_ = s.Delete(ctx, key)
		return Entry{}, false, nil
	}
	return Entry{Payload: p, StoredAt: time.Unix(storedAt, 0)}, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, e Entry) error {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	_, err = s.sql.ExecContext(ctx,
		`INSERT INTO price_cache(key, payload, stored_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, stored_at=excluded.stored_at`,
		key, string(b), e.StoredAt.Unix())
	return err
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.sql.ExecContext(ctx, `DELETE FROM price_cache WHERE key=?`, key)
	return err
}

func (s *SQLite) Close() error {
	return s.sql.Close()
}

// BackupTo creates a consistent snapshot at dstPath using VACUUM INTO.
// This works even when WAL mode is enabled.
func (s *SQLite) BackupTo(ctx context.Context, dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
		return err
	}
	// Escape single quotes for SQLite string literal
	escaped := strings.ReplaceAll(dstPath, "'", "''")
	_, err := s.sql.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s';", escaped))
	return err
}
