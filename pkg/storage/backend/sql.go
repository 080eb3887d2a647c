package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DefaultTable is the table used when none is configured
const DefaultTable = "halstore_cache"

// SQL is a Backend on a database/sql handle. The statements are portable between
// PostgreSQL and SQLite 3.24+.
type SQL struct {
	db     *sql.DB
	table  string
	config Config
}

// NewSQL wraps an open database handle
func NewSQL(db *sql.DB, table string, config Config) *SQL {
	if table == "" {
		table = DefaultTable
	}
	return &SQL{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		config: config,
	}
}

// EnsureSchema creates the cache table when it does not exist
func (s *SQL) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	cache_key TEXT PRIMARY KEY,
	cache_value TEXT NOT NULL,
	expires_at BIGINT NOT NULL DEFAULT 0
)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create cache table: %w", err)
	}
	return nil
}

// Get retrieves a value
func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf("SELECT cache_value, expires_at FROM %s WHERE cache_key = $1", s.table)

	var (
		value     string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, query, s.config.Prefix+key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if expiresAt != 0 && time.Now().UnixNano() > expiresAt {
		if err := s.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, ErrCacheMiss{Key: key}
	}

	return []byte(value), nil
}

// Set upserts a value
func (s *SQL) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, expires_at = EXCLUDED.expires_at`, s.table)

	var expiresAt int64
	if exp := s.config.expiration(ttl); !exp.IsZero() {
		expiresAt = exp.UnixNano()
	}

	if _, err := s.db.ExecContext(ctx, query, s.config.Prefix+key, string(value), expiresAt); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes a value
func (s *SQL) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = $1", s.table)
	if _, err := s.db.ExecContext(ctx, query, s.config.Prefix+key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every value under the prefix. Wildcards inside the prefix match
// literally.
func (s *SQL) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE cache_key LIKE $1 ESCAPE '\'`, s.table)
	if _, err := s.db.ExecContext(ctx, query, escapeLike(s.config.Prefix)+"%"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes the LIKE wildcards of s with a backslash
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Exists checks whether a live value is stored
func (s *SQL) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if IsCacheMiss(err) {
		return false, nil
	}
	return err == nil, err
}

// Close closes the database handle
func (s *SQL) Close() error {
	return s.db.Close()
}
