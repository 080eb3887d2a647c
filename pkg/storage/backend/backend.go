// Package backend provides byte stores that let the persistent storage strategy keep
// raw resources and validation tokens beyond the lifetime of one process.
package backend

import (
	"context"
	"time"
)

// Backend is a key/value byte store with TTL support
type Backend interface {
	// Get retrieves a value, returning ErrCacheMiss when absent or expired
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value; a zero TTL uses the configured default, a negative TTL never expires
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error

	// Clear removes every value under the configured prefix
	Clear(ctx context.Context) error

	// Exists checks whether a live value is stored
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend's resources
	Close() error
}

// Config holds configuration shared by all backends
type Config struct {
	// DefaultTTL is the time-to-live used when Set receives zero
	DefaultTTL time.Duration
	// Prefix is prepended to all keys
	Prefix string
}

// DefaultConfig returns a default backend configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 24 * time.Hour,
		Prefix:     "halstore:",
	}
}

// ErrCacheMiss is returned when a key is not stored
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}

// expiration converts a Set TTL into an absolute expiry; the zero time means never
func (c Config) expiration(ttl time.Duration) time.Time {
	if ttl == 0 {
		ttl = c.DefaultTTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
