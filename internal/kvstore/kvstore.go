// Package kvstore defines the metadata store port: a key-value store with
// per-key TTL, hash fields, atomic counters, and set-if-absent semantics.
// All cross-process coordination (session locks, counters, the size cap)
// goes through these primitives rather than in-process locks, because
// request handlers may run in multiple processes.
package kvstore

import (
	"context"
	"time"

	"github.com/zeebo/errs"
)

var (
	// ErrKeyNotFound is returned when a key or hash field does not exist.
	ErrKeyNotFound = errs.Class("key not found")

	// ErrEmptyKey is returned when an empty key is used.
	ErrEmptyKey = errs.Class("empty key")
)

// TTLNone is reported by TTL for keys that exist without an expiry.
const TTLNone = time.Duration(-1)

// Store describes the metadata store backing file records, upload sessions,
// and shared counters.
type Store interface {
	// Get returns the string value at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes value at key. A ttl of zero or less stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes value only if key is absent; reports whether it wrote.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Delete removes keys. Deleting an absent key is not an error.
	Delete(ctx context.Context, keys ...string) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// HGet returns one field of the hash at key, or ErrKeyNotFound.
	HGet(ctx context.Context, key, field string) (string, error)
	// HGetAll returns all fields of the hash at key; ErrKeyNotFound if the
	// hash is absent or empty.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSet writes fields into the hash at key.
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HSetNX writes one field only if it is absent; reports whether it
	// wrote. This is the compare-and-set used for session locks.
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	// HDel removes fields from the hash at key.
	HDel(ctx context.Context, key string, fields ...string) error

	// Expire sets the ttl of key; reports false if key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// ExpireAt sets an absolute expiry; reports false if key is absent.
	ExpireAt(ctx context.Context, key string, at time.Time) (bool, error)
	// Persist clears any expiry on key.
	Persist(ctx context.Context, key string) error
	// TTL returns the remaining ttl of key, TTLNone when the key has no
	// expiry, or ErrKeyNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// IncrBy atomically adds n (possibly negative) to the integer at key
	// and returns the new value. Absent keys count from zero.
	IncrBy(ctx context.Context, key string, n int64) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connections.
	Close() error
}
