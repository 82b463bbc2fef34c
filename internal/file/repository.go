// Package file manages completed upload records: metadata, revocation
// tokens, and expiration.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeebo/errs"

	"github.com/fbain/service/internal/kvstore"
)

// ErrNotFound is returned when a file record does not exist.
var ErrNotFound = errs.Class("file not found")

// ErrValidation is returned for malformed client input, such as an
// expiration timestamp in the past.
var ErrValidation = errs.Class("validation")

const keyPrefix = "file:"

const (
	fieldMetadata   = "metadata"
	fieldRevocation = "revocation"
)

// Key returns the metadata store key for a file id.
func Key(id string) string { return keyPrefix + id }

// Record is one completed upload. Metadata is the client-supplied JSON
// staged at session open and stored verbatim.
type Record struct {
	ID         string
	Metadata   json.RawMessage
	Revocation string
}

// Repository persists file records in the metadata store.
type Repository struct {
	store kvstore.Store
}

// NewRepository creates a new file Repository.
func NewRepository(store kvstore.Store) *Repository {
	return &Repository{store: store}
}

// Create writes the record and applies ttl. A ttl of zero or less stores
// the record without expiry (indefinite).
func (r *Repository) Create(ctx context.Context, rec Record, ttl time.Duration) error {
	key := Key(rec.ID)
	err := r.store.HSet(ctx, key, map[string]string{
		fieldMetadata:   string(rec.Metadata),
		fieldRevocation: rec.Revocation,
	})
	if err != nil {
		return fmt.Errorf("create file record: %w", err)
	}
	if ttl > 0 {
		if _, err := r.store.Expire(ctx, key, ttl); err != nil {
			return fmt.Errorf("set file ttl: %w", err)
		}
	}
	return nil
}

// Get fetches a record by file id.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	fields, err := r.store.HGetAll(ctx, Key(id))
	if kvstore.ErrKeyNotFound.Has(err) {
		return nil, ErrNotFound.New("%q", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get file record: %w", err)
	}
	return &Record{
		ID:         id,
		Metadata:   json.RawMessage(fields[fieldMetadata]),
		Revocation: fields[fieldRevocation],
	}, nil
}

// Exists reports whether a record for id is present.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	return r.store.Exists(ctx, Key(id))
}

// Delete removes the record for id. Deleting an already-gone record is a
// no-op so delete races resolve idempotently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, Key(id))
}

// ExpiresAt returns the unix timestamp at which the record for id lapses,
// or -1 when it is stored indefinitely.
func (r *Repository) ExpiresAt(ctx context.Context, id string) (int64, error) {
	ttl, err := r.store.TTL(ctx, Key(id))
	if kvstore.ErrKeyNotFound.Has(err) {
		return 0, ErrNotFound.New("%q", id)
	}
	if err != nil {
		return 0, fmt.Errorf("file ttl: %w", err)
	}
	if ttl < 0 {
		return -1, nil
	}
	return time.Now().Add(ttl).Unix(), nil
}

// SetExpiresAt sets an absolute expiry on the record for id. A negative
// timestamp clears the expiry, making the record indefinite.
func (r *Repository) SetExpiresAt(ctx context.Context, id string, at int64) error {
	key := Key(id)
	if at < 0 {
		if err := r.store.Persist(ctx, key); err != nil {
			return fmt.Errorf("persist file record: %w", err)
		}
		return nil
	}
	ok, err := r.store.ExpireAt(ctx, key, time.Unix(at, 0))
	if err != nil {
		return fmt.Errorf("expire file record: %w", err)
	}
	if !ok {
		return ErrNotFound.New("%q", id)
	}
	return nil
}
