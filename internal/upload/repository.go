// Package upload manages the upload-session lifecycle: session creation,
// the resumable block transfer protocol, and finalization into a file
// record.
package upload

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/zeebo/errs"

	"github.com/fbain/service/internal/kvstore"
)

var (
	// ErrSessionNotFound is returned when a session does not exist or has
	// already expired.
	ErrSessionNotFound = errs.Class("session not found")

	// ErrTooLarge is returned when the declared size exceeds the cap, or
	// the client sends more bytes than it declared.
	ErrTooLarge = errs.Class("file too large")

	// ErrConflict is returned when another transfer already holds the
	// session lock.
	ErrConflict = errs.Class("upload in progress")
)

const keyPrefix = "session:"

const (
	fieldSize   = "size"
	fieldBlock  = "block"
	fieldMeta   = "meta"
	fieldExpire = "expire"
	fieldLock   = "lock"
)

// Key returns the metadata store key for a session token.
func Key(token string) string { return keyPrefix + token }

// Session is the transient state of one in-progress upload.
type Session struct {
	Token string
	// Remaining is declared_size minus the bytes written so far. It is
	// exactly zero when the session is ready to finalize.
	Remaining int64
	// Block is the next expected block number.
	Block int64
	// Meta is the staged metadata JSON, stored verbatim on the file
	// record at finalization.
	Meta string
	// RequestedExpiry is the expiration the client asked for at session
	// open: nil for the default, negative for indefinite, otherwise a
	// unix timestamp.
	RequestedExpiry *int64
}

// Repository persists upload sessions in the metadata store.
type Repository struct {
	store kvstore.Store
}

// NewRepository creates a new session Repository.
func NewRepository(store kvstore.Store) *Repository {
	return &Repository{store: store}
}

// Create claims token and writes the initial session state with the given
// ttl. It reports false without writing when the token is already live.
func (r *Repository) Create(ctx context.Context, sess Session, ttl time.Duration) (bool, error) {
	key := Key(sess.Token)

	// claiming the size field claims the whole session
	claimed, err := r.store.HSetNX(ctx, key, fieldSize, strconv.FormatInt(sess.Remaining, 10))
	if err != nil {
		return false, fmt.Errorf("claim session: %w", err)
	}
	if !claimed {
		return false, nil
	}

	fields := map[string]string{
		fieldBlock: strconv.FormatInt(sess.Block, 10),
		fieldMeta:  sess.Meta,
	}
	if sess.RequestedExpiry != nil {
		fields[fieldExpire] = strconv.FormatInt(*sess.RequestedExpiry, 10)
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		// the claim would otherwise linger forever: nothing else deletes
		// session records, and a key left here has no ttl
		_ = r.store.Delete(ctx, key)
		return false, fmt.Errorf("write session: %w", err)
	}
	if _, err := r.store.Expire(ctx, key, ttl); err != nil {
		_ = r.store.Delete(ctx, key)
		return false, fmt.Errorf("set session ttl: %w", err)
	}
	return true, nil
}

// Get fetches the session state for token.
func (r *Repository) Get(ctx context.Context, token string) (*Session, error) {
	fields, err := r.store.HGetAll(ctx, Key(token))
	if kvstore.ErrKeyNotFound.Has(err) {
		return nil, ErrSessionNotFound.New("%q", token)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	remaining, err := strconv.ParseInt(fields[fieldSize], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session size %q: %w", fields[fieldSize], err)
	}
	block, err := strconv.ParseInt(fields[fieldBlock], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session block %q: %w", fields[fieldBlock], err)
	}

	sess := &Session{
		Token:     token,
		Remaining: remaining,
		Block:     block,
		Meta:      fields[fieldMeta],
	}
	if raw, ok := fields[fieldExpire]; ok {
		expire, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt session expire %q: %w", raw, err)
		}
		sess.RequestedExpiry = &expire
	}
	return sess, nil
}

// Exists reports whether a session for token is live.
func (r *Repository) Exists(ctx context.Context, token string) (bool, error) {
	return r.store.Exists(ctx, Key(token))
}

// Lock acquires the session's single-holder write lock. It reports false
// when another transfer already holds it.
func (r *Repository) Lock(ctx context.Context, token string) (bool, error) {
	return r.store.HSetNX(ctx, Key(token), fieldLock, "1")
}

// Checkpoint persists the transfer position and releases the lock, leaving
// the session resumable. It is a no-op when the session has lapsed, and it
// never resurrects a lapsed session: a hash recreated by the writes below
// would have no ttl, so such a hash is deleted again.
func (r *Repository) Checkpoint(ctx context.Context, token string, remaining, block int64) error {
	key := Key(token)

	live, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("checkpoint session: %w", err)
	}
	if !live {
		return nil
	}

	err = r.store.HSet(ctx, key, map[string]string{
		fieldSize:  strconv.FormatInt(remaining, 10),
		fieldBlock: strconv.FormatInt(block, 10),
	})
	if err != nil {
		return fmt.Errorf("checkpoint session: %w", err)
	}
	if err := r.store.HDel(ctx, key, fieldLock); err != nil {
		return fmt.Errorf("release session lock: %w", err)
	}

	ttl, err := r.store.TTL(ctx, key)
	if err != nil && !kvstore.ErrKeyNotFound.Has(err) {
		return fmt.Errorf("checkpoint session: %w", err)
	}
	if err == nil && ttl == kvstore.TTLNone {
		return r.store.Delete(ctx, key)
	}
	return nil
}

// Refresh extends the session ttl. It reports false when the session has
// already lapsed.
func (r *Repository) Refresh(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return r.store.Expire(ctx, Key(token), ttl)
}

// Delete removes the session record. Deleting an already-gone session is a
// no-op.
func (r *Repository) Delete(ctx context.Context, token string) error {
	return r.store.Delete(ctx, Key(token))
}
