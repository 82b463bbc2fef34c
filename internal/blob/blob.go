// Package blob defines the interface for on-disk blob storage.
// Finished blobs are keyed by public file id; in-progress transfers are
// keyed by session token and appended to block by block. Promotion from
// partial to finished must be a same-volume rename so it is atomic and
// never copies the data.
package blob

import (
	"context"
	"io"
)

// Info describes one stored blob during a directory scan.
type Info struct {
	Key  string // file id or session token, depending on the directory
	Size int64
}

// Store is the interface for partial and finished blob storage.
type Store interface {
	// AppendPartial opens the partial blob for session in append mode,
	// creating it if needed. The caller must close the writer before the
	// session lock is released.
	AppendPartial(ctx context.Context, session string) (io.WriteCloser, error)
	// RemovePartial deletes the partial blob for session. Removing an
	// absent partial is a no-op.
	RemovePartial(ctx context.Context, session string) error
	// Promote atomically renames the partial blob for session to the
	// finished blob for id.
	Promote(ctx context.Context, session, id string) error
	// Demote renames the finished blob for id back to the partial blob
	// for session, undoing Promote.
	Demote(ctx context.Context, id, session string) error

	// Open returns a reader over the finished blob for id.
	Open(ctx context.Context, id string) (io.ReadSeekCloser, error)
	// Size returns the byte length of the finished blob for id.
	Size(ctx context.Context, id string) (int64, error)
	// Exists reports whether the finished blob for id is present.
	Exists(ctx context.Context, id string) (bool, error)
	// Remove deletes the finished blob for id. Removing an absent blob is
	// a no-op.
	Remove(ctx context.Context, id string) error

	// Uploads calls fn for every finished blob.
	Uploads(ctx context.Context, fn func(Info) error) error
	// Partials calls fn for every partial blob.
	Partials(ctx context.Context, fn func(Info) error) error
	// Usage returns the finished blob count and their total byte size.
	Usage(ctx context.Context) (files int, bytes int64, err error)
}
