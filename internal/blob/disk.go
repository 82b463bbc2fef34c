package blob

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore implements Store on a local filesystem. Both directories must
// live on the same volume so Promote is a single rename(2).
type DiskStore struct {
	uploadDir  string
	partialDir string
}

// NewDiskStore creates the upload and partial directories under root and
// returns a ready-to-use DiskStore.
func NewDiskStore(root string) (*DiskStore, error) {
	store := &DiskStore{
		uploadDir:  filepath.Join(root, "upload"),
		partialDir: filepath.Join(root, "partial"),
	}
	for _, dir := range []string{store.uploadDir, store.partialDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create blob dir: %w", err)
		}
	}
	return store, nil
}

// uploadPath maps a file id to its on-disk path. Ids are drawn from an
// alphabet containing characters that are unsafe in file names, so the
// name is the hex encoding of the id.
func (s *DiskStore) uploadPath(id string) string {
	return filepath.Join(s.uploadDir, hex.EncodeToString([]byte(id)))
}

func (s *DiskStore) partialPath(session string) string {
	return filepath.Join(s.partialDir, hex.EncodeToString([]byte(session)))
}

// AppendPartial opens the partial blob for session in append mode.
func (s *DiskStore) AppendPartial(ctx context.Context, session string) (io.WriteCloser, error) {
	f, err := os.OpenFile(s.partialPath(session), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open partial: %w", err)
	}
	return f, nil
}

// RemovePartial deletes the partial blob for session, if present.
func (s *DiskStore) RemovePartial(ctx context.Context, session string) error {
	if err := os.Remove(s.partialPath(session)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove partial: %w", err)
	}
	return nil
}

// Promote atomically renames the partial blob for session into the upload
// directory under id.
func (s *DiskStore) Promote(ctx context.Context, session, id string) error {
	if err := os.Rename(s.partialPath(session), s.uploadPath(id)); err != nil {
		return fmt.Errorf("promote partial: %w", err)
	}
	return nil
}

// Demote renames the finished blob for id back into the partial directory
// under session, undoing Promote.
func (s *DiskStore) Demote(ctx context.Context, id, session string) error {
	if err := os.Rename(s.uploadPath(id), s.partialPath(session)); err != nil {
		return fmt.Errorf("demote blob: %w", err)
	}
	return nil
}

// Open returns a reader over the finished blob for id.
func (s *DiskStore) Open(ctx context.Context, id string) (io.ReadSeekCloser, error) {
	f, err := os.Open(s.uploadPath(id))
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Size returns the byte length of the finished blob for id.
func (s *DiskStore) Size(ctx context.Context, id string) (int64, error) {
	fi, err := os.Stat(s.uploadPath(id))
	if err != nil {
		return 0, fmt.Errorf("stat blob: %w", err)
	}
	return fi.Size(), nil
}

// Exists reports whether the finished blob for id is present.
func (s *DiskStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := os.Stat(s.uploadPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return true, nil
}

// Remove deletes the finished blob for id, if present.
func (s *DiskStore) Remove(ctx context.Context, id string) error {
	if err := os.Remove(s.uploadPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Uploads calls fn for every finished blob.
func (s *DiskStore) Uploads(ctx context.Context, fn func(Info) error) error {
	return scanDir(ctx, s.uploadDir, fn)
}

// Partials calls fn for every partial blob.
func (s *DiskStore) Partials(ctx context.Context, fn func(Info) error) error {
	return scanDir(ctx, s.partialDir, fn)
}

// Usage returns the finished blob count and total byte size.
func (s *DiskStore) Usage(ctx context.Context) (files int, bytes int64, err error) {
	err = s.Uploads(ctx, func(info Info) error {
		files++
		bytes += info.Size
		return nil
	})
	return files, bytes, err
}

func scanDir(ctx context.Context, dir string, fn func(Info) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		key, err := hex.DecodeString(entry.Name())
		if err != nil {
			// not one of ours (.keep markers, editor droppings)
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		if err := fn(Info{Key: string(key), Size: fi.Size()}); err != nil {
			return err
		}
	}
	return nil
}
