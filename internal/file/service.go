package file

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/fbain/service/internal/admin"
	"github.com/fbain/service/internal/auth"
	"github.com/fbain/service/internal/blob"
)

// Service contains the business logic for completed files, including the
// authorization gate for every mutating operation.
type Service struct {
	repo   *Repository
	blobs  blob.Store
	gate   *auth.Gate
	shared *admin.Service
	log    *zap.Logger
}

// NewService creates a new file Service.
func NewService(repo *Repository, blobs blob.Store, gate *auth.Gate, shared *admin.Service, log *zap.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, gate: gate, shared: shared, log: log}
}

// Get returns the record for id, verifying its blob is still on disk. A
// record whose blob has vanished is deleted on the spot and reported as
// not found.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	present, err := s.blobs.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !present {
		s.log.Warn("record without blob, dropping", zap.String("id", id))
		if err := s.repo.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotFound.New("%q", id)
	}
	return rec, nil
}

// Meta returns the stored metadata JSON for id.
func (s *Service) Meta(ctx context.Context, id string) (json.RawMessage, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Metadata, nil
}

// Authorize returns the record for id after verifying token against its
// revocation token or the admin override. It fails with ErrNotFound before
// ErrUnauthorized so callers cannot probe which ids exist only with a
// valid token.
func (s *Service) Authorize(ctx context.Context, id, token string) (*Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Verify(token, rec.Revocation); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record and its blob after authorization. The record
// goes first: once it is gone the blob is unreachable garbage even if the
// blob removal fails, and the GC worker covers that case.
func (s *Service) Delete(ctx context.Context, id, token string) error {
	if _, err := s.Authorize(ctx, id, token); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.shared.FileRemoved(ctx)

	if err := s.blobs.Remove(ctx, id); err != nil {
		s.log.Error("blob removal failed, leaving for gc", zap.String("id", id), zap.Error(err))
	}

	s.log.Info("file deleted", zap.String("id", id))
	return nil
}

// Expiry returns the unix timestamp at which id expires, or -1 when it is
// stored indefinitely.
func (s *Service) Expiry(ctx context.Context, id string) (int64, error) {
	return s.repo.ExpiresAt(ctx, id)
}

// SetExpiry updates the expiration of id after authorization. A negative
// timestamp makes the record indefinite; a past timestamp is rejected.
func (s *Service) SetExpiry(ctx context.Context, id, token string, at int64) error {
	if _, err := s.Authorize(ctx, id, token); err != nil {
		return err
	}
	if at >= 0 && at <= time.Now().Unix() {
		return ErrValidation.New("expires_at is in the past")
	}
	return s.repo.SetExpiresAt(ctx, id, at)
}

// OpenRaw returns a reader over the blob for id and its size. The record
// is checked first so expired files disappear as soon as their record
// does, not only after the GC pass.
func (s *Service) OpenRaw(ctx context.Context, id string) (io.ReadSeekCloser, int64, error) {
	live, err := s.repo.Exists(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if !live {
		return nil, 0, ErrNotFound.New("%q", id)
	}

	size, err := s.blobs.Size(ctx, id)
	if err != nil {
		return nil, 0, ErrNotFound.New("%q", id)
	}
	rc, err := s.blobs.Open(ctx, id)
	if err != nil {
		return nil, 0, ErrNotFound.New("%q", id)
	}
	return rc, size, nil
}
