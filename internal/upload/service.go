package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/admin"
	"github.com/fbain/service/internal/blob"
	"github.com/fbain/service/internal/file"
	"github.com/fbain/service/internal/ident"
)

// session tokens are 16 random bytes hex-encoded, a much wider space than
// file ids since they double as bearer secrets during the transfer
const sessionTokenBytes = 16

// revocation tokens carry 144 bits of randomness, URL-safe encoded
const revocationTokenBytes = 18

// ErrUnrecoverable is returned by Finalize when the record write failed and
// the transferred data could not be moved back for a retry. The session is
// already torn down when this is returned.
var ErrUnrecoverable = errs.Class("unrecoverable session")

// tokenAttempts bounds the collision loop for session tokens. Collisions
// in a 128-bit space mean something is deeply wrong, not bad luck.
const tokenAttempts = 3

// Metadata is the client-supplied file metadata staged at session open.
// The content is encrypted client-side; the salt lets the downloader
// re-derive the key from the secret in the URL fragment.
type Metadata struct {
	Salt     []int  `json:"salt"`
	Filename string `json:"filename"`
}

// OpenRequest is the body of a session-open call.
type OpenRequest struct {
	Metadata
	ContentLength int64 `json:"content_length"`
	// ExpiresAt, when present, requests an expiration for the finished
	// file: a unix timestamp, or any negative value for indefinite.
	ExpiresAt *int64 `json:"expires_at,omitempty"`
}

// Service is the upload session manager.
type Service struct {
	sessions *Repository
	files    *file.Repository
	blobs    blob.Store
	ids      *ident.Allocator
	shared   *admin.Service
	log      *zap.Logger

	sessionTTL time.Duration
	fileTTL    time.Duration
}

// NewService creates the upload Service.
func NewService(sessions *Repository, files *file.Repository, blobs blob.Store, ids *ident.Allocator, shared *admin.Service, log *zap.Logger, sessionTTL, fileTTL time.Duration) *Service {
	return &Service{
		sessions:   sessions,
		files:      files,
		blobs:      blobs,
		ids:        ids,
		shared:     shared,
		log:        log,
		sessionTTL: sessionTTL,
		fileTTL:    fileTTL,
	}
}

// Open creates a new upload session and returns its token. It fails with
// ErrTooLarge when the declared size exceeds the shared cap.
func (s *Service) Open(ctx context.Context, req OpenRequest) (string, error) {
	max, err := s.shared.MaxFileSize(ctx)
	if err != nil {
		return "", err
	}
	if req.ContentLength > max {
		return "", ErrTooLarge.New("%d > %d", req.ContentLength, max)
	}

	meta, err := json.Marshal(req.Metadata)
	if err != nil {
		return "", fmt.Errorf("stage metadata: %w", err)
	}

	for attempt := 0; attempt < tokenAttempts; attempt++ {
		token, err := ident.HexToken(sessionTokenBytes)
		if err != nil {
			return "", err
		}
		created, err := s.sessions.Create(ctx, Session{
			Token:           token,
			Remaining:       req.ContentLength,
			Block:           0,
			Meta:            string(meta),
			RequestedExpiry: req.ExpiresAt,
		}, s.sessionTTL)
		if err != nil {
			return "", err
		}
		if created {
			return token, nil
		}
	}
	return "", fmt.Errorf("session token collisions exhausted %d attempts", tokenAttempts)
}

// Finalize converts a fully transferred session into a file record and
// returns the public id and revocation token. The partial blob is renamed
// to its permanent path before the record is written, so a record never
// points at a blob that is not yet at its final location. A failed record
// write renames the blob back, so the session stays retryable.
func (s *Service) Finalize(ctx context.Context, sess *Session) (id, revocation string, err error) {
	id, err = s.ids.Allocate(ctx, s.files.Exists)
	if err != nil {
		return "", "", fmt.Errorf("allocate file id: %w", err)
	}
	revocation, err = ident.URLToken(revocationTokenBytes)
	if err != nil {
		return "", "", err
	}

	if err := s.blobs.Promote(ctx, sess.Token, id); err != nil {
		return "", "", err
	}

	err = s.files.Create(ctx, file.Record{
		ID:         id,
		Metadata:   json.RawMessage(sess.Meta),
		Revocation: revocation,
	}, s.recordTTL(sess))
	if err != nil {
		// move the data back where a retry expects it; otherwise the
		// promoted blob has no record and the next Finalize would try
		// to promote a partial that no longer exists
		if derr := s.blobs.Demote(ctx, id, sess.Token); derr != nil {
			s.log.Error("demote after failed record write",
				zap.String("id", id), zap.Error(derr))
			if delerr := s.sessions.Delete(ctx, sess.Token); delerr != nil {
				s.log.Error("unrecoverable session not deleted", zap.Error(delerr))
			}
			return "", "", ErrUnrecoverable.Wrap(errs.Combine(err, derr))
		}
		return "", "", fmt.Errorf("write file record: %w", err)
	}

	if err := s.sessions.Delete(ctx, sess.Token); err != nil {
		s.log.Warn("finalized session not deleted", zap.Error(err))
	}
	s.shared.FileAdded(ctx)

	s.log.Info("upload finalized",
		zap.String("id", id),
		zap.Int64("blocks", sess.Block),
	)
	return id, revocation, nil
}

// recordTTL maps the session's requested expiry onto a record ttl: the
// default one month when nothing was requested, no expiry when a negative
// value was requested, otherwise the time until the requested timestamp.
func (s *Service) recordTTL(sess *Session) time.Duration {
	if sess.RequestedExpiry == nil {
		return s.fileTTL
	}
	if *sess.RequestedExpiry < 0 {
		return 0
	}
	ttl := time.Until(time.Unix(*sess.RequestedExpiry, 0))
	if ttl <= 0 {
		return s.fileTTL
	}
	return ttl
}

// Abort terminates a session, removing both the partial blob and the
// session record.
func (s *Service) Abort(ctx context.Context, token, reason string) error {
	if err := s.blobs.RemovePartial(ctx, token); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	s.log.Info("session aborted", zap.String("reason", reason))
	return nil
}
