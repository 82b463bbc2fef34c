// Package admin manages process-independent shared state: the global size
// cap and the live file counter, both kept in the metadata store so every
// worker process sees the same values, plus the status report.
package admin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/blob"
	"github.com/fbain/service/internal/kvstore"
)

// ErrInvalidSize is returned when a size value cannot be parsed.
var ErrInvalidSize = errs.Class("invalid size")

const (
	maxSizeKey = "maxfs"
	countKey   = "count"
)

// Status aggregates the observable state of the upload directory.
type Status struct {
	Files          int   `json:"files"`
	TotalDiskUsage int64 `json:"total_disk_usage"`
	WorkerUpTime   int64 `json:"worker_up_time"`
}

// Service exposes the shared counters and the size cap.
type Service struct {
	store   kvstore.Store
	blobs   blob.Store
	log     *zap.Logger
	started time.Time
}

// NewService creates a new admin Service.
func NewService(store kvstore.Store, blobs blob.Store, log *zap.Logger) *Service {
	return &Service{store: store, blobs: blobs, log: log, started: time.Now()}
}

// EnsureDefaults seeds the size cap and file counter if they are absent,
// leaving previously admin-set values untouched across restarts.
func (s *Service) EnsureDefaults(ctx context.Context, defaultMax int64) error {
	if _, err := s.store.SetNX(ctx, countKey, "0", 0); err != nil {
		return fmt.Errorf("seed file counter: %w", err)
	}
	written, err := s.store.SetNX(ctx, maxSizeKey, strconv.FormatInt(defaultMax, 10), 0)
	if err != nil {
		return fmt.Errorf("seed size cap: %w", err)
	}
	if written {
		s.log.Info("size cap initialized", zap.String("max", humanize.Bytes(uint64(defaultMax))))
	}
	return nil
}

// MaxFileSize returns the current global size cap in bytes.
func (s *Service) MaxFileSize(ctx context.Context) (int64, error) {
	value, err := s.store.Get(ctx, maxSizeKey)
	if err != nil {
		return 0, fmt.Errorf("get size cap: %w", err)
	}
	max, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size cap: %w", err)
	}
	return max, nil
}

// SetMaxFileSize replaces the global size cap.
func (s *Service) SetMaxFileSize(ctx context.Context, max int64) error {
	if err := s.store.Set(ctx, maxSizeKey, strconv.FormatInt(max, 10), 0); err != nil {
		return fmt.Errorf("set size cap: %w", err)
	}
	s.log.Info("size cap changed", zap.String("max", humanize.Bytes(uint64(max))))
	return nil
}

// FileAdded bumps the shared live-file counter.
func (s *Service) FileAdded(ctx context.Context) {
	if _, err := s.store.IncrBy(ctx, countKey, 1); err != nil {
		s.log.Warn("file counter increment failed", zap.Error(err))
	}
}

// FileRemoved decrements the shared live-file counter.
func (s *Service) FileRemoved(ctx context.Context) {
	if _, err := s.store.IncrBy(ctx, countKey, -1); err != nil {
		s.log.Warn("file counter decrement failed", zap.Error(err))
	}
}

// Status scans the upload directory for the authoritative file count and
// disk usage. The shared counter is a cheap gauge; the scan is the truth.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	files, bytes, err := s.blobs.Usage(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob usage: %w", err)
	}
	return &Status{
		Files:          files,
		TotalDiskUsage: bytes,
		WorkerUpTime:   int64(time.Since(s.started).Seconds()),
	}, nil
}
