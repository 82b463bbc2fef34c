// Package gc reconciles on-disk blobs with the authoritative metadata
// store. Records expire through store-native ttl eviction; the worker's
// only job is to remove the filesystem garbage left behind: blobs whose
// record is gone, and partial transfers whose session is gone. It never
// deletes a record and never touches a blob with a live record.
package gc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fbain/service/internal/blob"
	"github.com/fbain/service/internal/file"
	"github.com/fbain/service/internal/upload"
)

// Worker is the periodic reconciliation process.
type Worker struct {
	blobs    blob.Store
	files    *file.Repository
	sessions *upload.Repository
	log      *zap.Logger
	interval time.Duration
}

// NewWorker creates a Worker scanning every interval.
func NewWorker(blobs blob.Store, files *file.Repository, sessions *upload.Repository, log *zap.Logger, interval time.Duration) *Worker {
	return &Worker{
		blobs:    blobs,
		files:    files,
		sessions: sessions,
		log:      log,
		interval: interval,
	}
}

// Run reconciles once immediately, then on every tick until ctx is
// cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("gc worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("gc pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs one reconciliation pass over both directories. Each
// pass is idempotent: a second run over unchanged state deletes nothing.
func (w *Worker) RunOnce(ctx context.Context) error {
	orphans, err := w.sweepUploads(ctx)
	if err != nil {
		return err
	}
	partials, err := w.sweepPartials(ctx)
	if err != nil {
		return err
	}

	if orphans > 0 || partials > 0 {
		w.log.Info("gc pass finished",
			zap.Int("orphan_blobs", orphans),
			zap.Int("stale_partials", partials),
		)
	}
	return nil
}

// sweepUploads deletes finished blobs whose file record no longer exists.
func (w *Worker) sweepUploads(ctx context.Context) (removed int, err error) {
	err = w.blobs.Uploads(ctx, func(info blob.Info) error {
		live, err := w.files.Exists(ctx, info.Key)
		if err != nil {
			return err
		}
		if live {
			return nil
		}
		if err := w.blobs.Remove(ctx, info.Key); err != nil {
			w.log.Warn("unable to delete blob", zap.String("id", info.Key), zap.Error(err))
			return nil
		}
		removed++
		return nil
	})
	return removed, err
}

// sweepPartials deletes partial blobs whose session no longer exists,
// covering sessions that expired mid-transfer without a clean abort.
func (w *Worker) sweepPartials(ctx context.Context) (removed int, err error) {
	err = w.blobs.Partials(ctx, func(info blob.Info) error {
		live, err := w.sessions.Exists(ctx, info.Key)
		if err != nil {
			return err
		}
		if live {
			return nil
		}
		if err := w.blobs.RemovePartial(ctx, info.Key); err != nil {
			w.log.Warn("unable to delete partial", zap.Error(err))
			return nil
		}
		removed++
		return nil
	})
	return removed, err
}
