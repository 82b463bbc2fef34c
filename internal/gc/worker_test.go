package gc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/blob"
	"github.com/fbain/service/internal/file"
	kvredis "github.com/fbain/service/internal/kvstore/redis"
	"github.com/fbain/service/internal/upload"
)

type fixture struct {
	worker   *Worker
	blobs    *blob.DiskStore
	files    *file.Repository
	sessions *upload.Repository
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := kvredis.Open(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs, err := blob.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	files := file.NewRepository(store)
	sessions := upload.NewRepository(store)

	return &fixture{
		worker:   NewWorker(blobs, files, sessions, zap.NewNop(), time.Hour),
		blobs:    blobs,
		files:    files,
		sessions: sessions,
		mr:       mr,
	}
}

func (fx *fixture) writeBlob(t *testing.T, session string, promoteTo string) {
	t.Helper()
	ctx := context.Background()
	w, err := fx.blobs.AppendPartial(ctx, session)
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	if promoteTo != "" {
		require.NoError(t, fx.blobs.Promote(ctx, session, promoteTo))
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	// live file: record + blob
	fx.writeBlob(t, "s-live", "live1")
	require.NoError(t, fx.files.Create(ctx, file.Record{
		ID:         "live1",
		Metadata:   json.RawMessage(`{}`),
		Revocation: "r",
	}, 0))

	// orphan blob: no record (expired, or crash between rename and write)
	fx.writeBlob(t, "s-orphan", "orphn")

	// live partial: session still open
	fx.writeBlob(t, "tok-live", "")
	_, err := fx.sessions.Create(ctx, upload.Session{Token: "tok-live", Remaining: 10}, time.Hour)
	require.NoError(t, err)

	// stale partial: session lapsed without a clean abort
	fx.writeBlob(t, "tok-stale", "")

	require.NoError(t, fx.worker.RunOnce(ctx))

	live, err := fx.blobs.Exists(ctx, "live1")
	require.NoError(t, err)
	require.True(t, live)

	gone, err := fx.blobs.Exists(ctx, "orphn")
	require.NoError(t, err)
	require.False(t, gone)

	var partials []string
	require.NoError(t, fx.blobs.Partials(ctx, func(info blob.Info) error {
		partials = append(partials, info.Key)
		return nil
	}))
	require.Equal(t, []string{"tok-live"}, partials)
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.writeBlob(t, "s-orphan", "orphn")
	fx.writeBlob(t, "tok-stale", "")

	removed, err := fx.worker.sweepUploads(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	removedPartials, err := fx.worker.sweepPartials(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removedPartials)

	// a second pass over identical state deletes nothing
	removed, err = fx.worker.sweepUploads(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)
	removedPartials, err = fx.worker.sweepPartials(ctx)
	require.NoError(t, err)
	require.Zero(t, removedPartials)
}

func TestReconcileAfterExpiry(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.writeBlob(t, "s1", "fleet")
	require.NoError(t, fx.files.Create(ctx, file.Record{
		ID:         "fleet",
		Metadata:   json.RawMessage(`{}`),
		Revocation: "r",
	}, time.Hour))

	require.NoError(t, fx.worker.RunOnce(ctx))
	present, err := fx.blobs.Exists(ctx, "fleet")
	require.NoError(t, err)
	require.True(t, present)

	// the store evicts the record; the next pass collects the blob
	fx.mr.FastForward(2 * time.Hour)

	require.NoError(t, fx.worker.RunOnce(ctx))
	present, err = fx.blobs.Exists(ctx, "fleet")
	require.NoError(t, err)
	require.False(t, present)
}

func TestRunStopsOnCancel(t *testing.T) {
	fx := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fx.worker.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}
