package admin

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/blob"
	kvredis "github.com/fbain/service/internal/kvstore/redis"
)

func newService(t *testing.T) (*Service, *blob.DiskStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := kvredis.Open(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs, err := blob.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	return NewService(store, blobs, zap.NewNop()), blobs
}

func TestSizeCap(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.EnsureDefaults(ctx, 500))

	max, err := svc.MaxFileSize(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(500), max)

	require.NoError(t, svc.SetMaxFileSize(ctx, 1_000_000))
	max, err = svc.MaxFileSize(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), max)

	// defaults must not clobber an admin-set value
	require.NoError(t, svc.EnsureDefaults(ctx, 500))
	max, err = svc.MaxFileSize(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), max)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)

	write := func(session, id, data string) {
		w, err := blobs.AppendPartial(ctx, session)
		require.NoError(t, err)
		_, err = w.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, blobs.Promote(ctx, session, id))
	}
	write("s1", "one", "hello")
	write("s2", "two", "worlds!")

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, status.Files)
	require.Equal(t, int64(12), status.TotalDiskUsage)
	require.GreaterOrEqual(t, status.WorkerUpTime, int64(0))
}
