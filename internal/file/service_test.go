package file

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/admin"
	"github.com/fbain/service/internal/auth"
	"github.com/fbain/service/internal/blob"
	"github.com/fbain/service/internal/kvstore"
	kvredis "github.com/fbain/service/internal/kvstore/redis"
)

type fixture struct {
	svc   *Service
	repo  *Repository
	blobs *blob.DiskStore
	store kvstore.Store
	mr    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	store, err := kvredis.Open(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs, err := blob.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	log := zap.NewNop()
	shared := admin.NewService(store, blobs, log)
	require.NoError(t, shared.EnsureDefaults(ctx, 1000))

	repo := NewRepository(store)
	gate := auth.NewGate("admin-token")

	return &fixture{
		svc:   NewService(repo, blobs, gate, shared, log),
		repo:  repo,
		blobs: blobs,
		store: store,
		mr:    mr,
	}
}

// addFile stores a record and its blob, mirroring a finalized upload.
func (fx *fixture) addFile(t *testing.T, id, content, revocation string, ttl time.Duration) {
	t.Helper()
	ctx := context.Background()

	w, err := fx.blobs.AppendPartial(ctx, "staging-"+id)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, fx.blobs.Promote(ctx, "staging-"+id, id))

	require.NoError(t, fx.repo.Create(ctx, Record{
		ID:         id,
		Metadata:   json.RawMessage(`{"filename":"a.txt","salt":[1,2]}`),
		Revocation: revocation,
	}, ttl))
}

func TestGetDropsDanglingRecord(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addFile(t, "abcde", "content", "secret", 0)

	rec, err := fx.svc.Get(ctx, "abcde")
	require.NoError(t, err)
	require.Equal(t, "secret", rec.Revocation)

	// blob vanishes behind our back
	require.NoError(t, fx.blobs.Remove(ctx, "abcde"))

	_, err = fx.svc.Get(ctx, "abcde")
	require.True(t, ErrNotFound.Has(err))

	// the dangling record was dropped, not just hidden
	live, err := fx.repo.Exists(ctx, "abcde")
	require.NoError(t, err)
	require.False(t, live)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addFile(t, "abcde", "content", "secret", 0)

	_, err := fx.svc.Authorize(ctx, "abcde", "secret")
	require.NoError(t, err)

	_, err = fx.svc.Authorize(ctx, "abcde", "admin-token")
	require.NoError(t, err)

	_, err = fx.svc.Authorize(ctx, "abcde", "wrong")
	require.True(t, auth.ErrUnauthorized.Has(err))

	_, err = fx.svc.Authorize(ctx, "nope!", "secret")
	require.True(t, ErrNotFound.Has(err))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addFile(t, "abcde", "content", "secret", 0)

	err := fx.svc.Delete(ctx, "abcde", "wrong")
	require.True(t, auth.ErrUnauthorized.Has(err))

	require.NoError(t, fx.svc.Delete(ctx, "abcde", "secret"))

	live, err := fx.repo.Exists(ctx, "abcde")
	require.NoError(t, err)
	require.False(t, live)

	present, err := fx.blobs.Exists(ctx, "abcde")
	require.NoError(t, err)
	require.False(t, present)

	// a second delete reports not found, not an internal error
	err = fx.svc.Delete(ctx, "abcde", "secret")
	require.True(t, ErrNotFound.Has(err))

	count, err := fx.store.Get(ctx, "count")
	require.NoError(t, err)
	require.Equal(t, "-1", count)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addFile(t, "abcde", "content", "secret", 0)

	at, err := fx.svc.Expiry(ctx, "abcde")
	require.NoError(t, err)
	require.Equal(t, int64(-1), at)

	future := time.Now().Add(time.Hour).Unix()
	require.NoError(t, fx.svc.SetExpiry(ctx, "abcde", "secret", future))

	at, err = fx.svc.Expiry(ctx, "abcde")
	require.NoError(t, err)
	require.InDelta(t, future, at, 2)

	// back to indefinite
	require.NoError(t, fx.svc.SetExpiry(ctx, "abcde", "secret", -1))
	at, err = fx.svc.Expiry(ctx, "abcde")
	require.NoError(t, err)
	require.Equal(t, int64(-1), at)

	err = fx.svc.SetExpiry(ctx, "abcde", "secret", time.Now().Add(-time.Hour).Unix())
	require.True(t, ErrValidation.Has(err))

	err = fx.svc.SetExpiry(ctx, "abcde", "wrong", future)
	require.True(t, auth.ErrUnauthorized.Has(err))

	_, err = fx.svc.Expiry(ctx, "ghost")
	require.True(t, ErrNotFound.Has(err))
}

func TestOpenRaw(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addFile(t, "abcde", "hello world", "secret", 0)

	rc, size, err := fx.svc.OpenRaw(ctx, "abcde")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	require.Equal(t, int64(11), size)

	_, _, err = fx.svc.OpenRaw(ctx, "ghost")
	require.True(t, ErrNotFound.Has(err))
}

func TestRecordExpiresNatively(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addFile(t, "abcde", "content", "secret", time.Hour)

	fx.mr.FastForward(2 * time.Hour)

	_, err := fx.svc.Get(ctx, "abcde")
	require.True(t, ErrNotFound.Has(err))
}
