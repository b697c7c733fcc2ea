package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "test:session:"), mr
}

func TestRedisStoreGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	s := New(42)
	s.Version = 1
	s.Set("lookup_kind", "serial")

	require.NoError(t, store.PutIfVersion(ctx, s, 0, time.Minute))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, StateUnauthenticated, got.State)
	assert.Equal(t, int64(1), got.Version)
	v, ok := got.Get("lookup_kind")
	assert.True(t, ok)
	assert.Equal(t, "serial", v)
}

func TestRedisStoreCreateRequiresAbsence(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	s := New(42)
	s.Version = 1
	require.NoError(t, store.PutIfVersion(ctx, s, 0, time.Minute))

	dup := New(42)
	dup.Version = 1
	assert.ErrorIs(t, store.PutIfVersion(ctx, dup, 0, time.Minute), ErrVersionConflict)
}

func TestRedisStoreVersionConflict(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	s := New(42)
	s.Version = 1
	require.NoError(t, store.PutIfVersion(ctx, s, 0, time.Minute))

	// Writer A wins the race.
	a := s.Clone()
	a.State = StateAwaitingNationalID
	a.Version = 2
	require.NoError(t, store.PutIfVersion(ctx, a, 1, time.Minute))

	// Writer B carries the stale version and must lose.
	b := s.Clone()
	b.State = StateAuthenticatedIdle
	b.Version = 2
	require.ErrorIs(t, store.PutIfVersion(ctx, b, 1, time.Minute), ErrVersionConflict)

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingNationalID, got.State)
	assert.Equal(t, int64(2), got.Version)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	s := New(42)
	s.Version = 1
	require.NoError(t, store.PutIfVersion(ctx, s, 0, 30*time.Minute))

	mr.FastForward(31 * time.Minute)

	_, err := store.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	// The key is gone, so a create is allowed again.
	fresh := New(42)
	fresh.Version = 1
	assert.NoError(t, store.PutIfVersion(ctx, fresh, 0, time.Minute))
}

func TestRedisStoreWriteRefreshesTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	s := New(42)
	s.Version = 1
	require.NoError(t, store.PutIfVersion(ctx, s, 0, 10*time.Minute))

	mr.FastForward(8 * time.Minute)

	next := s.Clone()
	next.Version = 2
	require.NoError(t, store.PutIfVersion(ctx, next, 1, 10*time.Minute))

	// Past the original deadline yet inside the refreshed window.
	mr.FastForward(8 * time.Minute)

	_, err := store.Get(ctx, 42)
	assert.NoError(t, err)
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.HSet("test:session:42", "version", "1", "data", "{not json")

	_, err := store.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	s := New(42)
	s.Version = 1
	require.NoError(t, store.PutIfVersion(ctx, s, 0, time.Minute))
	require.NoError(t, store.Delete(ctx, 42))

	_, err := store.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, 42))
}
