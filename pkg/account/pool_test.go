package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dycrawler/pkg/logger"
)

func seedStore(t *testing.T, names ...string) *MockStore {
	t.Helper()
	store := NewMockStore()
	for _, name := range names {
		require.NoError(t, store.Store(&Credential{Name: name, Cookies: "sessionid=" + name}))
	}
	return store
}

func TestPoolLoadAssignsIDsInOrder(t *testing.T) {
	store := seedStore(t, "a", "b", "c")
	pool := NewPool(store, "douyin", logger.NewNopLogger())

	require.NoError(t, pool.Load())
	assert.Equal(t, 3, pool.Size())
	assert.Equal(t, 3, pool.ActiveCount())

	first, err := pool.AcquireActive()
	require.NoError(t, err)
	assert.Equal(t, "a", first.Name)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "douyin", first.Platform)
}

func TestPoolAcquireSkipsInvalid(t *testing.T) {
	store := seedStore(t, "a", "b")
	pool := NewPool(store, "douyin", logger.NewNopLogger())
	require.NoError(t, pool.Load())

	first, err := pool.AcquireActive()
	require.NoError(t, err)
	pool.Invalidate(first)

	second, err := pool.AcquireActive()
	require.NoError(t, err)
	assert.Equal(t, "b", second.Name)
	assert.Equal(t, 1, pool.ActiveCount())
}

func TestPoolInvalidateIsIdempotent(t *testing.T) {
	store := seedStore(t, "a")
	pool := NewPool(store, "douyin", logger.NewNopLogger())
	require.NoError(t, pool.Load())

	cred, err := pool.AcquireActive()
	require.NoError(t, err)

	pool.Invalidate(cred)
	stamp := cred.InvalidatedAt
	assert.NotZero(t, stamp)

	// Second invalidation must not move the timestamp
	pool.Invalidate(cred)
	assert.Equal(t, stamp, cred.InvalidatedAt)
}

func TestPoolReloadsOnExhaustion(t *testing.T) {
	store := seedStore(t, "a")
	pool := NewPool(store, "douyin", logger.NewNopLogger())
	require.NoError(t, pool.Load())

	cred, err := pool.AcquireActive()
	require.NoError(t, err)
	pool.Invalidate(cred)

	// The source still lists "a", so one reload brings it back active.
	revived, err := pool.AcquireActive()
	require.NoError(t, err)
	assert.Equal(t, "a", revived.Name)
	assert.True(t, revived.IsActive())
}

func TestPoolNoActiveCredential(t *testing.T) {
	store := NewMockStore()
	pool := NewPool(store, "douyin", logger.NewNopLogger())
	require.NoError(t, pool.Load())

	_, err := pool.AcquireActive()
	assert.ErrorIs(t, err, ErrNoActiveCredential)
}

func TestPoolSourceUnavailable(t *testing.T) {
	store := NewMockStore()
	store.ListError = assert.AnError
	pool := NewPool(store, "douyin", logger.NewNopLogger())

	err := pool.Load()
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}
