package proxy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dycrawler/pkg/logger"
)

// fakeProvider serves a scripted endpoint list and records invalidations.
type fakeProvider struct {
	mu          sync.Mutex
	batches     [][]*Endpoint
	fetchCalls  int
	invalidated []*Endpoint
	fetchErr    error
}

func (f *fakeProvider) FetchProxies(ctx context.Context, count int) ([]*Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.fetchCalls++
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeProvider) MarkInvalid(ctx context.Context, ep *Endpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, ep)
	return nil
}

func testPoolConfig() PoolConfig {
	return PoolConfig{
		Count:           2,
		Validate:        false,
		AcquireAttempts: 3,
		AcquireDelay:    time.Millisecond,
	}
}

func TestPoolAcquireIsDestructive(t *testing.T) {
	provider := &fakeProvider{batches: [][]*Endpoint{{
		{Host: "10.0.0.1", Port: 8080, Protocol: "http"},
		{Host: "10.0.0.2", Port: 8080, Protocol: "http"},
	}}}
	pool := NewPool(provider, testPoolConfig(), logger.NewNopLogger())
	require.NoError(t, pool.Load(context.Background(), 2))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		ep, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		assert.False(t, seen[ep.String()], "endpoint handed out twice")
		seen[ep.String()] = true
	}
	assert.Equal(t, 0, pool.Size())
}

func TestPoolReloadsWhenEmpty(t *testing.T) {
	provider := &fakeProvider{batches: [][]*Endpoint{
		{{Host: "10.0.0.1", Port: 8080, Protocol: "http"}},
	}}
	pool := NewPool(provider, testPoolConfig(), logger.NewNopLogger())

	// No explicit Load; the first Acquire triggers one.
	ep, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ep.Host)
	assert.Equal(t, 1, provider.fetchCalls)
}

func TestPoolExpiredEndpointNeverHandedOut(t *testing.T) {
	expired := &Endpoint{
		Host: "10.0.0.1", Port: 8080, Protocol: "http",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	fresh := &Endpoint{Host: "10.0.0.2", Port: 8080, Protocol: "http"}

	// Three batches so retries can drain the expired endpoint and
	// still find the fresh one.
	provider := &fakeProvider{batches: [][]*Endpoint{
		{expired}, {fresh},
	}}
	pool := NewPool(provider, testPoolConfig(), logger.NewNopLogger())
	require.NoError(t, pool.Load(context.Background(), 1))

	ep, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", ep.Host)
}

func TestPoolInvalidateMatchesFullIdentity(t *testing.T) {
	a := &Endpoint{Host: "10.0.0.1", Port: 8080, Protocol: "http", User: "u1"}
	b := &Endpoint{Host: "10.0.0.1", Port: 8080, Protocol: "http", User: "u2"}
	provider := &fakeProvider{batches: [][]*Endpoint{{a, b}}}
	pool := NewPool(provider, testPoolConfig(), logger.NewNopLogger())
	require.NoError(t, pool.Load(context.Background(), 2))

	// Same host and port but a different user must not match.
	pool.Invalidate(context.Background(), &Endpoint{
		Host: "10.0.0.1", Port: 8080, Protocol: "http", User: "u1",
	})
	assert.Equal(t, 1, pool.Size())
	require.Len(t, provider.invalidated, 1)
	assert.Equal(t, "u1", provider.invalidated[0].User)
}

func TestPoolAcquireFailsAfterBoundedRetries(t *testing.T) {
	provider := &fakeProvider{fetchErr: ErrProvider}
	pool := NewPool(provider, testPoolConfig(), logger.NewNopLogger())

	_, err := pool.Acquire(context.Background())
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestEndpointExpiry(t *testing.T) {
	ep := &Endpoint{Host: "10.0.0.1", Port: 8080, Protocol: "http"}
	assert.False(t, ep.IsExpired(), "no expiry set")

	ep.ExpiresAt = time.Now().Add(time.Hour).Unix()
	assert.False(t, ep.IsExpired())

	ep.ExpiresAt = time.Now().Add(-time.Second).Unix()
	assert.True(t, ep.IsExpired())
}

func TestEndpointURL(t *testing.T) {
	ep := &Endpoint{Host: "10.0.0.1", Port: 8080, Protocol: "http", User: "u", Password: "p"}
	u := ep.URL()
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "10.0.0.1:8080", u.Host)
	pass, _ := u.User.Password()
	assert.Equal(t, "u", u.User.Username())
	assert.Equal(t, "p", pass)
}
