package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestAcquireRelease(t *testing.T) {
	client := newTestClient(t)
	factory := &RedisFactory{Client: client}

	lock := factory.LockFor("delivery:contact:c1", time.Minute)
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	// Second holder is rejected while the lock is held
	other := factory.LockFor("delivery:contact:c1", time.Minute)
	ok, err = other.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(context.Background()))

	ok, err = other.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseOnlyReleasesOwnLock(t *testing.T) {
	client := newTestClient(t)
	factory := &RedisFactory{Client: client}

	holder := factory.LockFor("k", time.Minute)
	ok, err := holder.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// A different instance releasing the same key must be a no-op
	stranger := factory.LockFor("k", time.Minute)
	require.NoError(t, stranger.Release(context.Background()))

	again := factory.LockFor("k", time.Minute)
	ok, err = again.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "lock should still be held by the original owner")
}

func TestDistinctKeysDoNotContend(t *testing.T) {
	client := newTestClient(t)
	factory := &RedisFactory{Client: client}

	a, _ := factory.LockFor("delivery:contact:a", time.Minute).(*RedisLock)
	b, _ := factory.LockFor("delivery:contact:b", time.Minute).(*RedisLock)

	okA, err := a.Acquire(context.Background())
	require.NoError(t, err)
	okB, err := b.Acquire(context.Background())
	require.NoError(t, err)

	assert.True(t, okA)
	assert.True(t, okB)
}
