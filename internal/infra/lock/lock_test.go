package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, ttl), mr
}

func TestLockerAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	locker, _ := newTestLocker(t, time.Minute)

	release, err := locker.Acquire(ctx, "task-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "task-1")
	assert.True(t, errors.Is(err, ErrLockHeld))

	// 不同 key 互不影响
	other, err := locker.Acquire(ctx, "task-2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))

	again, err := locker.Acquire(ctx, "task-1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLockerExpires(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t, time.Second)

	_, err := locker.Acquire(ctx, "task-3")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	release, err := locker.Acquire(ctx, "task-3")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestLockerRedisUnavailableIsNotHeld(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t, time.Minute)
	mr.Close()

	release, err := locker.Acquire(ctx, "task-9")
	require.Error(t, err)
	assert.Nil(t, release)
	assert.False(t, errors.Is(err, ErrLockHeld))
}
