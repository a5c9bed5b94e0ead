// internal/webhook/lock_test.go
package webhook

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestKeyedMutex_Exclusive(t *testing.T) {
	m := NewKeyedMutex()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, unlock, err := m.Lock(context.Background(), "hook")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, m.locks, "released keys must be dropped")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	m := NewKeyedMutex()

	_, unlockA, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, unlockB, err := m.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	m := NewKeyedMutex()

	_, unlock, err := m.Lock(context.Background(), "hook")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = m.Lock(ctx, "hook")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Empty(t, m.locks)
}

func TestKeyedMutex_UnlockCancelsHeldContext(t *testing.T) {
	m := NewKeyedMutex()

	held, unlock, err := m.Lock(context.Background(), "hook")
	require.NoError(t, err)
	require.NoError(t, held.Err())

	unlock()
	assert.ErrorIs(t, held.Err(), context.Canceled)
	assert.NotErrorIs(t, context.Cause(held), ErrLockLost)
}

func newTestRedisLocker(t *testing.T, opts RedisLockOptions) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, opts, zaptest.NewLogger(t)), mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	locker, mr := newTestRedisLocker(t, RedisLockOptions{TTL: time.Minute})

	_, unlock, err := locker.Lock(context.Background(), "hook")
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisLockPrefix+"hook"))
	assert.Greater(t, mr.TTL(redisLockPrefix+"hook"), time.Duration(0))

	unlock()
	assert.False(t, mr.Exists(redisLockPrefix+"hook"))
}

func TestRedisLocker_ContendedTimesOut(t *testing.T) {
	locker, _ := newTestRedisLocker(t, RedisLockOptions{
		TTL:           time.Minute,
		MaxWait:       100 * time.Millisecond,
		RetryInterval: 10 * time.Millisecond,
	})

	_, unlock, err := locker.Lock(context.Background(), "hook")
	require.NoError(t, err)
	defer unlock()

	_, _, err = locker.Lock(context.Background(), "hook")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockNotAcquired), "got %v", err)
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	locker, _ := newTestRedisLocker(t, RedisLockOptions{
		TTL:           time.Minute,
		MaxWait:       2 * time.Second,
		RetryInterval: 5 * time.Millisecond,
	})

	_, unlock, err := locker.Lock(context.Background(), "hook")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		unlock()
	}()

	_, unlock2, err := locker.Lock(context.Background(), "hook")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	locker, mr := newTestRedisLocker(t, RedisLockOptions{TTL: time.Second})

	_, unlock, err := locker.Lock(context.Background(), "hook")
	require.NoError(t, err)

	// the lock expires and another holder takes it
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set(redisLockPrefix+"hook", "other-holder"))

	unlock()
	value, err := mr.Get(redisLockPrefix + "hook")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", value)
}

func TestRedisLocker_RenewsLeaseWhileHeld(t *testing.T) {
	locker, mr := newTestRedisLocker(t, RedisLockOptions{
		TTL:           time.Second,
		MaxWait:       100 * time.Millisecond,
		RetryInterval: 10 * time.Millisecond,
		RenewInterval: 10 * time.Millisecond,
	})
	key := redisLockPrefix + "hook"

	held, unlock, err := locker.Lock(context.Background(), "hook")
	require.NoError(t, err)
	defer unlock()

	// hold the lock for longer than one TTL in total
	for i := 0; i < 3; i++ {
		mr.FastForward(600 * time.Millisecond)
		require.True(t, mr.Exists(key))
		require.Eventually(t, func() bool {
			return mr.TTL(key) > 900*time.Millisecond
		}, time.Second, 5*time.Millisecond, "lease was not renewed")
	}

	_, _, err = locker.Lock(context.Background(), "hook")
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.NoError(t, held.Err())
}

func TestRedisLocker_ExpiredLeaseCancelsHolder(t *testing.T) {
	locker, mr := newTestRedisLocker(t, RedisLockOptions{
		TTL:           time.Second,
		MaxWait:       time.Second,
		RetryInterval: 5 * time.Millisecond,
		RenewInterval: 10 * time.Millisecond,
	})

	heldA, unlockA, err := locker.Lock(context.Background(), "hook")
	require.NoError(t, err)
	defer unlockA()

	// the holder stalls past its TTL and a second holder takes the key
	mr.FastForward(31 * time.Second)
	heldB, unlockB, err := locker.Lock(context.Background(), "hook")
	require.NoError(t, err)
	defer unlockB()

	require.Eventually(t, func() bool {
		return heldA.Err() != nil
	}, time.Second, 5*time.Millisecond, "first holder was not told it lost the lock")
	assert.ErrorIs(t, context.Cause(heldA), ErrLockLost)
	assert.NoError(t, heldB.Err())

	// the stale holder's release leaves the new holder's key alone
	unlockA()
	assert.True(t, mr.Exists(redisLockPrefix+"hook"))
}

func TestRedisLocker_DefaultRenewInterval(t *testing.T) {
	locker, _ := newTestRedisLocker(t, RedisLockOptions{})

	assert.Equal(t, 30*time.Second, locker.opts.TTL)
	assert.Equal(t, 10*time.Second, locker.opts.RenewInterval)
}
