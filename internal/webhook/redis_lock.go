// internal/webhook/redis_lock.go
package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisLockPrefix = "wallets:webhook-lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key's TTL only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLockOptions configures RedisLocker.
type RedisLockOptions struct {
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// MaxWait bounds lock acquisition.
	MaxWait time.Duration
	// RetryInterval is the initial polling interval.
	RetryInterval time.Duration
	// RenewInterval is how often a holder extends its lease. Defaults to TTL/3.
	RenewInterval time.Duration
}

// RedisLocker is a Locker shared by every process using the same Redis.
type RedisLocker struct {
	rdb    redis.UniversalClient
	opts   RedisLockOptions
	logger *zap.Logger
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(rdb redis.UniversalClient, opts RedisLockOptions, logger *zap.Logger) *RedisLocker {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = opts.TTL
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	if opts.RenewInterval <= 0 || opts.RenewInterval >= opts.TTL {
		opts.RenewInterval = opts.TTL / 3
	}
	return &RedisLocker{
		rdb:    rdb,
		opts:   opts,
		logger: logger.Named("redis-lock"),
	}
}

// Lock implements Locker using SET NX PX with a per-holder token. While held,
// the lease is renewed every RenewInterval. If a renewal finds the key gone or
// owned by someone else, or renewals keep failing until the lease would have
// expired, the held context is cancelled with ErrLockLost.
func (l *RedisLocker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	redisKey := redisLockPrefix + key
	token := uuid.NewString()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.opts.RetryInterval
	policy.MaxInterval = l.opts.RetryInterval * 10

	operation := func() (bool, error) {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.opts.TTL).Result()
		if err != nil {
			return false, backoff.Permanent(fmt.Errorf("setnx failed: %w", err))
		}
		if !ok {
			return false, ErrLockNotAcquired
		}
		return true, nil
	}

	if _, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(l.opts.MaxWait)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrLockNotAcquired) {
			return nil, nil, ctxErr
		}
		return nil, nil, err
	}
	acquired := time.Now()

	l.logger.Debug("Lock acquired", zap.String("key", redisKey))

	held, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go l.renew(held, cancel, done, redisKey, token, acquired)

	var once sync.Once
	return held, func() {
		once.Do(func() {
			close(done)
			cancel(context.Canceled)

			// release even when the caller's context is already cancelled
			releaseCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer stop()
			if err := releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("Failed to release lock", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}, nil
}

func (l *RedisLocker) renew(held context.Context, lose context.CancelCauseFunc, done <-chan struct{}, redisKey, token string, extended time.Time) {
	ticker := time.NewTicker(l.opts.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-held.Done():
			return
		case <-ticker.C:
		}

		renewCtx, stop := context.WithTimeout(context.WithoutCancel(held), l.opts.TTL/2)
		attempt := time.Now()
		n, err := renewScript.Run(renewCtx, l.rdb, []string{redisKey}, token, l.opts.TTL.Milliseconds()).Int()
		stop()

		switch {
		case err == nil && n == 1:
			extended = attempt
		case err == nil:
			l.logger.Warn("Lock lease lost", zap.String("key", redisKey))
			lose(ErrLockLost)
			return
		default:
			l.logger.Warn("Failed to renew lock", zap.String("key", redisKey), zap.Error(err))
			if time.Since(extended)+l.opts.RenewInterval >= l.opts.TTL {
				lose(ErrLockLost)
				return
			}
		}
	}
}
