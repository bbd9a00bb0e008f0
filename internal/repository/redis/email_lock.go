package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	defaultLockPrefix = "auth:lock"

	lockTTL          = 10 * time.Second
	lockRetryBase    = 25 * time.Millisecond
	lockAcquireLimit = 8 * time.Second
)

// releaseScript deletes the lock only when the stored owner token matches, so
// a holder that outlived its TTL cannot release a lock someone else now owns.
var releaseScript = red.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// EmailLocker serializes token issuance and verification per email address
// across instances using a Redis SET NX lock with an owner token.
type EmailLocker struct {
	client *red.Client
	prefix string
	log    *zap.Logger
}

// NewEmailLocker constructs an EmailLocker with the provided key prefix.
func NewEmailLocker(client *red.Client, keyPrefix string, log *zap.Logger) *EmailLocker {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultLockPrefix
	}

	return &EmailLocker{client: client, prefix: prefix, log: log}
}

// Acquire blocks until the per-key lock is held or the context ends. The
// returned release function is safe to call exactly once; it only removes the
// lock if this caller still owns it.
func (l *EmailLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := fmt.Sprintf("%s:%s", l.prefix, key)
	owner := uuid.NewString()

	backoff := retry.WithMaxDuration(lockAcquireLimit, retry.NewFibonacci(lockRetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, lockKey, owner, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("redis setnx lock: %w", err)
		}
		if !ok {
			return retry.RetryableError(fmt.Errorf("lock %s held elsewhere", lockKey))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockKey, err)
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{lockKey}, owner).Err(); err != nil {
			l.log.Warn("release lock failed",
				zap.String("key", lockKey),
				zap.Error(err),
			)
		}
	}
	return release, nil
}
