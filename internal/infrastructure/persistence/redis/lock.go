package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockNotAcquired is returned when the lock could not be taken before
// the context ended.
var ErrLockNotAcquired = errors.New("redis: lock not acquired")

// LockerConfig configures a Locker.
type LockerConfig struct {
	// TTL bounds how long a crashed holder keeps the lock.
	TTL time.Duration

	// RetryInterval is the initial wait between acquisition attempts.
	RetryInterval time.Duration

	// MaxRetryInterval caps the backoff between attempts.
	MaxRetryInterval time.Duration
}

// DefaultLockerConfig returns defaults suited to short pet mutations.
func DefaultLockerConfig() LockerConfig {
	return LockerConfig{
		TTL:              TTLDistributedLock,
		RetryInterval:    10 * time.Millisecond,
		MaxRetryInterval: 200 * time.Millisecond,
	}
}

// Locker is a per-key mutex shared by every process using the same Redis.
type Locker struct {
	client *Client
	cfg    LockerConfig
}

// NewLocker creates a Locker.
func NewLocker(client *Client, cfg LockerConfig) *Locker {
	def := DefaultLockerConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.MaxRetryInterval < cfg.RetryInterval {
		cfg.MaxRetryInterval = def.MaxRetryInterval
	}
	return &Locker{client: client, cfg: cfg}
}

// Lock blocks until the lock for key is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.client.LockKey(key)
	token := uuid.NewString()
	wait := l.cfg.RetryInterval

	for {
		ok, err := l.client.Redis().SetNX(ctx, lockKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, key, ctx.Err())
		case <-time.After(wait):
		}
		wait = min(wait*2, l.cfg.MaxRetryInterval)
	}

	return func() {
		// Released with a fresh context so a cancelled request still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client.Redis(), []string{lockKey}, token).Err()
	}, nil
}
