package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "push:sweep:lock"

// SweepLock is a best-effort cross-instance lock around the dispatcher
// sweep, so two replicas sharing one database don't both attempt the
// same due set. The TTL bounds how long a crashed holder can block
// sweeps.
type SweepLock struct {
	client *redis.Client
}

func NewSweepLock(opts *redis.Options) *SweepLock {
	return &SweepLock{client: redis.NewClient(opts)}
}

// TryAcquire claims the lock for ttl. Returns false when another
// instance holds it.
func (l *SweepLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, sweepLockKey, "1", ttl).Result()
}

// Release drops the lock early so the next tick on any instance can
// sweep.
func (l *SweepLock) Release(ctx context.Context) error {
	return l.client.Del(ctx, sweepLockKey).Err()
}
