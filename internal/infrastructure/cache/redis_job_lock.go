package cache

import (
	"context"
	"fmt"
	"time"

	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	"github.com/fieldops/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisJobLock implements the reconciliation job lease on Redis. The lease is
// a single key with a TTL so a crashed holder never blocks the next run for
// longer than the TTL.
type RedisJobLock struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisJobLock creates a job lock backed by a new Redis connection
func NewRedisJobLock(cfg *config.RedisConfig) (*RedisJobLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisJobLock{
		client:    client,
		keyPrefix: "job_lock:",
	}, nil
}

// NewRedisJobLockWithClient creates a job lock sharing an existing Redis client
func NewRedisJobLockWithClient(client *redis.Client, keyPrefix string) *RedisJobLock {
	if keyPrefix == "" {
		keyPrefix = "job_lock:"
	}
	return &RedisJobLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire takes the lease for name if nobody holds it. Returns false when
// another holder already has it.
func (l *RedisJobLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+name, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire job lock %q: %w", name, err)
	}
	return ok, nil
}

// Release drops the lease for name. Releasing a lease that already expired
// is a no-op.
func (l *RedisJobLock) Release(ctx context.Context, name string) error {
	if err := l.client.Del(ctx, l.keyPrefix+name).Err(); err != nil {
		return fmt.Errorf("failed to release job lock %q: %w", name, err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisJobLock) Close() error {
	return l.client.Close()
}

// Ensure RedisJobLock implements JobLock
var _ ledgerapp.JobLock = (*RedisJobLock)(nil)
