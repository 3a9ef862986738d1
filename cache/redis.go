package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"momo-collect/config"
)

const (
	StatusInProgress = "IN_PROGRESS"
	// Completed results are replayed for a day.
	CompletedExpiry = 24 * time.Hour
)

// ErrInProgress means another request for the same merchant reference is
// still running.
var ErrInProgress = errors.New("payment already in progress")

// IdempotencyStore guards a merchant reference across concurrent requests.
type IdempotencyStore interface {
	// CheckOrSetInProgress marks reference as in progress. If the reference
	// already completed, the stored result is returned instead. If it is in
	// progress elsewhere, ErrInProgress is returned.
	CheckOrSetInProgress(ctx context.Context, reference string) ([]byte, error)
	// SetCompleted stores the terminal result for replay.
	SetCompleted(ctx context.Context, reference string, result []byte) error
	// Clear drops the marker so a failed payment can be retried.
	Clear(ctx context.Context, reference string) error
}

// MinInProgressExpiry is the floor for the in-progress marker TTL. A zero
// TTL would disable the guard in memory and never expire in Redis.
const MinInProgressExpiry = time.Minute

// InProgressExpiry outlives one full transaction: every remote call at its
// timeout plus the whole polling budget, or the payment deadline when that
// is longer. A crashed process frees the key after this.
func InProgressExpiry(cfg config.Config) time.Duration {
	const remoteCalls = 4 // apiuser, apikey, token, requesttopay
	calls := remoteCalls + cfg.Poll.Retries
	ttl := time.Duration(calls)*cfg.HTTP.Timeout + time.Duration(cfg.Poll.Retries)*cfg.Poll.Interval
	ttl = max(ttl, cfg.HTTP.PaymentTimeout)
	return max(ttl, MinInProgressExpiry)
}

// RedisStore implements IdempotencyStore with SET NX keys.
type RedisStore struct {
	client     *redis.Client
	inProgress time.Duration
}

func NewRedisStore(cfg config.RedisConfig, inProgress time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: rdb, inProgress: max(inProgress, MinInProgressExpiry)}
}

func key(reference string) string {
	return fmt.Sprintf("momo:ref:%s", reference)
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) CheckOrSetInProgress(ctx context.Context, reference string) ([]byte, error) {
	k := key(reference)

	val, err := r.client.Get(ctx, k).Bytes()
	switch {
	case err == nil && string(val) == StatusInProgress:
		return nil, ErrInProgress
	case err == nil:
		return val, nil
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("redis GET error: %w", err)
	}

	// SET NX makes the check-and-mark atomic across instances.
	set, err := r.client.SetNX(ctx, k, StatusInProgress, r.inProgress).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SETNX error: %w", err)
	}
	if !set {
		return nil, ErrInProgress
	}
	return nil, nil
}

func (r *RedisStore) SetCompleted(ctx context.Context, reference string, result []byte) error {
	return r.client.Set(ctx, key(reference), result, CompletedExpiry).Err()
}

func (r *RedisStore) Clear(ctx context.Context, reference string) error {
	return r.client.Del(ctx, key(reference)).Err()
}
