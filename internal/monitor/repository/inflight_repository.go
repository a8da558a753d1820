package repository

import (
	"context"
	"fmt"
	"time"

	"golang-stock-monitor/pkg/common"
	redisPkg "golang-stock-monitor/pkg/redis"

	"github.com/patrickmn/go-cache"
)

// InflightRepository marks positions whose evaluation is in progress so that
// overlapping cycles skip them.
type InflightRepository interface {
	Acquire(ctx context.Context, positionID uint, ttl time.Duration) (bool, error)
	Release(ctx context.Context, positionID uint) error
}

type redisInflightRepository struct {
	redisClient *redisPkg.Client
}

// NewRedisInflightRepository shares inflight markers across processes through Redis.
func NewRedisInflightRepository(redisClient *redisPkg.Client) InflightRepository {
	return &redisInflightRepository{redisClient: redisClient}
}

func (r *redisInflightRepository) Acquire(ctx context.Context, positionID uint, ttl time.Duration) (bool, error) {
	ok, err := r.redisClient.SetNX(ctx, fmt.Sprintf(common.RedisKeyInflight, positionID), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire inflight marker: %w", err)
	}
	return ok, nil
}

func (r *redisInflightRepository) Release(ctx context.Context, positionID uint) error {
	return r.redisClient.Del(ctx, fmt.Sprintf(common.RedisKeyInflight, positionID)).Err()
}

type memoryInflightRepository struct {
	inmemoryCache *cache.Cache
}

// NewMemoryInflightRepository keeps inflight markers in process memory.
func NewMemoryInflightRepository() InflightRepository {
	return &memoryInflightRepository{
		inmemoryCache: cache.New(cache.NoExpiration, time.Minute),
	}
}

func (r *memoryInflightRepository) Acquire(_ context.Context, positionID uint, ttl time.Duration) (bool, error) {
	// Add fails when an unexpired marker exists
	if err := r.inmemoryCache.Add(fmt.Sprintf(common.RedisKeyInflight, positionID), struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *memoryInflightRepository) Release(_ context.Context, positionID uint) error {
	r.inmemoryCache.Delete(fmt.Sprintf(common.RedisKeyInflight, positionID))
	return nil
}
