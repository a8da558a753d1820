package repository

import (
	"context"
	"fmt"
	"time"

	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/common"

	"github.com/patrickmn/go-cache"
)

type cachedMarketDataRepository struct {
	next          MarketDataRepository
	inmemoryCache *cache.Cache
	ttl           time.Duration
}

// NewCachedMarketDataRepository memoises quotes and moving averages for ttl.
// Failed lookups are not cached.
func NewCachedMarketDataRepository(next MarketDataRepository, ttl time.Duration) MarketDataRepository {
	return &cachedMarketDataRepository{
		next:          next,
		inmemoryCache: cache.New(ttl, 2*ttl),
		ttl:           ttl,
	}
}

func (r *cachedMarketDataRepository) Name() string { return r.next.Name() }

func (r *cachedMarketDataRepository) GetCurrentPrice(ctx context.Context, symbol string) (*dto.Quote, error) {
	key := fmt.Sprintf(common.CacheKeyQuote, symbol)
	if v, ok := r.inmemoryCache.Get(key); ok {
		q := *v.(*dto.Quote)
		return &q, nil
	}
	q, err := r.next.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r.inmemoryCache.Set(key, q, r.ttl)
	return q, nil
}

func (r *cachedMarketDataRepository) GetMovingAverages(ctx context.Context, symbol string) (*dto.MovingAverages, error) {
	key := fmt.Sprintf(common.CacheKeyMovingAverages, symbol)
	if v, ok := r.inmemoryCache.Get(key); ok {
		ma := *v.(*dto.MovingAverages)
		return &ma, nil
	}
	ma, err := r.next.GetMovingAverages(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r.inmemoryCache.Set(key, ma, r.ttl)
	return ma, nil
}
