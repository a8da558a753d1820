package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/common"
	"golang-stock-monitor/pkg/logger"
)

// MarketDataRepository is a source of quotes and moving averages.
type MarketDataRepository interface {
	Name() string
	GetCurrentPrice(ctx context.Context, symbol string) (*dto.Quote, error)
	GetMovingAverages(ctx context.Context, symbol string) (*dto.MovingAverages, error)
}

type providerChain struct {
	providers []MarketDataRepository
	logger    *logger.Logger
}

// NewProviderChain tries each provider in order until one succeeds.
func NewProviderChain(log *logger.Logger, providers ...MarketDataRepository) MarketDataRepository {
	return &providerChain{providers: providers, logger: log}
}

func (c *providerChain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *providerChain) GetCurrentPrice(ctx context.Context, symbol string) (*dto.Quote, error) {
	return tryProviders(ctx, c, symbol, "get current price", func(p MarketDataRepository) (*dto.Quote, error) {
		return p.GetCurrentPrice(ctx, symbol)
	})
}

func (c *providerChain) GetMovingAverages(ctx context.Context, symbol string) (*dto.MovingAverages, error) {
	return tryProviders(ctx, c, symbol, "get moving averages", func(p MarketDataRepository) (*dto.MovingAverages, error) {
		return p.GetMovingAverages(ctx, symbol)
	})
}

func tryProviders[T any](ctx context.Context, c *providerChain, symbol, op string, call func(MarketDataRepository) (*T, error)) (*T, error) {
	if len(c.providers) == 0 {
		return nil, &common.ProviderError{Provider: "chain", Op: op, Err: errors.New("no providers configured")}
	}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := call(p)
		if err == nil {
			return result, nil
		}
		c.logger.WarnContext(ctx, "Market data provider failed",
			logger.StringField("provider", p.Name()),
			logger.StringField("symbol", symbol),
			logger.StringField("op", op),
			logger.ErrorField(err))
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return nil, &common.ProviderError{Provider: c.Name(), Op: op, Err: errors.Join(errs...)}
}

// ExchangePrefix returns the exchange of a six-digit A-share code: sh, sz or bj.
// Other symbols return an empty string.
func ExchangePrefix(symbol string) string {
	if len(symbol) != 6 {
		return ""
	}
	for _, r := range symbol {
		if r < '0' || r > '9' {
			return ""
		}
	}
	switch symbol[0] {
	case '6', '9':
		return "sh"
	case '0', '2', '3':
		return "sz"
	case '4', '8':
		return "bj"
	}
	return ""
}

// SimpleMovingAverage averages the last n values; ok is false when fewer than n exist.
func SimpleMovingAverage(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

func movingAveragesFromCloses(closes []float64, source string) (*dto.MovingAverages, error) {
	ma5, ok5 := SimpleMovingAverage(closes, 5)
	ma20, ok20 := SimpleMovingAverage(closes, 20)
	if !ok5 || !ok20 {
		return nil, fmt.Errorf("not enough history: %d closes", len(closes))
	}
	return &dto.MovingAverages{MA5: ma5, MA20: ma20, Source: source}, nil
}

// NewMarketDataRepository builds the provider chain named by cfg.MarketData.Providers,
// wrapped in a short-lived cache when CacheTTL is set.
func NewMarketDataRepository(cfg *config.Config, log *logger.Logger) (MarketDataRepository, error) {
	var providers []MarketDataRepository
	for _, name := range cfg.MarketData.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "tencent":
			providers = append(providers, NewTencentRepository(cfg, log))
		case "yahoo":
			providers = append(providers, NewYahooRepository(cfg, log))
		default:
			return nil, fmt.Errorf("invalid market data provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, errors.New("no market data providers configured")
	}

	var repo MarketDataRepository = NewProviderChain(log, providers...)
	if cfg.MarketData.CacheTTL > 0 {
		repo = NewCachedMarketDataRepository(repo, cfg.MarketData.CacheTTL)
	}
	return repo, nil
}
