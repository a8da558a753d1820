package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/logger"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"golang.org/x/time/rate"
)

const yahooHistoryDays = 45

type yahooRepository struct {
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewYahooRepository creates a quote provider backed by Yahoo Finance. The
// finance-go backend is process wide, so the last repository built wins.
func NewYahooRepository(cfg *config.Config, log *logger.Logger) MarketDataRepository {
	if cfg.MarketData.YahooBaseURL != "" {
		finance.SetBackend(finance.YFinBackend, &finance.BackendConfiguration{
			Type:       finance.YFinBackend,
			URL:        strings.TrimRight(cfg.MarketData.YahooBaseURL, "/"),
			HTTPClient: &http.Client{Timeout: cfg.Monitor.FetchTimeout},
		})
	}
	return &yahooRepository{
		logger:         log,
		requestLimiter: newMinuteLimiter(cfg.MarketData.MaxRequestPerMinute),
	}
}

func (r *yahooRepository) Name() string { return "yahoo" }

// YahooSymbol maps an A-share code to its Yahoo ticker; other symbols pass through.
func YahooSymbol(symbol string) string {
	switch ExchangePrefix(symbol) {
	case "sh":
		return symbol + ".SS"
	case "sz":
		return symbol + ".SZ"
	case "bj":
		return symbol + ".BJ"
	}
	return symbol
}

func (r *yahooRepository) GetCurrentPrice(ctx context.Context, symbol string) (*dto.Quote, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	ticker := YahooSymbol(symbol)
	return withContext(ctx, func() (*dto.Quote, error) {
		q, err := quote.Get(ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to get quote for %s: %w", ticker, err)
		}
		if q == nil || q.RegularMarketPrice <= 0 {
			return nil, fmt.Errorf("no quote for %s", ticker)
		}

		at := time.Now()
		if q.RegularMarketTime > 0 {
			at = time.Unix(int64(q.RegularMarketTime), 0)
		}
		return &dto.Quote{
			Symbol:    symbol,
			Name:      q.ShortName,
			Price:     q.RegularMarketPrice,
			PrevClose: q.RegularMarketPreviousClose,
			Open:      q.RegularMarketOpen,
			High:      q.RegularMarketDayHigh,
			Low:       q.RegularMarketDayLow,
			ChangePct: q.RegularMarketChangePercent,
			Volume:    float64(q.RegularMarketVolume),
			Source:    r.Name(),
			At:        at,
		}, nil
	})
}

func (r *yahooRepository) GetMovingAverages(ctx context.Context, symbol string) (*dto.MovingAverages, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	ticker := YahooSymbol(symbol)
	return withContext(ctx, func() (*dto.MovingAverages, error) {
		end := time.Now()
		start := end.AddDate(0, 0, -yahooHistoryDays)
		iter := chart.Get(&chart.Params{
			Symbol:   ticker,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		})

		var closes []float64
		for iter.Next() {
			bar := iter.Bar()
			closes = append(closes, bar.Close.InexactFloat64())
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("failed to get history for %s: %w", ticker, err)
		}
		r.logger.DebugContext(ctx, "Fetched yahoo history", logger.StringField("symbol", ticker), logger.IntField("bars", len(closes)))
		return movingAveragesFromCloses(closes, r.Name())
	})
}

// withContext runs a blocking call that has no context support and abandons it
// when ctx is done.
func withContext[T any](ctx context.Context, fn func() (*T, error)) (*T, error) {
	type result struct {
		value *T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.value, res.err
	}
}
