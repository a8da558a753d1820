package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/logger"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

const tencentKlineDays = 30

type tencentRepository struct {
	client         *resty.Client
	klineBaseURL   string
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewTencentRepository creates a quote provider for the Tencent public quote API.
func NewTencentRepository(cfg *config.Config, log *logger.Logger) MarketDataRepository {
	client := resty.New()
	client.SetBaseURL(cfg.MarketData.TencentBaseURL)
	client.SetTimeout(cfg.Monitor.FetchTimeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; stock-monitor/1.0)")

	return &tencentRepository{
		client:         client,
		klineBaseURL:   cfg.MarketData.TencentKlineURL,
		logger:         log,
		requestLimiter: newMinuteLimiter(cfg.MarketData.MaxRequestPerMinute),
	}
}

func (r *tencentRepository) Name() string { return "tencent" }

func (r *tencentRepository) GetCurrentPrice(ctx context.Context, symbol string) (*dto.Quote, error) {
	prefix := ExchangePrefix(symbol)
	if prefix == "" {
		return nil, fmt.Errorf("unsupported symbol %q", symbol)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := r.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get("/q=" + prefix + symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to request quote: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("received non-OK response from tencent: %d", resp.StatusCode())
	}

	decoded, err := io.ReadAll(transform.NewReader(body, simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode quote body: %w", err)
	}

	quote, err := parseTencentQuote(symbol, string(decoded))
	if err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "Fetched tencent quote", logger.StringField("symbol", symbol), logger.Float64Field("price", quote.Price))
	return quote, nil
}

// parseTencentQuote parses `v_sh600519="1~name~600519~price~prev~open~...";`.
func parseTencentQuote(symbol, body string) (*dto.Quote, error) {
	start := strings.Index(body, `"`)
	end := strings.LastIndex(body, `"`)
	if start < 0 || end <= start {
		return nil, fmt.Errorf("unexpected quote payload for %s", symbol)
	}
	fields := strings.Split(body[start+1:end], "~")
	if len(fields) < 35 {
		return nil, fmt.Errorf("quote payload for %s has %d fields", symbol, len(fields))
	}

	num := func(i int) float64 {
		v, _ := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		return v
	}
	price := num(3)
	if price <= 0 {
		return nil, fmt.Errorf("no price for %s (suspended?)", symbol)
	}

	at := time.Now()
	if ts, err := time.ParseInLocation("20060102150405", fields[30], time.FixedZone("CST", 8*60*60)); err == nil {
		at = ts
	}

	return &dto.Quote{
		Symbol:    symbol,
		Name:      fields[1],
		Price:     price,
		PrevClose: num(4),
		Open:      num(5),
		Volume:    num(6),
		ChangePct: num(32),
		High:      num(33),
		Low:       num(34),
		Source:    "tencent",
		At:        at,
	}, nil
}

type tencentKlineResponse struct {
	Code int                                   `json:"code"`
	Msg  string                                `json:"msg"`
	Data map[string]map[string]json.RawMessage `json:"data"`
}

func (r *tencentRepository) GetMovingAverages(ctx context.Context, symbol string) (*dto.MovingAverages, error) {
	prefix := ExchangePrefix(symbol)
	if prefix == "" {
		return nil, fmt.Errorf("unsupported symbol %q", symbol)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	var result tencentKlineResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("param", fmt.Sprintf("%s%s,day,,,%d,qfq", prefix, symbol, tencentKlineDays)).
		SetResult(&result).
		ForceContentType("application/json").
		Get(r.klineBaseURL + "/appstock/app/fqkline/get")
	if err != nil {
		return nil, fmt.Errorf("failed to request kline: %w", err)
	}
	if resp.IsError() || result.Code != 0 {
		return nil, fmt.Errorf("kline request failed: status %d, code %d %s", resp.StatusCode(), result.Code, result.Msg)
	}

	closes, err := tencentCloses(result.Data[prefix+symbol])
	if err != nil {
		return nil, err
	}
	return movingAveragesFromCloses(closes, r.Name())
}

// tencentCloses extracts closing prices, oldest first, from qfqday or day rows
// of the form [date, open, close, high, low, volume].
func tencentCloses(series map[string]json.RawMessage) ([]float64, error) {
	raw, ok := series["qfqday"]
	if !ok {
		raw = series["day"]
	}
	var rows [][]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode klines: %w", err)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no daily klines returned")
	}
	closes := make([]float64, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		s, ok := row[2].(string)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		closes = append(closes, v)
	}
	return closes, nil
}

func newMinuteLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
