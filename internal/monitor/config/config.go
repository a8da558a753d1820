package config

import (
	"fmt"
	"time"

	"golang-stock-monitor/pkg/config"
	"golang-stock-monitor/pkg/market"
	"golang-stock-monitor/pkg/utils"
)

// Monitor holds evaluation and delivery settings.
type Monitor struct {
	PollInterval             time.Duration `mapstructure:"poll_interval"`
	DeliveryInterval         time.Duration `mapstructure:"delivery_interval"`
	AlertCooldown            time.Duration `mapstructure:"alert_cooldown"`
	MaxHoldingDays           int           `mapstructure:"max_holding_days"`
	WorkerPoolSize           int           `mapstructure:"worker_pool_size"`
	FetchTimeout             time.Duration `mapstructure:"fetch_timeout"`
	PositionTimeout          time.Duration `mapstructure:"position_timeout"`
	InflightTTL              time.Duration `mapstructure:"inflight_ttl"`
	AlertRetentionDays       int           `mapstructure:"alert_retention_days"`
	HoldingDaysCron          string        `mapstructure:"holding_days_cron"`
	PurgeCron                string        `mapstructure:"purge_cron"`
	DecisionEnabled          bool          `mapstructure:"decision_enabled"`
	DecisionTimeout          time.Duration `mapstructure:"decision_timeout"`
	AnalysisOnlyOutsideHours bool          `mapstructure:"analysis_only_outside_hours"`
	AccountCash              float64       `mapstructure:"account_cash"`
}

// Session holds the exchange session cutoffs, as "HH:MM" in Timezone.
type Session struct {
	Timezone       string   `mapstructure:"timezone"`
	PreOpenStart   string   `mapstructure:"pre_open_start"`
	MorningStart   string   `mapstructure:"morning_start"`
	LunchStart     string   `mapstructure:"lunch_start"`
	AfternoonStart string   `mapstructure:"afternoon_start"`
	ClosingStart   string   `mapstructure:"closing_start"`
	AfternoonEnd   string   `mapstructure:"afternoon_end"`
	Holidays       []string `mapstructure:"holidays"`
}

// MarketData holds quote provider settings. Providers are tried in order.
type MarketData struct {
	Providers           []string      `mapstructure:"providers"`
	TencentBaseURL      string        `mapstructure:"tencent_base_url"`
	TencentKlineURL     string        `mapstructure:"tencent_kline_url"`
	YahooBaseURL        string        `mapstructure:"yahoo_base_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

// AI selects the LLM decision provider: gemini, anthropic, deepseek, openai or ollama.
type AI struct {
	Provider            string  `mapstructure:"provider"`
	Temperature         float32 `mapstructure:"temperature"`
	MaxTokens           int     `mapstructure:"max_tokens"`
	MaxRequestPerMinute int     `mapstructure:"max_request_per_minute"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Anthropic holds the configuration for the Anthropic API.
type Anthropic struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAI holds an OpenAI-compatible chat completions endpoint (DeepSeek, Ollama).
type OpenAI struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the monitor service.
type Config struct {
	App        config.App      `mapstructure:"app"`
	Logger     config.Logger   `mapstructure:"logger"`
	Database   config.Database `mapstructure:"database"`
	Redis      config.Redis    `mapstructure:"redis"`
	API        config.API      `mapstructure:"api"`
	Monitor    Monitor         `mapstructure:"monitor"`
	Session    Session         `mapstructure:"session"`
	MarketData MarketData      `mapstructure:"market_data"`
	AI         AI              `mapstructure:"ai"`
	Gemini     Gemini          `mapstructure:"gemini"`
	Anthropic  Anthropic       `mapstructure:"anthropic"`
	OpenAI     OpenAI          `mapstructure:"openai"`
	Telegram   Telegram        `mapstructure:"telegram"`
}

// Defaults returns the fallback values for every monitor setting.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"app.name":                            "stock-monitor",
		"logger.level":                        "info",
		"logger.encoding":                     "json",
		"database.driver":                     "sqlite",
		"database.path":                       "monitor.db",
		"database.ssl_mode":                   "disable",
		"api.port":                            8080,
		"monitor.poll_interval":               "60s",
		"monitor.delivery_interval":           "30s",
		"monitor.alert_cooldown":              "60m",
		"monitor.max_holding_days":            5,
		"monitor.worker_pool_size":            4,
		"monitor.fetch_timeout":               "10s",
		"monitor.position_timeout":            "90s",
		"monitor.inflight_ttl":                "5m",
		"monitor.alert_retention_days":        30,
		"monitor.holding_days_cron":           "0 9 * * 1-5",
		"monitor.purge_cron":                  "30 3 * * *",
		"monitor.decision_enabled":            false,
		"monitor.decision_timeout":            "60s",
		"monitor.analysis_only_outside_hours": true,
		"monitor.account_cash":                100000.0,
		"session.timezone":                    utils.DefaultExchangeTimezone,
		"session.pre_open_start":              "09:00",
		"session.morning_start":               "09:30",
		"session.lunch_start":                 "11:30",
		"session.afternoon_start":             "13:00",
		"session.closing_start":               "14:30",
		"session.afternoon_end":               "15:00",
		"market_data.providers":               []string{"tencent", "yahoo"},
		"market_data.tencent_base_url":        "https://qt.gtimg.cn",
		"market_data.tencent_kline_url":       "https://web.ifzq.gtimg.cn",
		"market_data.yahoo_base_url":          "https://query2.finance.yahoo.com",
		"market_data.max_request_per_minute":  120,
		"market_data.cache_ttl":               "20s",
		"ai.provider":                         "deepseek",
		"ai.temperature":                      0.3,
		"ai.max_tokens":                       2000,
		"ai.max_request_per_minute":           20,
		"gemini.model":                        "gemini-2.5-flash",
		"anthropic.model":                     "claude-sonnet-4-5",
		"openai.base_url":                     "https://api.deepseek.com/v1",
		"openai.model":                        "deepseek-chat",
	}
}

// Load loads the monitor configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg, Defaults()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Schedule builds the exchange session schedule from the configured cutoffs.
func (s Session) Schedule() (market.Schedule, error) {
	sched := market.Schedule{Location: utils.LoadLocation(s.Timezone)}
	targets := []struct {
		value string
		dst   *market.Clock
	}{
		{s.PreOpenStart, &sched.PreOpenStart},
		{s.MorningStart, &sched.MorningStart},
		{s.LunchStart, &sched.LunchStart},
		{s.AfternoonStart, &sched.AfternoonStart},
		{s.ClosingStart, &sched.ClosingStart},
		{s.AfternoonEnd, &sched.AfternoonEnd},
	}
	for _, target := range targets {
		c, err := market.ParseClock(target.value)
		if err != nil {
			return market.Schedule{}, err
		}
		*target.dst = c
	}
	if len(s.Holidays) > 0 {
		sched.Holidays = make(map[string]struct{}, len(s.Holidays))
		for _, day := range s.Holidays {
			if _, err := time.Parse(time.DateOnly, day); err != nil {
				return market.Schedule{}, fmt.Errorf("invalid holiday %q: %w", day, err)
			}
			sched.Holidays[day] = struct{}{}
		}
	}
	if err := sched.Validate(); err != nil {
		return market.Schedule{}, err
	}
	return sched, nil
}
