package dto

import (
	"time"

	"golang-stock-monitor/pkg/market"
)

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// MarketSnapshot is the market context sent to the decision service.
type MarketSnapshot struct {
	Price     *float64 `json:"price,omitempty"`
	ChangePct float64  `json:"change_pct"`
	High      float64  `json:"high"`
	Low       float64  `json:"low"`
	MA5       *float64 `json:"ma5,omitempty"`
	MA20      *float64 `json:"ma20,omitempty"`
}

// AccountSnapshot summarises the account the decision applies to.
type AccountSnapshot struct {
	Cash          float64 `json:"cash"`
	PositionCount int     `json:"position_count"`
}

// PositionSnapshot describes the currently held position, if any.
type PositionSnapshot struct {
	EntryPrice   float64   `json:"entry_price"`
	Quantity     int       `json:"quantity"`
	BuyDate      time.Time `json:"buy_date"`
	HoldingDays  int       `json:"holding_days"`
	ProfitPct    float64   `json:"profit_pct"`
	CanSellToday bool      `json:"can_sell_today"`
}

// DecisionRequest is everything the gate needs to ask for a decision.
type DecisionRequest struct {
	Symbol     string             `json:"symbol"`
	Name       string             `json:"name"`
	PositionID *uint              `json:"position_id,omitempty"`
	AlertID    *uint              `json:"alert_id,omitempty"`
	Trigger    string             `json:"trigger,omitempty"`
	Market     MarketSnapshot     `json:"market"`
	Account    AccountSnapshot    `json:"account"`
	Position   *PositionSnapshot  `json:"position,omitempty"`
	Session    market.SessionInfo `json:"session"`
}

// PriceLevels are the key levels the model reports.
type PriceLevels struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	StopLoss   float64 `json:"stop_loss"`
}

// DecisionPayload is the structured object expected inside the model reply.
type DecisionPayload struct {
	Action          *string      `json:"action" validate:"required,oneof=BUY SELL HOLD"`
	Confidence      *float64     `json:"confidence" validate:"required,gte=0,lte=100"`
	Reasoning       *string      `json:"reasoning" validate:"required,min=1"`
	PositionSizePct *float64     `json:"position_size_pct" validate:"omitempty,gte=0,lte=100"`
	StopLossPct     *float64     `json:"stop_loss_pct" validate:"omitempty,gte=0"`
	TakeProfitPct   *float64     `json:"take_profit_pct" validate:"omitempty,gte=0"`
	RiskLevel       *string      `json:"risk_level" validate:"omitempty,oneof=low medium high"`
	KeyPriceLevels  *PriceLevels `json:"key_price_levels"`
}

// Decision is the sanitized output of the decision gate.
type Decision struct {
	Symbol          string      `json:"symbol"`
	Action          string      `json:"action"`
	Confidence      int         `json:"confidence"`
	Reasoning       string      `json:"reasoning"`
	PositionSizePct float64     `json:"position_size_pct"`
	StopLossPct     float64     `json:"stop_loss_pct"`
	TakeProfitPct   float64     `json:"take_profit_pct"`
	RiskLevel       string      `json:"risk_level"`
	PriceLevels     PriceLevels `json:"price_levels"`
	// Executable is false for analysis-only decisions made outside a tradable session.
	Executable bool   `json:"executable"`
	Overridden bool   `json:"overridden"`
	ParseError string `json:"parse_error,omitempty"`
	Session    string `json:"session"`
	Provider   string `json:"provider"`
	Raw        string `json:"-"`
}
