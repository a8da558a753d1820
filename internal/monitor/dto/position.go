package dto

import (
	"time"

	"golang-stock-monitor/internal/entity"
)

// AddPositionRequest is the input for adding a position or entry candidate.
// Either EntryPrice or both EntryMin and EntryMax must be set.
type AddPositionRequest struct {
	Symbol              string   `json:"symbol" validate:"required,alphanum,max=16"`
	Name                string   `json:"name" validate:"max=64"`
	EntryMin            *float64 `json:"entry_min,omitempty" validate:"omitempty,gt=0"`
	EntryMax            *float64 `json:"entry_max,omitempty" validate:"omitempty,gt=0"`
	EntryPrice          *float64 `json:"entry_price,omitempty" validate:"omitempty,gt=0"`
	Quantity            int      `json:"quantity" validate:"gte=0"`
	TakeProfit          *float64 `json:"take_profit,omitempty" validate:"omitempty,gt=0"`
	StopLoss            *float64 `json:"stop_loss,omitempty" validate:"omitempty,gt=0"`
	BuyDate             string   `json:"buy_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	NotificationEnabled *bool    `json:"notification_enabled,omitempty"`
	TradingHoursOnly    *bool    `json:"trading_hours_only,omitempty"`
}

// UpdatePositionRequest edits a holding position. Nil fields keep their
// stored value. Setting EntryPrice clears the entry range and setting the
// range clears EntryPrice.
type UpdatePositionRequest struct {
	Name                *string  `json:"name,omitempty" validate:"omitempty,max=64"`
	EntryMin            *float64 `json:"entry_min,omitempty" validate:"omitempty,gt=0"`
	EntryMax            *float64 `json:"entry_max,omitempty" validate:"omitempty,gt=0"`
	EntryPrice          *float64 `json:"entry_price,omitempty" validate:"omitempty,gt=0"`
	Quantity            *int     `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	TakeProfit          *float64 `json:"take_profit,omitempty" validate:"omitempty,gt=0"`
	StopLoss            *float64 `json:"stop_loss,omitempty" validate:"omitempty,gt=0"`
	BuyDate             *string  `json:"buy_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	NotificationEnabled *bool    `json:"notification_enabled,omitempty"`
	TradingHoursOnly    *bool    `json:"trading_hours_only,omitempty"`
}

// NotificationRequest switches alert delivery for a position.
type NotificationRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// BatchUpsertRequest adds new symbols and updates the holding positions of
// symbols already monitored.
type BatchUpsertRequest struct {
	Positions []AddPositionRequest `json:"positions" validate:"required,min=1,max=200"`
}

// BatchItemResult is the outcome for one symbol of a batch.
type BatchItemResult struct {
	Symbol string `json:"symbol"`
	Result string `json:"result"`
	ID     uint   `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchUpsertResult counts the outcomes of a batch.
type BatchUpsertResult struct {
	Added   int               `json:"added"`
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
	Total   int               `json:"total"`
	Items   []BatchItemResult `json:"items"`
}

const (
	BatchResultAdded   = "added"
	BatchResultUpdated = "updated"
	BatchResultFailed  = "failed"
)

// RemovePositionRequest is the input for removing a holding position.
type RemovePositionRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

// PositionResponse is the API view of a monitored position.
type PositionResponse struct {
	ID                  uint       `json:"id"`
	Symbol              string     `json:"symbol"`
	Name                string     `json:"name"`
	EntryMin            *float64   `json:"entry_min,omitempty"`
	EntryMax            *float64   `json:"entry_max,omitempty"`
	EntryPrice          *float64   `json:"entry_price,omitempty"`
	Quantity            int        `json:"quantity"`
	TakeProfit          *float64   `json:"take_profit,omitempty"`
	StopLoss            *float64   `json:"stop_loss,omitempty"`
	BuyDate             string     `json:"buy_date"`
	HoldingDays         int        `json:"holding_days"`
	Status              string     `json:"status"`
	RemoveReason        string     `json:"remove_reason,omitempty"`
	CurrentPrice        *float64   `json:"current_price,omitempty"`
	LastPriceAt         *time.Time `json:"last_price_at,omitempty"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	NotificationEnabled bool       `json:"notification_enabled"`
	TradingHoursOnly    bool       `json:"trading_hours_only"`
}

// NewPositionResponse converts an entity to its API view.
func NewPositionResponse(p *entity.MonitoredPosition) PositionResponse {
	return PositionResponse{
		ID:                  p.ID,
		Symbol:              p.Symbol,
		Name:                p.Name,
		EntryMin:            p.EntryMin,
		EntryMax:            p.EntryMax,
		EntryPrice:          p.EntryPrice,
		Quantity:            p.Quantity,
		TakeProfit:          p.TakeProfit,
		StopLoss:            p.StopLoss,
		BuyDate:             p.BuyDate.Format(time.DateOnly),
		HoldingDays:         p.HoldingDays,
		Status:              string(p.Status),
		RemoveReason:        p.RemoveReason,
		CurrentPrice:        p.CurrentPrice,
		LastPriceAt:         p.LastPriceAt,
		LastCheckedAt:       p.LastCheckedAt,
		NotificationEnabled: p.NotificationEnabled,
		TradingHoursOnly:    p.TradingHoursOnly,
	}
}

// ListPositionsParam filters the positions returned by the store.
type ListPositionsParam struct {
	Statuses []entity.PositionStatus
	Symbols  []string
	Limit    int
}
