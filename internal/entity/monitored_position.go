package entity

import "time"

// PositionStatus is the lifecycle state of a monitored position.
type PositionStatus string

const (
	PositionStatusHolding PositionStatus = "holding"
	PositionStatusRemoved PositionStatus = "removed"
)

// MonitoredPosition is a held position or an entry candidate tracked by the monitor.
// A candidate has EntryMin/EntryMax and no EntryPrice.
type MonitoredPosition struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Symbol              string         `gorm:"not null;size:16;uniqueIndex:idx_positions_symbol_status" json:"symbol"`
	Name                string         `gorm:"size:64" json:"name"`
	EntryMin            *float64       `json:"entry_min,omitempty"`
	EntryMax            *float64       `json:"entry_max,omitempty"`
	EntryPrice          *float64       `json:"entry_price,omitempty"`
	Quantity            int            `gorm:"not null" json:"quantity"`
	TakeProfit          *float64       `json:"take_profit,omitempty"`
	StopLoss            *float64       `json:"stop_loss,omitempty"`
	BuyDate             time.Time      `gorm:"not null" json:"buy_date"`
	HoldingDays         int            `gorm:"not null" json:"holding_days"`
	Status              PositionStatus `gorm:"not null;size:16;uniqueIndex:idx_positions_symbol_status" json:"status"`
	RemoveReason        string         `json:"remove_reason,omitempty"`
	RemovedAt           *time.Time     `json:"removed_at,omitempty"`
	CurrentPrice        *float64       `json:"current_price,omitempty"`
	LastPriceAt         *time.Time     `json:"last_price_at,omitempty"`
	LastCheckedAt       *time.Time     `json:"last_checked_at,omitempty"`
	NotificationEnabled bool           `gorm:"not null" json:"notification_enabled"`
	TradingHoursOnly    bool           `gorm:"not null" json:"trading_hours_only"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MonitoredPosition) TableName() string {
	return "positions"
}

// IsCandidate reports whether the position has not been entered yet.
func (p *MonitoredPosition) IsCandidate() bool {
	return p.EntryPrice == nil
}
