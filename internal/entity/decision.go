package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Decision is an audited output of the decision gate.
type Decision struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	PositionID      *uint          `gorm:"index" json:"position_id,omitempty"`
	AlertID         *uint          `json:"alert_id,omitempty"`
	Symbol          string         `gorm:"not null;size:16" json:"symbol"`
	Provider        string         `gorm:"size:32" json:"provider"`
	Session         string         `gorm:"size:32" json:"session"`
	Action          string         `gorm:"not null;size:8" json:"action"`
	Confidence      int            `gorm:"not null" json:"confidence"`
	Reasoning       string         `json:"reasoning"`
	PositionSizePct float64        `json:"position_size_pct"`
	StopLossPct     float64        `json:"stop_loss_pct"`
	TakeProfitPct   float64        `json:"take_profit_pct"`
	RiskLevel       string         `gorm:"size:16" json:"risk_level"`
	PriceLevels     datatypes.JSON `json:"price_levels"`
	Executable      bool           `gorm:"not null" json:"executable"`
	Overridden      bool           `gorm:"not null" json:"overridden"`
	ParseError      string         `json:"parse_error,omitempty"`
	RawResponse     string         `json:"raw_response,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (Decision) TableName() string {
	return "decisions"
}
