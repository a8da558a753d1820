package entity

import "time"

// AlertType identifies the rule that produced an alert.
type AlertType string

const (
	AlertTypeHoldingPeriodExpired AlertType = "holding_period_expired"
	AlertTypeMACross              AlertType = "ma_cross"
	AlertTypeTakeProfit           AlertType = "take_profit"
	AlertTypeStopLoss             AlertType = "stop_loss"
	AlertTypeEntryRange           AlertType = "entry_range"
)

// IsExit reports whether the alert recommends closing the position.
func (t AlertType) IsExit() bool {
	return t != AlertTypeEntryRange
}

// Alert is a persisted rule trigger awaiting or past delivery.
type Alert struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	PositionID uint               `gorm:"not null;index:idx_alerts_position_type" json:"position_id"`
	Position   *MonitoredPosition `gorm:"foreignKey:PositionID" json:"position,omitempty"`
	AlertType  AlertType          `gorm:"not null;size:32;index:idx_alerts_position_type" json:"alert_type"`
	Reason     string             `gorm:"not null" json:"reason"`
	Price      *float64           `json:"price,omitempty"`
	MA5        *float64           `gorm:"column:ma5" json:"ma5,omitempty"`
	MA20       *float64           `gorm:"column:ma20" json:"ma20,omitempty"`
	Sent       bool               `gorm:"not null;index" json:"sent"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
	CreatedAt  time.Time          `gorm:"not null" json:"created_at"`
}

func (Alert) TableName() string {
	return "alerts"
}
