package entity

import "time"

// PriceSample is an append-only observation of a position's price and moving averages.
type PriceSample struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PositionID uint      `gorm:"not null;index:idx_price_history_position_observed" json:"position_id"`
	Price      float64   `gorm:"not null" json:"price"`
	MA5        *float64  `gorm:"column:ma5" json:"ma5,omitempty"`
	MA20       *float64  `gorm:"column:ma20" json:"ma20,omitempty"`
	ObservedAt time.Time `gorm:"not null;index:idx_price_history_position_observed" json:"observed_at"`
}

func (PriceSample) TableName() string {
	return "price_history"
}
