package repository

import (
	"golang-stock-monitor/internal/entity"

	"gorm.io/gorm"
)

// AutoMigrate creates the monitor schema on databases not managed by
// golang-migrate (sqlite files and tests).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.MonitoredPosition{},
		&entity.PriceSample{},
		&entity.Alert{},
		&entity.Decision{},
	)
}
