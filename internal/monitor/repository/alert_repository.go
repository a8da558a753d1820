package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/pkg/common"

	"gorm.io/gorm"
)

// AlertRepository persists alerts.
type AlertRepository interface {
	// CreateIfAbsent inserts alert unless an unsent alert of the same position and
	// type exists, or a sent one was delivered within cooldown of now. It returns
	// the inserted or blocking alert and whether a row was inserted.
	CreateIfAbsent(ctx context.Context, alert *entity.Alert, cooldown time.Duration, now time.Time) (*entity.Alert, bool, error)
	MarkSent(ctx context.Context, id uint, at time.Time) (*entity.Alert, error)
	FindPending(ctx context.Context) ([]entity.Alert, error)
	FindHistory(ctx context.Context, limit int) ([]entity.Alert, error)
	FindByID(ctx context.Context, id uint) (*entity.Alert, error)
	PurgeSent(ctx context.Context, before time.Time) (int64, error)
}

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{
		db: db,
	}
}

func (r *alertRepository) CreateIfAbsent(ctx context.Context, alert *entity.Alert, cooldown time.Duration, now time.Time) (*entity.Alert, bool, error) {
	now = now.UTC()
	var (
		result  *entity.Alert
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []entity.Alert
		if err := tx.Where("position_id = ? AND alert_type = ? AND sent = ?", alert.PositionID, alert.AlertType, false).
			Order("id ASC").Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			result = &existing[0]
			return nil
		}

		if cooldown > 0 {
			var recent []entity.Alert
			if err := tx.Where("position_id = ? AND alert_type = ? AND sent = ? AND sent_at > ?",
				alert.PositionID, alert.AlertType, true, now.Add(-cooldown)).
				Order("sent_at DESC").Limit(1).Find(&recent).Error; err != nil {
				return err
			}
			if len(recent) > 0 {
				result = &recent[0]
				return nil
			}
		}

		alert.ID = 0
		alert.Sent = false
		alert.SentAt = nil
		alert.CreatedAt = now
		if err := tx.Create(alert).Error; err != nil {
			return err
		}
		result = alert
		created = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// another process won the insert; the unsent row it created is authoritative
		var existing entity.Alert
		if findErr := r.db.WithContext(ctx).
			Where("position_id = ? AND alert_type = ? AND sent = ?", alert.PositionID, alert.AlertType, false).
			First(&existing).Error; findErr == nil {
			return &existing, false, nil
		}
	}
	if err != nil {
		return nil, false, &common.PersistenceError{Op: "create alert", Err: err}
	}
	return result, created, nil
}

func (r *alertRepository) MarkSent(ctx context.Context, id uint, at time.Time) (*entity.Alert, error) {
	var alert entity.Alert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&alert, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &common.NotFoundError{Resource: "alert", Key: fmt.Sprint(id)}
			}
			return err
		}
		if alert.Sent {
			return nil
		}
		sentAt := at.UTC()
		alert.Sent = true
		alert.SentAt = &sentAt
		return tx.Model(&entity.Alert{}).Where("id = ?", id).Updates(map[string]interface{}{
			"sent":    true,
			"sent_at": sentAt,
		}).Error
	})
	if err != nil {
		if common.IsNotFound(err) {
			return nil, err
		}
		return nil, &common.PersistenceError{Op: "mark alert sent", Err: err}
	}
	return &alert, nil
}

func (r *alertRepository) FindPending(ctx context.Context) ([]entity.Alert, error) {
	var alerts []entity.Alert
	if err := r.db.WithContext(ctx).Preload("Position").
		Where("sent = ?", false).
		Order("created_at ASC, id ASC").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *alertRepository) FindHistory(ctx context.Context, limit int) ([]entity.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	var alerts []entity.Alert
	if err := r.db.WithContext(ctx).Preload("Position").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *alertRepository) FindByID(ctx context.Context, id uint) (*entity.Alert, error) {
	var alert entity.Alert
	err := r.db.WithContext(ctx).Preload("Position").First(&alert, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &common.NotFoundError{Resource: "alert", Key: fmt.Sprint(id)}
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// PurgeSent deletes sent alerts created before the given time. Unsent alerts are kept.
func (r *alertRepository) PurgeSent(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("sent = ? AND created_at < ?", true, before.UTC()).
		Delete(&entity.Alert{})
	if res.Error != nil {
		return 0, &common.PersistenceError{Op: "purge alerts", Err: res.Error}
	}
	return res.RowsAffected, nil
}
