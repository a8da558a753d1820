package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/pkg/common"
	"golang-stock-monitor/pkg/utils"

	"gorm.io/gorm"
)

// PositionRepository persists monitored positions and their price history.
type PositionRepository interface {
	Create(ctx context.Context, position *entity.MonitoredPosition) error
	Update(ctx context.Context, position *entity.MonitoredPosition) error
	SetNotification(ctx context.Context, positionID uint, enabled bool) (*entity.MonitoredPosition, error)
	Remove(ctx context.Context, symbol, reason string, at time.Time) (*entity.MonitoredPosition, error)
	Get(ctx context.Context, param dto.ListPositionsParam) ([]entity.MonitoredPosition, error)
	FindHolding(ctx context.Context) ([]entity.MonitoredPosition, error)
	FindHoldingBySymbol(ctx context.Context, symbol string) (*entity.MonitoredPosition, error)
	FindByID(ctx context.Context, id uint) (*entity.MonitoredPosition, error)
	RecordPrice(ctx context.Context, sample *entity.PriceSample) error
	TouchChecked(ctx context.Context, positionID uint, at time.Time) error
	LastSample(ctx context.Context, positionID uint) (*entity.PriceSample, error)
	RecomputeHoldingDays(ctx context.Context, asOf time.Time) (int, error)
	Purge(ctx context.Context, positionID uint) error
}

type positionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{
		db: db,
	}
}

func (r *positionRepository) Create(ctx context.Context, position *entity.MonitoredPosition) error {
	position.Status = entity.PositionStatusHolding
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.MonitoredPosition{}).
			Where("symbol = ? AND status = ?", position.Symbol, entity.PositionStatusHolding).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &common.DuplicateActiveError{Symbol: position.Symbol}
		}
		return tx.Create(position).Error
	})
	switch {
	case err == nil:
		return nil
	case common.IsDuplicate(err):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &common.DuplicateActiveError{Symbol: position.Symbol}
	default:
		return &common.PersistenceError{Op: "create position", Err: err}
	}
}

// Update writes the editable fields of a holding position. Symbol, status and
// price tracking columns are never touched.
func (r *positionRepository) Update(ctx context.Context, position *entity.MonitoredPosition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.MonitoredPosition{}).
			Where("id = ? AND status = ?", position.ID, entity.PositionStatusHolding).
			Updates(map[string]interface{}{
				"name":                 position.Name,
				"entry_min":            position.EntryMin,
				"entry_max":            position.EntryMax,
				"entry_price":          position.EntryPrice,
				"quantity":             position.Quantity,
				"take_profit":          position.TakeProfit,
				"stop_loss":            position.StopLoss,
				"buy_date":             position.BuyDate.UTC(),
				"holding_days":         position.HoldingDays,
				"notification_enabled": position.NotificationEnabled,
				"trading_hours_only":   position.TradingHoursOnly,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notHoldingError(tx, position.ID)
		}
		return nil
	})
	if err != nil && !common.IsNotFound(err) && !common.IsConflict(err) {
		return &common.PersistenceError{Op: "update position", Err: err}
	}
	return err
}

func (r *positionRepository) SetNotification(ctx context.Context, positionID uint, enabled bool) (*entity.MonitoredPosition, error) {
	var position entity.MonitoredPosition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.MonitoredPosition{}).
			Where("id = ? AND status = ?", positionID, entity.PositionStatusHolding).
			Update("notification_enabled", enabled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notHoldingError(tx, positionID)
		}
		return tx.First(&position, positionID).Error
	})
	if err != nil {
		if common.IsNotFound(err) || common.IsConflict(err) {
			return nil, err
		}
		return nil, &common.PersistenceError{Op: "set notification", Err: err}
	}
	return &position, nil
}

// notHoldingError explains why an update by id matched no holding row.
func notHoldingError(tx *gorm.DB, positionID uint) error {
	var count int64
	if err := tx.Model(&entity.MonitoredPosition{}).Where("id = ?", positionID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &common.NotFoundError{Resource: "position", Key: fmt.Sprint(positionID)}
	}
	return &common.ConflictError{Message: fmt.Sprintf("position %d is removed and can no longer be edited", positionID)}
}

func (r *positionRepository) Remove(ctx context.Context, symbol, reason string, at time.Time) (*entity.MonitoredPosition, error) {
	var removed entity.MonitoredPosition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("symbol = ? AND status = ?", symbol, entity.PositionStatusHolding).
			First(&removed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &common.NotFoundError{Resource: "holding position", Key: symbol}
			}
			return err
		}

		var staleIDs []uint
		if err := tx.Model(&entity.MonitoredPosition{}).
			Where("symbol = ? AND status = ?", symbol, entity.PositionStatusRemoved).
			Pluck("id", &staleIDs).Error; err != nil {
			return err
		}
		if len(staleIDs) > 0 {
			var unsent int64
			if err := tx.Model(&entity.Alert{}).
				Where("position_id IN ? AND sent = ?", staleIDs, false).
				Count(&unsent).Error; err != nil {
				return err
			}
			if unsent > 0 {
				return &common.ConflictError{Message: fmt.Sprintf(
					"previously removed %s still has %d unsent alerts; deliver or mark them sent first", symbol, unsent)}
			}
		}
		// only one removed row is kept per symbol
		if err := deletePositions(tx, staleIDs); err != nil {
			return err
		}

		removedAt := at.UTC()
		removed.Status = entity.PositionStatusRemoved
		removed.RemoveReason = reason
		removed.RemovedAt = &removedAt
		return tx.Model(&entity.MonitoredPosition{}).Where("id = ?", removed.ID).Updates(map[string]interface{}{
			"status":        entity.PositionStatusRemoved,
			"remove_reason": reason,
			"removed_at":    removedAt,
		}).Error
	})
	if err != nil {
		if common.IsNotFound(err) || common.IsConflict(err) {
			return nil, err
		}
		return nil, &common.PersistenceError{Op: "remove position", Err: err}
	}
	return &removed, nil
}

func (r *positionRepository) Get(ctx context.Context, param dto.ListPositionsParam) ([]entity.MonitoredPosition, error) {
	var positions []entity.MonitoredPosition

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if len(param.Statuses) > 0 {
		qFilter = append(qFilter, "status IN (?)")
		qFilterParam = append(qFilterParam, param.Statuses)
	}

	if len(param.Symbols) > 0 {
		qFilter = append(qFilter, "symbol IN (?)")
		qFilterParam = append(qFilterParam, param.Symbols)
	}

	q := r.db.WithContext(ctx).Order("id ASC")
	if len(qFilter) > 0 {
		q = q.Where(strings.Join(qFilter, " AND "), qFilterParam...)
	}
	if param.Limit > 0 {
		q = q.Limit(param.Limit)
	}
	if err := q.Find(&positions).Error; err != nil {
		return nil, err
	}

	return positions, nil
}

func (r *positionRepository) FindHolding(ctx context.Context) ([]entity.MonitoredPosition, error) {
	return r.Get(ctx, dto.ListPositionsParam{
		Statuses: []entity.PositionStatus{entity.PositionStatusHolding},
	})
}

func (r *positionRepository) FindHoldingBySymbol(ctx context.Context, symbol string) (*entity.MonitoredPosition, error) {
	var position entity.MonitoredPosition
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND status = ?", symbol, entity.PositionStatusHolding).
		First(&position).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &common.NotFoundError{Resource: "holding position", Key: symbol}
	}
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *positionRepository) FindByID(ctx context.Context, id uint) (*entity.MonitoredPosition, error) {
	var position entity.MonitoredPosition
	err := r.db.WithContext(ctx).First(&position, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &common.NotFoundError{Resource: "position", Key: fmt.Sprint(id)}
	}
	if err != nil {
		return nil, err
	}
	return &position, nil
}

// RecordPrice appends a sample and updates the position's current price and check time.
func (r *positionRepository) RecordPrice(ctx context.Context, sample *entity.PriceSample) error {
	sample.ObservedAt = sample.ObservedAt.UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.MonitoredPosition{}).Where("id = ?", sample.PositionID).Updates(map[string]interface{}{
			"current_price":   sample.Price,
			"last_price_at":   sample.ObservedAt,
			"last_checked_at": sample.ObservedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &common.NotFoundError{Resource: "position", Key: fmt.Sprint(sample.PositionID)}
		}
		return tx.Create(sample).Error
	})
	if err != nil && !common.IsNotFound(err) {
		return &common.PersistenceError{Op: "record price", Err: err}
	}
	return err
}

// TouchChecked advances last_checked_at without recording a price.
func (r *positionRepository) TouchChecked(ctx context.Context, positionID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.MonitoredPosition{}).
		Where("id = ?", positionID).
		Update("last_checked_at", at.UTC())
	if res.Error != nil {
		return &common.PersistenceError{Op: "touch checked", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &common.NotFoundError{Resource: "position", Key: fmt.Sprint(positionID)}
	}
	return nil
}

// LastSample returns the most recent price sample, or nil when none exists.
func (r *positionRepository) LastSample(ctx context.Context, positionID uint) (*entity.PriceSample, error) {
	var samples []entity.PriceSample
	if err := r.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("observed_at DESC, id DESC").
		Limit(1).
		Find(&samples).Error; err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return &samples[0], nil
}

// RecomputeHoldingDays sets holding_days for every holding position to the whole
// days between its buy date and asOf. It returns the number of rows changed.
func (r *positionRepository) RecomputeHoldingDays(ctx context.Context, asOf time.Time) (int, error) {
	updated := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var positions []entity.MonitoredPosition
		if err := tx.Select("id", "buy_date", "holding_days").
			Where("status = ?", entity.PositionStatusHolding).
			Find(&positions).Error; err != nil {
			return err
		}
		for _, p := range positions {
			days := utils.DaysBetween(p.BuyDate, asOf)
			if days == p.HoldingDays {
				continue
			}
			if err := tx.Model(&entity.MonitoredPosition{}).Where("id = ?", p.ID).
				Update("holding_days", days).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, &common.PersistenceError{Op: "recompute holding days", Err: err}
	}
	return updated, nil
}

// Purge physically deletes a position with its price history, alerts and decisions.
func (r *positionRepository) Purge(ctx context.Context, positionID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.MonitoredPosition{}).Where("id = ?", positionID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return &common.NotFoundError{Resource: "position", Key: fmt.Sprint(positionID)}
		}
		return deletePositions(tx, []uint{positionID})
	})
	if err != nil && !common.IsNotFound(err) {
		return &common.PersistenceError{Op: "purge position", Err: err}
	}
	return err
}

func deletePositions(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("position_id IN ?", ids).Delete(&entity.Decision{}).Error; err != nil {
		return err
	}
	if err := tx.Where("position_id IN ?", ids).Delete(&entity.Alert{}).Error; err != nil {
		return err
	}
	if err := tx.Where("position_id IN ?", ids).Delete(&entity.PriceSample{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&entity.MonitoredPosition{}).Error
}
