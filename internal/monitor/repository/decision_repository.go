package repository

import (
	"context"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/pkg/common"

	"gorm.io/gorm"
)

// DecisionRepository stores decision gate outputs for audit.
type DecisionRepository interface {
	Create(ctx context.Context, decision *entity.Decision) error
	FindByPosition(ctx context.Context, positionID uint, limit int) ([]entity.Decision, error)
}

type decisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new DecisionRepository.
func NewDecisionRepository(db *gorm.DB) DecisionRepository {
	return &decisionRepository{
		db: db,
	}
}

func (r *decisionRepository) Create(ctx context.Context, decision *entity.Decision) error {
	if err := r.db.WithContext(ctx).Create(decision).Error; err != nil {
		return &common.PersistenceError{Op: "create decision", Err: err}
	}
	return nil
}

func (r *decisionRepository) FindByPosition(ctx context.Context, positionID uint, limit int) ([]entity.Decision, error) {
	if limit <= 0 {
		limit = 20
	}
	var decisions []entity.Decision
	if err := r.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&decisions).Error; err != nil {
		return nil, err
	}
	return decisions, nil
}
