package service

import (
	"context"
	"fmt"
	"strings"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/pkg/common"
	"golang-stock-monitor/pkg/logger"
)

const defaultHistoryLimit = 50

// AlertService exposes alert queries and operator actions.
type AlertService interface {
	Pending(ctx context.Context) ([]entity.Alert, error)
	History(ctx context.Context, limit int) ([]entity.Alert, error)
	MarkSent(ctx context.Context, alertID uint) (*entity.Alert, error)
	ConfirmExit(ctx context.Context, alertID uint, reason string) (*entity.Alert, error)
	Purge(ctx context.Context, days int) (int64, error)
}

type alertService struct {
	alertRepo       repository.AlertRepository
	positionService PositionService
	deduper         AlertDeduper
	logger          *logger.Logger
}

// NewAlertService creates a new AlertService.
func NewAlertService(alertRepo repository.AlertRepository, positionService PositionService, deduper AlertDeduper, log *logger.Logger) AlertService {
	return &alertService{
		alertRepo:       alertRepo,
		positionService: positionService,
		deduper:         deduper,
		logger:          log,
	}
}

func (s *alertService) Pending(ctx context.Context) ([]entity.Alert, error) {
	return s.alertRepo.FindPending(ctx)
}

func (s *alertService) History(ctx context.Context, limit int) ([]entity.Alert, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.alertRepo.FindHistory(ctx, limit)
}

func (s *alertService) MarkSent(ctx context.Context, alertID uint) (*entity.Alert, error) {
	return s.deduper.MarkSent(ctx, alertID)
}

// ConfirmExit stops monitoring the alert's position and then acknowledges the
// alert. A failed removal leaves the alert unsent so the confirmation can be retried.
func (s *alertService) ConfirmExit(ctx context.Context, alertID uint, reason string) (*entity.Alert, error) {
	alert, err := s.alertRepo.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if !alert.AlertType.IsExit() {
		return nil, &common.ValidationError{Field: "alert_type", Message: fmt.Sprintf("%s is not an exit alert", alert.AlertType)}
	}
	position := alert.Position
	if position == nil {
		return nil, &common.NotFoundError{Resource: "position", Key: fmt.Sprint(alert.PositionID)}
	}

	if position.Status == entity.PositionStatusHolding {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = "exit confirmed: " + string(alert.AlertType)
		}
		removed, err := s.positionService.Remove(ctx, position.Symbol, reason)
		if err != nil {
			return nil, err
		}
		position = removed
	} else {
		s.logger.InfoContext(ctx, "Position already removed", logger.StringField("symbol", position.Symbol))
	}

	sent, err := s.deduper.MarkSent(ctx, alertID)
	if err != nil {
		return nil, err
	}
	sent.Position = position
	return sent, nil
}

func (s *alertService) Purge(ctx context.Context, days int) (int64, error) {
	return s.deduper.Purge(ctx, days)
}
