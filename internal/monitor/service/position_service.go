package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/pkg/common"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/market"
	"golang-stock-monitor/pkg/utils"

	"github.com/go-playground/validator/v10"
)

// PositionService is the operational surface over the position store.
type PositionService interface {
	Add(ctx context.Context, req dto.AddPositionRequest) (*entity.MonitoredPosition, error)
	Update(ctx context.Context, positionID uint, req dto.UpdatePositionRequest) (*entity.MonitoredPosition, error)
	SetNotification(ctx context.Context, positionID uint, enabled bool) (*entity.MonitoredPosition, error)
	BatchUpsert(ctx context.Context, reqs []dto.AddPositionRequest) (*dto.BatchUpsertResult, error)
	Remove(ctx context.Context, symbol, reason string) (*entity.MonitoredPosition, error)
	List(ctx context.Context, includeRemoved bool) ([]entity.MonitoredPosition, error)
	Purge(ctx context.Context, positionID uint) error
}

type positionService struct {
	positionRepo repository.PositionRepository
	schedule     market.Schedule
	clock        utils.Clock
	validate     *validator.Validate
	logger       *logger.Logger
}

// NewPositionService creates a new PositionService.
func NewPositionService(positionRepo repository.PositionRepository, schedule market.Schedule, clock utils.Clock, log *logger.Logger) PositionService {
	return &positionService{
		positionRepo: positionRepo,
		schedule:     schedule,
		clock:        clock,
		validate:     validator.New(),
		logger:       log,
	}
}

func (s *positionService) Add(ctx context.Context, req dto.AddPositionRequest) (*entity.MonitoredPosition, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Name = strings.TrimSpace(req.Name)

	if err := s.validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	if err := validateEntry(req); err != nil {
		return nil, err
	}

	today := s.schedule.TradingDay(s.clock.Now())
	buyDate := today
	if req.BuyDate != "" {
		parsed, err := parseBuyDate(req.BuyDate, today)
		if err != nil {
			return nil, err
		}
		buyDate = parsed
	}

	position := &entity.MonitoredPosition{
		Symbol:              req.Symbol,
		Name:                req.Name,
		EntryMin:            req.EntryMin,
		EntryMax:            req.EntryMax,
		EntryPrice:          req.EntryPrice,
		Quantity:            req.Quantity,
		TakeProfit:          req.TakeProfit,
		StopLoss:            req.StopLoss,
		BuyDate:             buyDate,
		HoldingDays:         utils.DaysBetween(buyDate, today),
		Status:              entity.PositionStatusHolding,
		NotificationEnabled: boolOrDefault(req.NotificationEnabled, true),
		TradingHoursOnly:    boolOrDefault(req.TradingHoursOnly, true),
	}
	if err := s.positionRepo.Create(ctx, position); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Position added",
		logger.StringField("symbol", position.Symbol),
		logger.Field("candidate", position.IsCandidate()),
		logger.IntField("holding_days", position.HoldingDays))
	return position, nil
}

func (s *positionService) Update(ctx context.Context, positionID uint, req dto.UpdatePositionRequest) (*entity.MonitoredPosition, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	position, err := s.positionRepo.FindByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if position.Status != entity.PositionStatusHolding {
		return nil, &common.ConflictError{Message: fmt.Sprintf("position %d is removed and can no longer be edited", positionID)}
	}

	today := s.schedule.TradingDay(s.clock.Now())
	if err := applyUpdate(position, req, today); err != nil {
		return nil, err
	}
	if err := validateEntry(entryOf(position)); err != nil {
		return nil, err
	}
	if err := s.positionRepo.Update(ctx, position); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Position updated",
		logger.StringField("symbol", position.Symbol),
		logger.Field("candidate", position.IsCandidate()),
		logger.Field("notification_enabled", position.NotificationEnabled))
	return position, nil
}

func (s *positionService) SetNotification(ctx context.Context, positionID uint, enabled bool) (*entity.MonitoredPosition, error) {
	position, err := s.positionRepo.SetNotification(ctx, positionID, enabled)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Position notification switched",
		logger.StringField("symbol", position.Symbol),
		logger.Field("enabled", enabled))
	return position, nil
}

// BatchUpsert adds every symbol that is not held yet and updates the holding
// position of every symbol that is. A failing item does not stop the batch.
func (s *positionService) BatchUpsert(ctx context.Context, reqs []dto.AddPositionRequest) (*dto.BatchUpsertResult, error) {
	result := &dto.BatchUpsertResult{
		Total: len(reqs),
		Items: make([]dto.BatchItemResult, 0, len(reqs)),
	}

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item := dto.BatchItemResult{Symbol: strings.ToUpper(strings.TrimSpace(req.Symbol))}

		position, outcome, err := s.upsert(ctx, req)
		switch {
		case err != nil:
			item.Result = dto.BatchResultFailed
			item.Error = s.itemError(ctx, item.Symbol, err)
			result.Failed++
		case outcome == dto.BatchResultAdded:
			item.Result, item.ID = outcome, position.ID
			result.Added++
		default:
			item.Result, item.ID = outcome, position.ID
			result.Updated++
		}
		result.Items = append(result.Items, item)
	}

	s.logger.InfoContext(ctx, "Batch upsert finished",
		logger.IntField("added", result.Added),
		logger.IntField("updated", result.Updated),
		logger.IntField("failed", result.Failed))
	return result, nil
}

func (s *positionService) upsert(ctx context.Context, req dto.AddPositionRequest) (*entity.MonitoredPosition, string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, "", &common.ValidationError{Field: "symbol", Message: "is required"}
	}

	existing, err := s.positionRepo.FindHoldingBySymbol(ctx, symbol)
	if err != nil && !common.IsNotFound(err) {
		return nil, "", err
	}
	if existing == nil {
		position, err := s.Add(ctx, req)
		return position, dto.BatchResultAdded, err
	}
	position, err := s.Update(ctx, existing.ID, updateFromAdd(req))
	return position, dto.BatchResultUpdated, err
}

// itemError hides store failures behind a generic message.
func (s *positionService) itemError(ctx context.Context, symbol string, err error) string {
	if common.IsValidation(err) || common.IsDuplicate(err) || common.IsConflict(err) || common.IsNotFound(err) {
		return err.Error()
	}
	s.logger.ErrorContext(ctx, "Batch item failed", logger.ErrorField(err), logger.StringField("symbol", symbol))
	return "internal error"
}

func (s *positionService) Remove(ctx context.Context, symbol, reason string) (*entity.MonitoredPosition, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, &common.ValidationError{Field: "symbol", Message: "is required"}
	}
	position, err := s.positionRepo.Remove(ctx, symbol, strings.TrimSpace(reason), s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Position removed", logger.StringField("symbol", symbol), logger.StringField("reason", reason))
	return position, nil
}

func (s *positionService) List(ctx context.Context, includeRemoved bool) ([]entity.MonitoredPosition, error) {
	param := dto.ListPositionsParam{Statuses: []entity.PositionStatus{entity.PositionStatusHolding}}
	if includeRemoved {
		param.Statuses = append(param.Statuses, entity.PositionStatusRemoved)
	}
	return s.positionRepo.Get(ctx, param)
}

func (s *positionService) Purge(ctx context.Context, positionID uint) error {
	if err := s.positionRepo.Purge(ctx, positionID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Position purged", logger.IntField("position_id", int(positionID)))
	return nil
}

func validateEntry(req dto.AddPositionRequest) error {
	hasRange := req.EntryMin != nil || req.EntryMax != nil
	switch {
	case req.EntryPrice == nil && !hasRange:
		return &common.ValidationError{Field: "entry", Message: "entry_price or entry_min/entry_max is required"}
	case req.EntryPrice != nil && hasRange:
		return &common.ValidationError{Field: "entry", Message: "entry_price and entry range are mutually exclusive"}
	case hasRange && (req.EntryMin == nil || req.EntryMax == nil):
		return &common.ValidationError{Field: "entry", Message: "entry_min and entry_max must both be set"}
	case hasRange && *req.EntryMin > *req.EntryMax:
		return &common.ValidationError{Field: "entry_min", Message: "must not exceed entry_max"}
	}
	if req.TakeProfit != nil && req.StopLoss != nil && *req.TakeProfit <= *req.StopLoss {
		return &common.ValidationError{Field: "take_profit", Message: "must be above stop_loss"}
	}
	return nil
}

func parseBuyDate(raw string, today time.Time) (time.Time, error) {
	parsed, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		return time.Time{}, &common.ValidationError{Field: "buy_date", Message: "must be YYYY-MM-DD"}
	}
	if parsed.After(today) {
		return time.Time{}, &common.ValidationError{Field: "buy_date", Message: "must not be in the future"}
	}
	return parsed, nil
}

func applyUpdate(p *entity.MonitoredPosition, req dto.UpdatePositionRequest, today time.Time) error {
	hasRange := req.EntryMin != nil || req.EntryMax != nil
	switch {
	case req.EntryPrice != nil && hasRange:
		return &common.ValidationError{Field: "entry", Message: "entry_price and entry range are mutually exclusive"}
	case req.EntryPrice != nil:
		p.EntryPrice = req.EntryPrice
		p.EntryMin, p.EntryMax = nil, nil
	case hasRange:
		if req.EntryMin != nil {
			p.EntryMin = req.EntryMin
		}
		if req.EntryMax != nil {
			p.EntryMax = req.EntryMax
		}
		p.EntryPrice = nil
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.TakeProfit != nil {
		p.TakeProfit = req.TakeProfit
	}
	if req.StopLoss != nil {
		p.StopLoss = req.StopLoss
	}
	if req.BuyDate != nil {
		buyDate, err := parseBuyDate(*req.BuyDate, today)
		if err != nil {
			return err
		}
		p.BuyDate = buyDate
		p.HoldingDays = utils.DaysBetween(buyDate, today)
	}
	if req.NotificationEnabled != nil {
		p.NotificationEnabled = *req.NotificationEnabled
	}
	if req.TradingHoursOnly != nil {
		p.TradingHoursOnly = *req.TradingHoursOnly
	}
	return nil
}

func entryOf(p *entity.MonitoredPosition) dto.AddPositionRequest {
	return dto.AddPositionRequest{
		EntryMin:   p.EntryMin,
		EntryMax:   p.EntryMax,
		EntryPrice: p.EntryPrice,
		TakeProfit: p.TakeProfit,
		StopLoss:   p.StopLoss,
	}
}

// updateFromAdd keeps the stored value for every field the batch item leaves empty.
func updateFromAdd(req dto.AddPositionRequest) dto.UpdatePositionRequest {
	upd := dto.UpdatePositionRequest{
		EntryMin:            req.EntryMin,
		EntryMax:            req.EntryMax,
		EntryPrice:          req.EntryPrice,
		TakeProfit:          req.TakeProfit,
		StopLoss:            req.StopLoss,
		NotificationEnabled: req.NotificationEnabled,
		TradingHoursOnly:    req.TradingHoursOnly,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		upd.Name = &name
	}
	if req.Quantity > 0 {
		upd.Quantity = utils.ToPointer(req.Quantity)
	}
	if req.BuyDate != "" {
		upd.BuyDate = utils.ToPointer(req.BuyDate)
	}
	return upd
}

func toValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &common.ValidationError{Field: "request", Message: err.Error()}
	}
	first := verrs[0]
	return &common.ValidationError{
		Field:   strings.ToLower(first.Field()),
		Message: "failed on '" + first.Tag() + "'",
	}
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
