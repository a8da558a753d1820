package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/pkg/common"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/market"
	"golang-stock-monitor/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertServiceFixture struct {
	alerts    AlertService
	positions PositionService
	deduper   AlertDeduper
	clock     *utils.FixedClock
}

func newAlertServiceFixture(t *testing.T) *alertServiceFixture {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()
	clock := &utils.FixedClock{T: shanghai(2024, 6, 17, 10, 0)}
	alertRepo := repository.NewAlertRepository(db)
	positions := NewPositionService(repository.NewPositionRepository(db), market.DefaultSchedule(), clock, log)
	deduper := NewAlertDeduper(alertRepo, time.Hour, clock, log)
	return &alertServiceFixture{
		alerts:    NewAlertService(alertRepo, positions, deduper, log),
		positions: positions,
		deduper:   deduper,
		clock:     clock,
	}
}

func TestAlertService_ConfirmExitRemovesPosition(t *testing.T) {
	ctx := context.Background()
	f := newAlertServiceFixture(t)

	p, err := f.positions.Add(ctx, dto.AddPositionRequest{Symbol: "600519", EntryPrice: utils.ToPointer(10.0), StopLoss: utils.ToPointer(9.5)})
	require.NoError(t, err)
	alert, _, err := f.deduper.Create(ctx, p.ID, Trigger{AlertType: entity.AlertTypeStopLoss, Reason: "price fell"})
	require.NoError(t, err)

	confirmed, err := f.alerts.ConfirmExit(ctx, alert.ID, "")
	require.NoError(t, err)
	assert.True(t, confirmed.Sent)
	require.NotNil(t, confirmed.Position)
	assert.Equal(t, entity.PositionStatusRemoved, confirmed.Position.Status)
	assert.Equal(t, "exit confirmed: stop_loss", confirmed.Position.RemoveReason)

	active, err := f.positions.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	// confirming again keeps the removal and does not fail
	again, err := f.alerts.ConfirmExit(ctx, alert.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.PositionStatusRemoved, again.Position.Status)
}

// failingRemovePositionService fails every removal.
type failingRemovePositionService struct {
	PositionService
}

func (failingRemovePositionService) Remove(ctx context.Context, symbol, reason string) (*entity.MonitoredPosition, error) {
	return nil, &common.PersistenceError{Op: "remove position", Err: errors.New("database is locked")}
}

func TestAlertService_ConfirmExitKeepsAlertPendingWhenRemoveFails(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	log := logger.NewNop()
	clock := &utils.FixedClock{T: shanghai(2024, 6, 17, 10, 0)}
	alertRepo := repository.NewAlertRepository(db)
	positions := NewPositionService(repository.NewPositionRepository(db), market.DefaultSchedule(), clock, log)
	deduper := NewAlertDeduper(alertRepo, time.Hour, clock, log)

	p, err := positions.Add(ctx, dto.AddPositionRequest{Symbol: "601988", EntryPrice: utils.ToPointer(4.0)})
	require.NoError(t, err)
	alert, _, err := deduper.Create(ctx, p.ID, Trigger{AlertType: entity.AlertTypeStopLoss, Reason: "price fell"})
	require.NoError(t, err)

	failing := NewAlertService(alertRepo, failingRemovePositionService{positions}, deduper, log)
	_, err = failing.ConfirmExit(ctx, alert.ID, "")
	assert.True(t, common.IsPersistence(err))

	stored, err := alertRepo.FindByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.False(t, stored.Sent)
	assert.Equal(t, entity.PositionStatusHolding, stored.Position.Status)

	// a retry with a working store completes both steps
	confirmed, err := NewAlertService(alertRepo, positions, deduper, log).ConfirmExit(ctx, alert.ID, "")
	require.NoError(t, err)
	assert.True(t, confirmed.Sent)
	assert.Equal(t, entity.PositionStatusRemoved, confirmed.Position.Status)
}

func TestAlertService_ConfirmExitRejectsEntryAlert(t *testing.T) {
	ctx := context.Background()
	f := newAlertServiceFixture(t)

	p, err := f.positions.Add(ctx, dto.AddPositionRequest{
		Symbol: "000001", EntryMin: utils.ToPointer(9.8), EntryMax: utils.ToPointer(10.2),
	})
	require.NoError(t, err)
	alert, _, err := f.deduper.Create(ctx, p.ID, Trigger{AlertType: entity.AlertTypeEntryRange, Reason: "in range"})
	require.NoError(t, err)

	_, err = f.alerts.ConfirmExit(ctx, alert.ID, "")
	assert.True(t, common.IsValidation(err))

	_, err = f.alerts.ConfirmExit(ctx, 4242, "")
	assert.True(t, common.IsNotFound(err))
}

func TestAlertService_PendingAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newAlertServiceFixture(t)

	p, err := f.positions.Add(ctx, dto.AddPositionRequest{Symbol: "600036", EntryPrice: utils.ToPointer(10.0)})
	require.NoError(t, err)
	first, _, err := f.deduper.Create(ctx, p.ID, Trigger{AlertType: entity.AlertTypeTakeProfit, Reason: "tp"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, _, err = f.deduper.Create(ctx, p.ID, Trigger{AlertType: entity.AlertTypeMACross, Reason: "cross"})
	require.NoError(t, err)

	_, err = f.alerts.MarkSent(ctx, first.ID)
	require.NoError(t, err)

	pending, err := f.alerts.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.AlertTypeMACross, pending[0].AlertType)

	history, err := f.alerts.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	limited, err := f.alerts.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
