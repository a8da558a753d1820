package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/market"
	"golang-stock-monitor/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type monitorHarness struct {
	svc       MonitorService
	positions repository.PositionRepository
	alerts    repository.AlertRepository
	decisions repository.DecisionRepository
	inflight  repository.InflightRepository
	market    *fakeMarketData
	notifier  *recordingNotifier
	clock     *utils.FixedClock
}

func testMonitorConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Monitor.AlertCooldown = 60 * time.Minute
	cfg.Monitor.MaxHoldingDays = 5
	cfg.Monitor.WorkerPoolSize = 2
	cfg.Monitor.FetchTimeout = 2 * time.Second
	cfg.Monitor.PositionTimeout = 5 * time.Second
	cfg.Monitor.InflightTTL = time.Minute
	cfg.Monitor.AlertRetentionDays = 30
	cfg.Monitor.DecisionTimeout = 5 * time.Second
	cfg.Monitor.AccountCash = 100000
	return cfg
}

func newMonitorHarness(t *testing.T, now time.Time, cfg *config.Config, gate DecisionGate) *monitorHarness {
	t.Helper()
	db := newTestDB(t)
	h := &monitorHarness{
		positions: repository.NewPositionRepository(db),
		alerts:    repository.NewAlertRepository(db),
		decisions: repository.NewDecisionRepository(db),
		inflight:  repository.NewMemoryInflightRepository(),
		market:    newFakeMarketData(),
		notifier:  &recordingNotifier{},
		clock:     &utils.FixedClock{T: now},
	}
	log := logger.NewNop()
	h.svc = NewMonitorService(cfg, log, h.clock, market.DefaultSchedule(), MonitorDeps{
		PositionRepo: h.positions,
		AlertRepo:    h.alerts,
		DecisionRepo: h.decisions,
		MarketData:   h.market,
		InflightRepo: h.inflight,
		Evaluator:    NewSignalEvaluator(),
		Deduper:      NewAlertDeduper(h.alerts, cfg.Monitor.AlertCooldown, h.clock, log),
		Gate:         gate,
		Notifier:     h.notifier,
	})
	return h
}

func (h *monitorHarness) addHolding(t *testing.T, symbol string, buyDate time.Time) *entity.MonitoredPosition {
	t.Helper()
	p := &entity.MonitoredPosition{
		Symbol:              symbol,
		EntryPrice:          utils.ToPointer(10.0),
		Quantity:            100,
		TakeProfit:          utils.ToPointer(12.0),
		StopLoss:            utils.ToPointer(9.5),
		BuyDate:             buyDate,
		NotificationEnabled: true,
		TradingHoursOnly:    true,
	}
	require.NoError(t, h.positions.Create(context.Background(), p))
	return p
}

func (h *monitorHarness) pending(t *testing.T) []entity.Alert {
	t.Helper()
	alerts, err := h.alerts.FindPending(context.Background())
	require.NoError(t, err)
	return alerts
}

func TestMonitorService_HoldingPeriodExpiresOnce(t *testing.T) {
	ctx := context.Background()
	h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), testMonitorConfig(), nil)
	p := h.addHolding(t, "600519", time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	h.market.setPrice("600519", 10.5)

	for i := 0; i < 3; i++ {
		report, err := h.svc.RunCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Evaluated)
		h.clock.Advance(time.Minute)
	}

	alerts := h.pending(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.AlertTypeHoldingPeriodExpired, alerts[0].AlertType)
	assert.Equal(t, p.ID, alerts[0].PositionID)

	stored, err := h.positions.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.HoldingDays)
}

func TestMonitorService_TakeProfitFromPriceSequence(t *testing.T) {
	ctx := context.Background()
	h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), testMonitorConfig(), nil)
	h.addHolding(t, "600519", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))

	for _, price := range []float64{10.0, 11.5, 12.3} {
		h.market.setPrice("600519", price)
		_, err := h.svc.RunCycle(ctx)
		require.NoError(t, err)
		h.clock.Advance(time.Minute)
	}

	alerts := h.pending(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.AlertTypeTakeProfit, alerts[0].AlertType)
	require.NotNil(t, alerts[0].Price)
	assert.Equal(t, 12.3, *alerts[0].Price)
}

func TestMonitorService_MACrossAcrossCycles(t *testing.T) {
	ctx := context.Background()
	h := newMonitorHarness(t, shanghai(2024, 6, 17, 13, 30), testMonitorConfig(), nil)
	h.addHolding(t, "000001", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	h.market.setPrice("000001", 10.6)

	h.market.setMA("000001", 10.5, 10.4)
	_, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, h.pending(t))

	h.clock.Advance(time.Minute)
	h.market.setMA("000001", 10.2, 10.3)
	_, err = h.svc.RunCycle(ctx)
	require.NoError(t, err)

	alerts := h.pending(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.AlertTypeMACross, alerts[0].AlertType)
}

func TestMonitorService_FetchFailureTouchesPosition(t *testing.T) {
	ctx := context.Background()
	h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), testMonitorConfig(), nil)
	p := h.addHolding(t, "600036", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))

	report, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FetchFailures)
	assert.Equal(t, 1, report.Evaluated)
	assert.Zero(t, report.AlertsCreated)

	stored, err := h.positions.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckedAt)
	assert.Nil(t, stored.LastPriceAt)
	assert.Nil(t, stored.CurrentPrice)

	sample, err := h.positions.LastSample(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, sample)
}

func TestMonitorService_FailingPositionDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), testMonitorConfig(), nil)
	tp := h.addHolding(t, "600519", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	failing := h.addHolding(t, "000001", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	sl := h.addHolding(t, "600036", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	h.market.setPrice("600519", 12.5)
	h.market.setPrice("600036", 9.0)

	report, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Positions)
	assert.Equal(t, 3, report.Evaluated)
	assert.Equal(t, 1, report.FetchFailures)
	assert.Equal(t, 2, report.AlertsCreated)

	byPosition := map[uint]entity.AlertType{}
	for _, a := range h.pending(t) {
		byPosition[a.PositionID] = a.AlertType
	}
	assert.Equal(t, entity.AlertTypeTakeProfit, byPosition[tp.ID])
	assert.Equal(t, entity.AlertTypeStopLoss, byPosition[sl.ID])
	assert.NotContains(t, byPosition, failing.ID)
}

func TestMonitorService_FetchTimeoutTouchesPosition(t *testing.T) {
	ctx := context.Background()
	cfg := testMonitorConfig()
	cfg.Monitor.FetchTimeout = 50 * time.Millisecond
	h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), cfg, nil)
	p := h.addHolding(t, "600519", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	h.market.setPrice("600519", 9.0)
	h.market.block = make(chan struct{})

	report, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FetchFailures)
	assert.Zero(t, report.AlertsCreated)

	stored, err := h.positions.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckedAt)
	assert.Nil(t, stored.CurrentPrice)

	sample, err := h.positions.LastSample(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, sample)
}

func TestMonitorService_CancelLetsRunningPositionFinish(t *testing.T) {
	cfg := testMonitorConfig()
	cfg.Monitor.WorkerPoolSize = 1
	cfg.Monitor.FetchTimeout = 200 * time.Millisecond
	h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), cfg, nil)
	first := h.addHolding(t, "600519", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	h.addHolding(t, "000001", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	last := h.addHolding(t, "600036", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	for _, symbol := range []string{"600519", "000001", "600036"} {
		h.market.setPrice(symbol, 10.0)
	}
	h.market.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	report, err := h.svc.RunCycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, report.Positions)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.FetchFailures)
	assert.Equal(t, 1, report.Skipped)

	// the in-flight evaluation ran to its own fetch timeout after the cancel
	stored, err := h.positions.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckedAt)
	assert.Nil(t, stored.CurrentPrice)

	untouched, err := h.positions.FindByID(context.Background(), last.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.LastCheckedAt)
	assert.Equal(t, 1, h.market.calls)
}

func TestMonitorService_SkipsPositionInFlight(t *testing.T) {
	ctx := context.Background()
	h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), testMonitorConfig(), nil)
	p := h.addHolding(t, "601318", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	h.market.setPrice("601318", 10.2)

	acquired, err := h.inflight.Acquire(ctx, p.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	report, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Evaluated)
	assert.Zero(t, h.market.calls)

	require.NoError(t, h.inflight.Release(ctx, p.ID))
	report, err = h.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Evaluated)
}

func TestMonitorService_DeliverPending(t *testing.T) {
	ctx := context.Background()

	t.Run("marks sent only after delivery", func(t *testing.T) {
		h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), testMonitorConfig(), nil)
		h.addHolding(t, "600519", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
		h.market.setPrice("600519", 9.4)
		_, err := h.svc.RunCycle(ctx)
		require.NoError(t, err)
		require.Len(t, h.pending(t), 1)

		h.notifier.err = errors.New("telegram unavailable")
		report, err := h.svc.DeliverPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
		assert.Len(t, h.pending(t), 1)

		h.notifier.err = nil
		report, err = h.svc.DeliverPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
		assert.Empty(t, h.pending(t))
		require.Len(t, h.notifier.sent(), 1)
		assert.Contains(t, h.notifier.sent()[0], "600519")

		report, err = h.svc.DeliverPending(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Pending)
	})

	t.Run("notifications disabled stay pending", func(t *testing.T) {
		h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), testMonitorConfig(), nil)
		p := &entity.MonitoredPosition{
			Symbol:     "000001",
			EntryPrice: utils.ToPointer(10.0),
			StopLoss:   utils.ToPointer(9.5),
			BuyDate:    time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, h.positions.Create(ctx, p))
		h.market.setPrice("000001", 9.0)
		_, err := h.svc.RunCycle(ctx)
		require.NoError(t, err)

		report, err := h.svc.DeliverPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Empty(t, h.notifier.sent())
		assert.Len(t, h.pending(t), 1)
	})

	t.Run("trading hours only waits for the session", func(t *testing.T) {
		h := newMonitorHarness(t, shanghai(2024, 6, 17, 11, 20), testMonitorConfig(), nil)
		h.addHolding(t, "600036", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
		h.market.setPrice("600036", 12.5)
		_, err := h.svc.RunCycle(ctx)
		require.NoError(t, err)

		h.clock.T = shanghai(2024, 6, 17, 12, 0)
		report, err := h.svc.DeliverPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)

		h.clock.T = shanghai(2024, 6, 17, 13, 0)
		report, err = h.svc.DeliverPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
	})
}

func TestMonitorService_DecisionAfterAlert(t *testing.T) {
	ctx := context.Background()
	cfg := testMonitorConfig()
	cfg.Monitor.DecisionEnabled = true

	ai := new(MockAIRepository)
	ai.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"action":"SELL","confidence":75,"reasoning":"stop loss hit"}`, nil).Once()
	gate := NewDecisionGate(ai, market.DefaultSchedule(), false, logger.NewNop())

	h := newMonitorHarness(t, shanghai(2024, 6, 17, 10, 0), cfg, gate)
	p := h.addHolding(t, "600519", time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC))
	h.market.setPrice("600519", 9.3)

	report, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AlertsCreated)
	assert.Equal(t, 1, report.Decisions)

	// the alert already exists, so the second cycle asks for no decision
	h.clock.Advance(time.Minute)
	_, err = h.svc.RunCycle(ctx)
	require.NoError(t, err)
	ai.AssertExpectations(t)

	decisions, err := h.decisions.FindByPosition(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, dto.ActionHold, decisions[0].Action)
	assert.True(t, decisions[0].Overridden)
	assert.True(t, decisions[0].Executable)
	assert.Len(t, h.notifier.sent(), 1)
}

func TestMonitorService_PurgeAlerts(t *testing.T) {
	ctx := context.Background()
	h := newMonitorHarness(t, shanghai(2024, 5, 6, 10, 0), testMonitorConfig(), nil)
	h.addHolding(t, "600519", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	h.market.setPrice("600519", 9.0)

	_, err := h.svc.RunCycle(ctx)
	require.NoError(t, err)
	_, err = h.svc.DeliverPending(ctx)
	require.NoError(t, err)

	h.clock.Advance(40 * 24 * time.Hour)
	deleted, err := h.svc.PurgeAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
