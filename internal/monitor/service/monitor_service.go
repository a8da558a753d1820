package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/internal/monitor/dto"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/market"
	"golang-stock-monitor/pkg/telegram"
	"golang-stock-monitor/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"golang.org/x/sync/errgroup"
)

// MonitorService runs evaluation cycles and delivers pending alerts.
type MonitorService interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
	DeliverPending(ctx context.Context) (*DeliveryReport, error)
	RecomputeHoldingDays(ctx context.Context) (int, error)
	PurgeAlerts(ctx context.Context) (int64, error)

	// Process* adapt the operations above to ticker and cron handlers.
	ProcessCycle(ctx context.Context)
	ProcessDelivery(ctx context.Context)
	ProcessHoldingDays(ctx context.Context)
	ProcessPurge(ctx context.Context)
}

// CycleReport summarises one evaluation cycle.
type CycleReport struct {
	CycleID       string
	Session       market.SessionInfo
	Positions     int
	Evaluated     int
	Skipped       int
	FetchFailures int
	AlertsCreated int
	Decisions     int

	mu sync.Mutex
}

func (r *CycleReport) add(fn func(r *CycleReport)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

// DeliveryReport summarises one delivery pass.
type DeliveryReport struct {
	Pending int
	Sent    int
	Skipped int
	Failed  int
}

type monitorService struct {
	cfg          *config.Config
	logger       *logger.Logger
	clock        utils.Clock
	schedule     market.Schedule
	positionRepo repository.PositionRepository
	alertRepo    repository.AlertRepository
	decisionRepo repository.DecisionRepository
	marketData   repository.MarketDataRepository
	inflightRepo repository.InflightRepository
	evaluator    SignalEvaluator
	deduper      AlertDeduper
	gate         DecisionGate
	notifier     telegram.Notifier

	recomputeMu     sync.Mutex
	lastRecomputeOn time.Time
}

// MonitorDeps groups the collaborators of the monitor service. Gate and
// DecisionRepo may be nil when decisions are disabled.
type MonitorDeps struct {
	PositionRepo repository.PositionRepository
	AlertRepo    repository.AlertRepository
	DecisionRepo repository.DecisionRepository
	MarketData   repository.MarketDataRepository
	InflightRepo repository.InflightRepository
	Evaluator    SignalEvaluator
	Deduper      AlertDeduper
	Gate         DecisionGate
	Notifier     telegram.Notifier
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(cfg *config.Config, log *logger.Logger, clock utils.Clock, schedule market.Schedule, deps MonitorDeps) MonitorService {
	return &monitorService{
		cfg:          cfg,
		logger:       log,
		clock:        clock,
		schedule:     schedule,
		positionRepo: deps.PositionRepo,
		alertRepo:    deps.AlertRepo,
		decisionRepo: deps.DecisionRepo,
		marketData:   deps.MarketData,
		inflightRepo: deps.InflightRepo,
		evaluator:    deps.Evaluator,
		deduper:      deps.Deduper,
		gate:         deps.Gate,
		notifier:     deps.Notifier,
	}
}

// RunCycle evaluates every holding position once. Cancelling ctx stops new
// positions from starting; evaluations already running finish.
func (s *monitorService) RunCycle(ctx context.Context) (*CycleReport, error) {
	ctx = logger.WithCycleID(ctx, uuid.NewString())
	now := s.clock.Now()
	session := s.schedule.Classify(now)

	if err := s.ensureHoldingDays(ctx, now); err != nil {
		s.logger.ErrorContext(ctx, "Failed to recompute holding days, evaluating with stored values", logger.ErrorField(err))
	}

	positions, err := s.positionRepo.FindHolding(ctx)
	if err != nil {
		return nil, err
	}

	report := &CycleReport{
		CycleID:   logger.CycleID(ctx),
		Session:   session,
		Positions: len(positions),
	}
	s.logger.InfoContext(ctx, "Evaluation cycle started",
		logger.StringField("session", string(session.Session)),
		logger.Field("can_trade", session.CanTrade),
		logger.IntField("positions", len(positions)))

	poolSize := s.cfg.Monitor.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	var g errgroup.Group
	g.SetLimit(poolSize)

	for i := range positions {
		if ctx.Err() != nil {
			break
		}
		position := positions[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				report.add(func(r *CycleReport) { r.Skipped++ })
				return nil
			}
			s.evaluateGuarded(ctx, &position, session, len(positions), report)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "Evaluation cycle finished",
		logger.IntField("evaluated", report.Evaluated),
		logger.IntField("skipped", report.Skipped),
		logger.IntField("fetch_failures", report.FetchFailures),
		logger.IntField("alerts_created", report.AlertsCreated))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// evaluateGuarded skips the position when a previous evaluation is still running.
func (s *monitorService) evaluateGuarded(ctx context.Context, position *entity.MonitoredPosition, session market.SessionInfo, positionCount int, report *CycleReport) {
	evalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Monitor.PositionTimeout)
	defer cancel()

	acquired, err := s.inflightRepo.Acquire(evalCtx, position.ID, s.cfg.Monitor.InflightTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to acquire inflight marker", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
		report.add(func(r *CycleReport) { r.Skipped++ })
		return
	}
	if !acquired {
		s.logger.InfoContext(ctx, "Previous evaluation still in flight, skipping", logger.StringField("symbol", position.Symbol))
		report.add(func(r *CycleReport) { r.Skipped++ })
		return
	}
	defer func() {
		if err := s.inflightRepo.Release(context.WithoutCancel(ctx), position.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to release inflight marker", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
		}
	}()

	s.evaluatePosition(evalCtx, position, session, positionCount, report)
}

func (s *monitorService) evaluatePosition(ctx context.Context, position *entity.MonitoredPosition, session market.SessionInfo, positionCount int, report *CycleReport) {
	previous, err := s.positionRepo.LastSample(ctx, position.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load previous sample", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
	}

	in := EvaluationInput{
		Position:       position,
		Previous:       previous,
		MaxHoldingDays: s.cfg.Monitor.MaxHoldingDays,
	}

	quote, err := s.fetchQuote(ctx, position.Symbol)
	if err != nil {
		s.logger.WarnContext(ctx, "Price fetch failed, marking position checked",
			logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
		report.add(func(r *CycleReport) { r.FetchFailures++ })
		if err := s.positionRepo.TouchChecked(ctx, position.ID, s.clock.Now()); err != nil {
			s.logger.ErrorContext(ctx, "Failed to touch position", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
		}
	} else {
		in.Price = utils.ToPointer(quote.Price)
		if ma, err := s.fetchMovingAverages(ctx, position.Symbol); err != nil {
			s.logger.WarnContext(ctx, "Moving average fetch failed", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
		} else {
			in.MA5 = utils.ToPointer(ma.MA5)
			in.MA20 = utils.ToPointer(ma.MA20)
		}

		sample := &entity.PriceSample{
			PositionID: position.ID,
			Price:      quote.Price,
			MA5:        in.MA5,
			MA20:       in.MA20,
			ObservedAt: s.clock.Now(),
		}
		if err := s.positionRepo.RecordPrice(ctx, sample); err != nil {
			s.logger.ErrorContext(ctx, "Failed to record price", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
		}
	}
	report.add(func(r *CycleReport) { r.Evaluated++ })

	trigger := s.evaluator.Evaluate(in)
	if trigger == nil {
		return
	}

	alert, created, err := s.deduper.Create(ctx, position.ID, *trigger)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create alert", logger.ErrorField(err),
			logger.StringField("symbol", position.Symbol), logger.StringField("alert_type", string(trigger.AlertType)))
		return
	}
	if !created {
		return
	}
	report.add(func(r *CycleReport) { r.AlertsCreated++ })

	if s.gate == nil || !s.cfg.Monitor.DecisionEnabled {
		return
	}
	if s.decide(ctx, position, quote, in, session, positionCount, alert) {
		report.add(func(r *CycleReport) { r.Decisions++ })
	}
}

func (s *monitorService) fetchQuote(ctx context.Context, symbol string) (*dto.Quote, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Monitor.FetchTimeout)
	defer cancel()
	return s.marketData.GetCurrentPrice(fetchCtx, symbol)
}

func (s *monitorService) fetchMovingAverages(ctx context.Context, symbol string) (*dto.MovingAverages, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Monitor.FetchTimeout)
	defer cancel()
	return s.marketData.GetMovingAverages(fetchCtx, symbol)
}

func (s *monitorService) decide(ctx context.Context, position *entity.MonitoredPosition, quote *dto.Quote, in EvaluationInput,
	session market.SessionInfo, positionCount int, alert *entity.Alert) bool {
	req := &dto.DecisionRequest{
		Symbol:     position.Symbol,
		Name:       position.Name,
		PositionID: utils.ToPointer(position.ID),
		AlertID:    utils.ToPointer(alert.ID),
		Trigger:    alert.Reason,
		Market: dto.MarketSnapshot{
			Price: in.Price,
			MA5:   in.MA5,
			MA20:  in.MA20,
		},
		Account: dto.AccountSnapshot{
			Cash:          s.cfg.Monitor.AccountCash,
			PositionCount: positionCount,
		},
		Session: session,
	}
	if quote != nil {
		req.Market.ChangePct = quote.ChangePct
		req.Market.High = quote.High
		req.Market.Low = quote.Low
	}
	if !position.IsCandidate() {
		snapshot := &dto.PositionSnapshot{
			EntryPrice:   *position.EntryPrice,
			Quantity:     position.Quantity,
			BuyDate:      position.BuyDate,
			HoldingDays:  position.HoldingDays,
			CanSellToday: !utils.CivilDate(position.BuyDate, time.UTC).Equal(s.schedule.TradingDay(session.At)),
		}
		if in.Price != nil && *position.EntryPrice > 0 {
			snapshot.ProfitPct = (*in.Price - *position.EntryPrice) / *position.EntryPrice * 100
		}
		req.Position = snapshot
	}

	decisionCtx, cancel := context.WithTimeout(ctx, s.cfg.Monitor.DecisionTimeout)
	defer cancel()

	decision, err := s.gate.Decide(decisionCtx, req)
	if errors.Is(err, ErrDecisionSkipped) {
		s.logger.DebugContext(ctx, "Decision skipped outside tradable session", logger.StringField("symbol", position.Symbol))
		return false
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Decision provider failed", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
		return false
	}

	s.logger.InfoContext(ctx, "Decision made",
		logger.StringField("symbol", position.Symbol),
		logger.StringField("action", decision.Action),
		logger.IntField("confidence", decision.Confidence),
		logger.Field("executable", decision.Executable),
		logger.Field("overridden", decision.Overridden))

	if s.decisionRepo != nil {
		levels, err := json.Marshal(decision.PriceLevels)
		if err != nil {
			levels = []byte("{}")
		}
		record := &entity.Decision{
			PositionID:      req.PositionID,
			AlertID:         req.AlertID,
			Symbol:          decision.Symbol,
			Provider:        decision.Provider,
			Session:         decision.Session,
			Action:          decision.Action,
			Confidence:      decision.Confidence,
			Reasoning:       decision.Reasoning,
			PositionSizePct: decision.PositionSizePct,
			StopLossPct:     decision.StopLossPct,
			TakeProfitPct:   decision.TakeProfitPct,
			RiskLevel:       decision.RiskLevel,
			PriceLevels:     datatypes.JSON(levels),
			Executable:      decision.Executable,
			Overridden:      decision.Overridden,
			ParseError:      decision.ParseError,
			RawResponse:     decision.Raw,
		}
		if err := s.decisionRepo.Create(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "Failed to store decision", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
		}
	}

	if err := s.notifier.SendMessage(telegram.FormatDecisionForTelegram(decision)); err != nil {
		s.logger.WarnContext(ctx, "Failed to send decision", logger.ErrorField(err), logger.StringField("symbol", position.Symbol))
	}
	return true
}

// DeliverPending sends every unsent alert whose position allows it right now.
// Alerts that fail to send stay unsent for the next pass.
func (s *monitorService) DeliverPending(ctx context.Context) (*DeliveryReport, error) {
	alerts, err := s.alertRepo.FindPending(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := s.schedule.Classify(now)
	report := &DeliveryReport{Pending: len(alerts)}

	for i := range alerts {
		if ctx.Err() != nil {
			break
		}
		alert := &alerts[i]
		if !s.deliverable(alert, session) {
			report.Skipped++
			continue
		}

		message := telegram.FormatAlertForTelegram(alert, session, s.schedule.Location)
		if err := s.notifier.SendMessage(message); err != nil {
			s.logger.ErrorContext(ctx, "Failed to send alert", logger.ErrorField(err), logger.IntField("alert_id", int(alert.ID)))
			report.Failed++
			continue
		}
		if _, err := s.deduper.MarkSent(ctx, alert.ID); err != nil {
			// delivered but not marked: the next pass will send it again
			s.logger.ErrorContext(ctx, "Failed to mark alert sent", logger.ErrorField(err), logger.IntField("alert_id", int(alert.ID)))
			report.Failed++
			continue
		}
		report.Sent++
	}

	if report.Pending > 0 {
		s.logger.InfoContext(ctx, "Alert delivery finished",
			logger.IntField("pending", report.Pending),
			logger.IntField("sent", report.Sent),
			logger.IntField("skipped", report.Skipped),
			logger.IntField("failed", report.Failed))
	}
	return report, ctx.Err()
}

func (s *monitorService) deliverable(alert *entity.Alert, session market.SessionInfo) bool {
	p := alert.Position
	if p == nil {
		return true
	}
	if !p.NotificationEnabled {
		return false
	}
	if p.TradingHoursOnly && !session.CanTrade {
		return false
	}
	return true
}

// ensureHoldingDays recomputes holding days once per trading day.
func (s *monitorService) ensureHoldingDays(ctx context.Context, now time.Time) error {
	day := s.schedule.TradingDay(now)

	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()
	if s.lastRecomputeOn.Equal(day) {
		return nil
	}
	updated, err := s.positionRepo.RecomputeHoldingDays(ctx, day)
	if err != nil {
		return err
	}
	s.lastRecomputeOn = day
	s.logger.InfoContext(ctx, "Holding days recomputed", logger.IntField("updated", updated), logger.StringField("as_of", day.Format(time.DateOnly)))
	return nil
}

func (s *monitorService) RecomputeHoldingDays(ctx context.Context) (int, error) {
	day := s.schedule.TradingDay(s.clock.Now())

	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()
	updated, err := s.positionRepo.RecomputeHoldingDays(ctx, day)
	if err != nil {
		return 0, err
	}
	s.lastRecomputeOn = day
	return updated, nil
}

func (s *monitorService) PurgeAlerts(ctx context.Context) (int64, error) {
	return s.deduper.Purge(ctx, s.cfg.Monitor.AlertRetentionDays)
}

func (s *monitorService) ProcessCycle(ctx context.Context) {
	if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Evaluation cycle failed", logger.ErrorField(err))
	}
}

func (s *monitorService) ProcessDelivery(ctx context.Context) {
	if _, err := s.DeliverPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Alert delivery failed", logger.ErrorField(err))
	}
}

func (s *monitorService) ProcessHoldingDays(ctx context.Context) {
	updated, err := s.RecomputeHoldingDays(ctx)
	if err != nil {
		s.logger.Error("Holding days recompute failed", logger.ErrorField(err))
		return
	}
	s.logger.Info("Holding days recomputed", logger.IntField("updated", updated))
}

func (s *monitorService) ProcessPurge(ctx context.Context) {
	if _, err := s.PurgeAlerts(ctx); err != nil {
		s.logger.Error("Alert purge failed", logger.ErrorField(err))
	}
}
