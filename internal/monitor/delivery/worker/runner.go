package worker

import (
	"context"
	"sync"
	"time"

	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/internal/monitor/service"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/utils"

	"github.com/robfig/cron/v3"
)

// Runner drives the monitor service from tickers and cron schedules.
type Runner struct {
	cfg            *config.Config
	monitorService service.MonitorService
	logger         *logger.Logger
	cron           *cron.Cron
	stopChan       chan struct{}
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// NewRunner creates a new Runner. Cron expressions are evaluated in loc.
func NewRunner(cfg *config.Config, monitorService service.MonitorService, loc *time.Location, log *logger.Logger) *Runner {
	return &Runner{
		cfg:            cfg,
		monitorService: monitorService,
		logger:         log,
		cron:           cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		stopChan:       make(chan struct{}),
	}
}

// Start registers the evaluation, delivery and maintenance handlers.
func (r *Runner) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	r.logger.Info("Monitor runner started")

	r.RegisterTickerHandler(ctx, r.monitorService.ProcessCycle, r.cfg.Monitor.PollInterval, r.cfg.Monitor.PollInterval, "evaluation-cycle")
	r.RegisterTickerHandler(ctx, r.monitorService.ProcessDelivery, r.cfg.Monitor.DeliveryInterval, r.cfg.Monitor.DeliveryInterval, "alert-delivery")

	if err := r.RegisterCronHandler(ctx, r.monitorService.ProcessHoldingDays, r.cfg.Monitor.HoldingDaysCron, time.Minute, "holding-days"); err != nil {
		return err
	}
	if err := r.RegisterCronHandler(ctx, r.monitorService.ProcessPurge, r.cfg.Monitor.PurgeCron, time.Minute, "alert-purge"); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// RegisterTickerHandler runs fn every interval, each run bounded by timeout.
// Runs never overlap: a tick that arrives while fn is still running is dropped.
func (r *Runner) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	r.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	r.wg.Add(1)
	utils.GoSafe(func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				r.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-r.stopChan:
				r.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// RegisterCronHandler runs fn on the given cron schedule.
func (r *Runner) RegisterCronHandler(ctx context.Context, fn func(ctx context.Context), spec string, timeout time.Duration, name string) error {
	if spec == "" {
		r.logger.Info("Cron handler disabled", logger.Field("name", name))
		return nil
	}
	r.logger.Info("Registering cron handler", logger.Field("name", name), logger.Field("spec", spec))
	_, err := r.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		fn(ctxTimeout)
	})
	return err
}

// Stop cancels running handlers cooperatively and waits for them to return.
func (r *Runner) Stop() {
	close(r.stopChan)
	if r.cancel != nil {
		r.cancel()
	}
	<-r.cron.Stop().Done()
	r.wg.Wait()
	r.logger.Info("Monitor runner stopped")
}
