package app

import (
	"context"
	"fmt"

	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/internal/monitor/service"
	"golang-stock-monitor/pkg/database"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/market"
	"golang-stock-monitor/pkg/redis"
	"golang-stock-monitor/pkg/telegram"
	"golang-stock-monitor/pkg/utils"
)

// App holds the wired monitor for one process. Build it once at startup and
// Close it at shutdown.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *database.DB
	Redis    *redis.Client
	Schedule market.Schedule
	Clock    utils.Clock

	PositionService service.PositionService
	AlertService    service.AlertService
	MonitorService  service.MonitorService
}

// Options controls which collaborators New builds.
type Options struct {
	// Engine builds market data, decision and notification collaborators.
	// Operational commands that only touch the store leave it off.
	Engine bool
}

// New loads configuration from path and wires the monitor.
func New(ctx context.Context, path string, opts Options) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	schedule, err := cfg.Session.Schedule()
	if err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	db, err := database.NewDB(database.Config{
		Driver:          cfg.Database.Driver,
		Path:            cfg.Database.Path,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, err
	}
	if db.Driver == database.DriverSQLite {
		if err := repository.AutoMigrate(db.DB); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate sqlite store: %w", err)
		}
	}

	a := &App{
		Config:   cfg,
		Logger:   appLogger,
		DB:       db,
		Schedule: schedule,
		Clock:    utils.SystemClock(),
	}

	positionRepo := repository.NewPositionRepository(db.DB)
	alertRepo := repository.NewAlertRepository(db.DB)
	decisionRepo := repository.NewDecisionRepository(db.DB)

	deduper := service.NewAlertDeduper(alertRepo, cfg.Monitor.AlertCooldown, a.Clock, appLogger)
	a.PositionService = service.NewPositionService(positionRepo, schedule, a.Clock, appLogger)
	a.AlertService = service.NewAlertService(alertRepo, a.PositionService, deduper, appLogger)

	if !opts.Engine {
		return a, nil
	}

	inflightRepo := repository.NewMemoryInflightRepository()
	if cfg.Redis.Host != "" {
		a.Redis, err = redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		inflightRepo = repository.NewRedisInflightRepository(a.Redis)
	}

	marketData, err := repository.NewMarketDataRepository(cfg, appLogger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var gate service.DecisionGate
	if cfg.Monitor.DecisionEnabled {
		aiRepo, err := repository.NewAIRepository(ctx, cfg, appLogger)
		if err != nil {
			a.Close()
			return nil, err
		}
		gate = service.NewDecisionGate(aiRepo, schedule, cfg.Monitor.AnalysisOnlyOutsideHours, appLogger)
	}

	notifier := telegram.NewLogNotifier(appLogger)
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize telegram client: %w", err)
		}
	}

	a.MonitorService = service.NewMonitorService(cfg, appLogger, a.Clock, schedule, service.MonitorDeps{
		PositionRepo: positionRepo,
		AlertRepo:    alertRepo,
		DecisionRepo: decisionRepo,
		MarketData:   marketData,
		InflightRepo: inflightRepo,
		Evaluator:    service.NewSignalEvaluator(),
		Deduper:      deduper,
		Gate:         gate,
		Notifier:     notifier,
	})
	return a, nil
}

// Close releases the store and redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close redis", logger.ErrorField(err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database", logger.ErrorField(err))
	}
	_ = a.Logger.Sync()
}
