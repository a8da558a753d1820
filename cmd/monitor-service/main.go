package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-stock-monitor/internal/monitor/app"
	delivery "golang-stock-monitor/internal/monitor/delivery/http"
	"golang-stock-monitor/internal/monitor/delivery/worker"
	_ "golang-stock-monitor/internal/monitor/docs"
	"golang-stock-monitor/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the monitor service",
	Run:   runServe,
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Runs a single evaluation cycle and delivery pass, then exits",
	Run:   runOnce,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor, err := app.New(ctx, configPath, app.Options{Engine: true})
	if err != nil {
		log.Fatalf("Failed to initialize monitor: %v", err)
	}
	defer monitor.Close()

	cfg := monitor.Config
	appLogger := monitor.Logger
	appLogger.Info("Starting Monitor Service",
		logger.Field("name", cfg.App.Name),
		logger.Field("database", monitor.DB.Driver),
		logger.Field("decisions", cfg.Monitor.DecisionEnabled))

	runner := worker.NewRunner(cfg, monitor.MonitorService, monitor.Schedule.Location, appLogger)
	if err := runner.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start runner", logger.ErrorField(err))
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	apiV1 := e.Group("/api/v1")
	delivery.NewPositionHandler(monitor.PositionService, appLogger).RegisterRoutes(apiV1.Group("/positions"))
	delivery.NewAlertHandler(monitor.AlertService, appLogger).RegisterRoutes(apiV1.Group("/alerts"))
	delivery.NewSessionHandler(monitor.Schedule, monitor.Clock).RegisterRoutes(apiV1.Group("/session"))

	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down monitor...")
	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Monitor exiting")
}

func runOnce(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor, err := app.New(ctx, configPath, app.Options{Engine: true})
	if err != nil {
		log.Fatalf("Failed to initialize monitor: %v", err)
	}
	defer monitor.Close()

	report, err := monitor.MonitorService.RunCycle(ctx)
	if err != nil {
		monitor.Logger.Error("Evaluation cycle failed", logger.ErrorField(err))
	}
	if report != nil {
		fmt.Printf("session=%s positions=%d evaluated=%d skipped=%d fetch_failures=%d alerts=%d decisions=%d\n",
			report.Session.Session, report.Positions, report.Evaluated, report.Skipped,
			report.FetchFailures, report.AlertsCreated, report.Decisions)
	}

	delivered, err := monitor.MonitorService.DeliverPending(ctx)
	if err != nil {
		monitor.Logger.Error("Alert delivery failed", logger.ErrorField(err))
	}
	if delivered != nil {
		fmt.Printf("pending=%d sent=%d skipped=%d failed=%d\n", delivered.Pending, delivered.Sent, delivered.Skipped, delivered.Failed)
	}
}

// @title Stock Position Monitor API
// @version 1.0
// @description Position monitoring, alerting and trade decision gating for A-share stocks.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "monitor-service"}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-monitor.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd, runOnceCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing monitor-service CLI: %s\n", err)
		os.Exit(1)
	}
}
