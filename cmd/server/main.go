// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "escpos-service/docs"
	"escpos-service/internal/config"
	"escpos-service/internal/driver"
	"escpos-service/internal/handler"
	"escpos-service/internal/routes"
	"escpos-service/internal/service"
	"escpos-service/internal/utils"
	"escpos-service/pkg/escpos"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	// Services
	printerService *service.PrinterService
	statusMonitor  *service.StatusMonitor

	// Events
	eventBus         *handler.EventBus
	eventBusDone     chan struct{}
	websocketHandler *handler.WebSocketHandler

	// Printer registry
	registry *driver.Registry
}

// @title ESC/POS Printer Service API
// @version 1.0.0
// @description CODE128 barcode printing and real-time status for ESC/POS thermal printers

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.LoadFile(os.Getenv("ESCPOS_SERVICE_CONFIG_FILE"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "escpos-service")
	serviceLogger.LogServiceStart(cfg.App.Version,
		zap.String("environment", cfg.App.Environment),
		zap.String("config_file", cfg.ConfigFile),
		zap.Int("printers", len(cfg.Printers)),
	)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeRegistry(); err != nil {
		return nil, fmt.Errorf("failed to initialize printer registry: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeRegistry creates the registry; printers are added by the printer service
func (app *Application) initializeRegistry() error {
	app.registry = driver.NewRegistry(nil, app.logger)
	return nil
}

// initializeServices creates service instances and wires printer events
func (app *Application) initializeServices() error {
	app.printerService = service.NewPrinterService(app.registry, app.config, app.logger)
	if err := app.printerService.RegisterConfiguredPrinters(); err != nil {
		return err
	}

	// the operation timeout bounds each exchange, so a round gets one per kind
	pollTimeout := app.config.Device.OperationTimeout * time.Duration(len(escpos.StatusBattery()))
	app.statusMonitor = service.NewStatusMonitor(
		app.registry,
		app.config.Device.StatusPollInterval,
		pollTimeout,
		app.logger,
	)

	app.websocketHandler = handler.NewWebSocketHandler(app.printerService, app.config.Security.AllowedOrigins, app.logger)
	app.eventBus = handler.NewEventBus(app.logger)
	app.eventBusDone = make(chan struct{})
	app.websocketHandler.Forward(app.eventBus)
	app.printerService.SetEventHandler(handler.NewPrinterEventHandler(app.eventBus, app.logger))

	app.logger.Info("Services initialized successfully",
		zap.Strings("printers", app.registry.IDs()),
	)
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.printerService,
		app.websocketHandler,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)

	return nil
}

// startBackgroundServices starts the event bus, the startup connections and status polling
func (app *Application) startBackgroundServices(ctx context.Context) {
	go func() {
		defer close(app.eventBusDone)
		app.eventBus.Start()
	}()

	go func() {
		if app.config.Device.ConnectOnStartup {
			connected := app.printerService.ConnectAll(ctx)
			app.logger.Info("Startup connections finished",
				zap.Int("connected", connected),
				zap.Int("total", len(app.registry.IDs())),
			)
		}
		app.statusMonitor.Start(ctx)
	}()

	app.logger.Info("Background services started")
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown(cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	cancel()
	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "escpos-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.statusMonitor.Stop()
	app.websocketHandler.Close()

	if err := app.printerService.Shutdown(); err != nil {
		app.logger.Error("Printer close error", zap.Error(err))
	} else {
		app.logger.Info("Printers closed")
	}

	app.eventBus.Stop()
	<-app.eventBusDone

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start runs the HTTP server until a shutdown signal arrives
func (app *Application) Start() error {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices(ctx)

	app.waitForShutdown(cancel)

	return nil
}
