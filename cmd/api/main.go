package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file")
	storeBackend := pflag.String("store", "", "store backend override (memory, file, sqlite, redis, postgres)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *storeBackend != "" {
		cfg.Store.Backend = *storeBackend
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open ticket store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer store.Close()

	directory, err := auth.SeedDefaults(cfg.Auth.AdminPassword, cfg.Auth.UserPassword, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to seed accounts", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	prefs := repository.NewPreferenceRepository(store, logger)
	roles := auth.NewRoleGate(prefs)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(store, logger),
		Roles:      roles,
		Dispatcher: dispatcher,
		Clock:      clock.Real(),
		Logger:     logger,
	})
	authService := service.NewAuthService(cfg.Auth, directory)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	sweeper := worker.NewSLASweeper(ticketService, dispatcher, metrics, logger, cfg.SLA.SweepInterval())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Backend, store, metrics),
		Tickets:     handlers.NewTicketsHandler(ticketService, prefs),
		Session:     handlers.NewSessionHandler(authService, roles, prefs, dispatcher, logger),
		SessionGate: auth.NewSessionGate(authService.Sessions(), cfg.Auth.RequireLogin),
	})

	stopWorkers := worker.StartBackground(ctx, worker.Background{
		Notifications: notificationService,
		Sweeper:       sweeper,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Backend))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	stopWorkers()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
