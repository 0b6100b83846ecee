package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/banza/complaint-desk/internal/api/http"
	"github.com/banza/complaint-desk/internal/api/http/handlers"
	"github.com/banza/complaint-desk/internal/config"
	"github.com/banza/complaint-desk/internal/events"
	"github.com/banza/complaint-desk/internal/identity"
	"github.com/banza/complaint-desk/internal/observability"
	"github.com/banza/complaint-desk/internal/persistence"
	"github.com/banza/complaint-desk/internal/repository"
	"github.com/banza/complaint-desk/internal/rules"
	"github.com/banza/complaint-desk/internal/service"
	"github.com/banza/complaint-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ruleSet, err := rules.Load(cfg.Rules.File)
	if err != nil {
		logger.Fatal("failed to load rules", zap.String("file", cfg.Rules.File), zap.Error(err))
	}
	location, err := cfg.Import.Location()
	if err != nil {
		logger.Fatal("invalid import timezone", zap.Error(err))
	}
	ids, err := identity.NewGenerator(cfg.Identity.SnowflakeNode)
	if err != nil {
		logger.Fatal("failed to init id generator", zap.Error(err))
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var codeRegistry repository.CodeRegistry
	if redis != nil {
		codeRegistry = repository.NewRedisCodeRegistry(redis.Client, "", cfg.Redis.CodeTTL())
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification), logger)
	worker.StartAuditWorker(dispatcher, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     repository.NewTicketRepository(),
		CodeRegistry:   codeRegistry,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		IDs:            ids,
		Rules:          &ruleSet,
		Location:       location,
		MaxUploadBytes: cfg.Import.MaxUploadBytes(),
	})
	if cfg.Seed.Enabled {
		if err := ticketService.Seed(ctx); err != nil {
			logger.Fatal("failed to seed tickets", zap.Error(err))
		}
	}

	app := httptransport.NewApp(cfg.App.Name, cfg.Import.MaxUploadBytes())
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:            cfg.App.RequestTimeout(),
		CORSAllowOrigins:   cfg.App.CORSAllowOrigins,
		RateLimitPerMinute: cfg.App.RateLimitPerMinute,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, redis),
		Complaints: handlers.NewComplaintsHandler(ticketService),
		Support:    handlers.NewSupportTicketsHandler(ticketService),
		Metrics:    metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
