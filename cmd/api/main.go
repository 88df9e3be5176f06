package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/service-shop/internal/api/http"
	"github.com/spec-kit/service-shop/internal/api/http/handlers"
	"github.com/spec-kit/service-shop/internal/auth"
	"github.com/spec-kit/service-shop/internal/billing"
	"github.com/spec-kit/service-shop/internal/config"
	"github.com/spec-kit/service-shop/internal/events"
	"github.com/spec-kit/service-shop/internal/gateway"
	"github.com/spec-kit/service-shop/internal/lock"
	"github.com/spec-kit/service-shop/internal/messaging"
	"github.com/spec-kit/service-shop/internal/observability"
	"github.com/spec-kit/service-shop/internal/persistence"
	"github.com/spec-kit/service-shop/internal/repository"
	"github.com/spec-kit/service-shop/internal/service"
	"github.com/spec-kit/service-shop/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		requestRepo repository.ServiceRequestRepository
		invoiceRepo repository.InvoiceRepository
	)
	if pg.Enabled() {
		requestRepo = repository.NewServiceRequestRepository(pg.PoolHandle())
		invoiceRepo = repository.NewInvoiceRepository(pg.PoolHandle())
	} else {
		requestRepo = repository.NewMemoryServiceRequestRepository()
		invoiceRepo = repository.NewMemoryInvoiceRepository()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var locker lock.BayLocker
	if redis.Enabled() {
		locker = lock.NewRedisLocker(redis.Client, cfg.Redis.BayLockTTL())
	} else {
		locker = lock.NewMemoryLocker()
	}

	gw, err := buildGateways(cfg.Gateways, logger)
	if err != nil {
		logger.Fatal("failed to build gateways", zap.Error(err))
	}

	invoiceService := billing.NewInvoiceService(billing.Dependencies{
		RequestRepo: requestRepo,
		InvoiceRepo: invoiceRepo,
		Pricer:      gw.pricer,
		Logger:      logger,
	})
	var invoicesHandler *handlers.InvoicesHandler
	if gw.invoices == nil {
		gw.invoices = billing.NewLocalTrigger(invoiceService)
		invoicesHandler = handlers.NewInvoicesHandler(invoiceService)
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	publisher, err := messaging.New(ctx, cfg.Bus, dispatcher, logger)
	if err != nil {
		logger.Fatal("failed to init event bus", zap.Error(err))
	}
	defer publisher.Close() //nolint:errcheck

	requestService := service.NewServiceRequestService(service.Dependencies{
		RequestRepo: requestRepo,
		Vehicles:    gw.vehicles,
		Workload:    gw.workload,
		Invoices:    gw.invoices,
		Customers:   gw.customers,
		Publisher:   publisher,
		Locker:      locker,
		Degrader:    gateway.NewDegrader(logger, cfg.Gateways.Timeout(), metrics),
		Metrics:     metrics,
		Logger:      logger,
		TotalBays:   cfg.Shop.TotalBays,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		ServiceRequests: handlers.NewServiceRequestsHandler(requestService),
		Shop:            handlers.NewShopHandler(requestService),
		Invoices:        invoicesHandler,
		AuthMiddleware:  auth.NewAuthMiddleware(auth.NewTokenVerifier(cfg.Auth.JWTSecret)),
		Metrics:         metrics,
	})

	reconciler := worker.NewWorkloadReconciler(requestService, metrics, cfg.Worker.ReconcileInterval(), logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	group.Go(func() error {
		return reconciler.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
	}
}

type gateways struct {
	vehicles  gateway.VehicleDirectory
	pricer    gateway.PartsPricer
	workload  gateway.WorkloadTracker
	invoices  gateway.InvoiceTrigger
	customers gateway.CustomerDirectory
}

// buildGateways creates HTTP clients for configured collaborators. A missing
// URL selects the local fallback, except billing, which main wires to the
// in-process invoice service.
func buildGateways(cfg config.GatewayConfig, logger *zap.Logger) (gateways, error) {
	gw := gateways{
		vehicles:  gateway.UnconfiguredVehicles(),
		pricer:    gateway.ZeroPricer(),
		workload:  gateway.LoggingWorkload(logger),
		customers: gateway.IDOnlyDirectory(),
	}
	timeout := cfg.Timeout()

	if cfg.VehicleURL != "" {
		client, err := gateway.NewVehicleClient(cfg.VehicleURL, timeout)
		if err != nil {
			return gw, err
		}
		gw.vehicles = client
	} else {
		logger.Warn("VEHICLE_SERVICE_URL not set; service request creation will fail")
	}
	if cfg.InventoryURL != "" {
		client, err := gateway.NewPricingClient(cfg.InventoryURL, timeout)
		if err != nil {
			return gw, err
		}
		gw.pricer = client
	}
	if cfg.TechnicianURL != "" {
		client, err := gateway.NewWorkloadClient(cfg.TechnicianURL, timeout)
		if err != nil {
			return gw, err
		}
		gw.workload = client
	}
	if cfg.BillingURL != "" {
		client, err := gateway.NewBillingClient(cfg.BillingURL, timeout)
		if err != nil {
			return gw, err
		}
		gw.invoices = client
	}
	if cfg.CustomerURL != "" {
		client, err := gateway.NewCustomerClient(cfg.CustomerURL, timeout)
		if err != nil {
			return gw, err
		}
		gw.customers = client
	}
	return gw, nil
}
