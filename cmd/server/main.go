package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/petshop/erp/internal/application/catalog"
	crmapp "github.com/petshop/erp/internal/application/crm"
	deliveryapp "github.com/petshop/erp/internal/application/delivery"
	eventapp "github.com/petshop/erp/internal/application/event"
	financeapp "github.com/petshop/erp/internal/application/finance"
	identityapp "github.com/petshop/erp/internal/application/identity"
	inventoryapp "github.com/petshop/erp/internal/application/inventory"
	partnerapp "github.com/petshop/erp/internal/application/partner"
	projectionapp "github.com/petshop/erp/internal/application/projection"
	reportapp "github.com/petshop/erp/internal/application/report"
	salesapp "github.com/petshop/erp/internal/application/sales"
	"github.com/petshop/erp/internal/domain/delivery"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/auth"
	"github.com/petshop/erp/internal/infrastructure/cache"
	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/petshop/erp/internal/infrastructure/event"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"github.com/petshop/erp/internal/infrastructure/persistence"
	"github.com/petshop/erp/internal/infrastructure/readmodel"
	"github.com/petshop/erp/internal/infrastructure/scheduler"
	"github.com/petshop/erp/internal/infrastructure/storage"
	"github.com/petshop/erp/internal/infrastructure/telemetry"
	"github.com/petshop/erp/internal/infrastructure/whatsapp"
	"github.com/petshop/erp/internal/interfaces/http/handler"
	"github.com/petshop/erp/internal/interfaces/http/middleware"
	"github.com/petshop/erp/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	tenantStatusTTL = 30 * time.Second
	revokeTTL       = 7 * 24 * time.Hour
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		logger.Sync(log)
	}()

	log.Info("Starting pet shop ERP",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	var meter metric.Meter
	if meterProvider.IsEnabled() {
		meter = meterProvider.Meter(cfg.Telemetry.ServiceName)
	}

	// Database with tenant isolation
	db, err := persistence.NewDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log)
		if err := plugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access connection pool", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("guard_mode", cfg.Tenant.GuardMode))

	// Redis backs token revocation and rate limiting when configured
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = redisClient.Close()
		}()
	}

	// Event infrastructure
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	eventStore := event.NewGormEventStore(db.Tenant, serializer)
	outboxRepo := event.NewGormOutboxRepository(db.Tenant)
	recorder := event.NewRecorder(eventStore, outboxRepo, cfg.Event.OutboxMaxRetries)
	transactor := persistence.NewGormTransactor(db.Tenant)

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.Tenant, recorder)
	userRepo := persistence.NewGormUserRepository(db.Tenant, recorder)
	clientRepo := persistence.NewGormClientRepository(db.Tenant, recorder)
	productRepo := persistence.NewGormProductRepository(db.Tenant, recorder)
	movementRepo := persistence.NewGormStockMovementRepository(db.Tenant)
	saleRepo := persistence.NewGormSaleRepository(db.Tenant, recorder)
	receivableRepo := persistence.NewGormReceivableRepository(db.Tenant, recorder)
	payableRepo := persistence.NewGormPayableRepository(db.Tenant, recorder)
	commissionRepo := persistence.NewGormCommissionRepository(db.Tenant, recorder)
	routeRepo := persistence.NewGormRouteRepository(db.Tenant, recorder)
	conversationRepo := persistence.NewGormConversationRepository(db.Tenant, recorder)
	reportReader := persistence.NewSqlxReportReader(db.Raw)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	if redisClient != nil {
		revocations = auth.NewRedisRevocationStore(redisClient)
	}

	// Read model
	projections := readmodel.NewEngine(db.Tenant, eventStore, log, readmodel.DefaultProjections()...)
	replayer := readmodel.NewReplayer(db.Tenant, eventStore, projections, serializer, cfg.Event.ReplayBatchSize, log)

	// Event bus and subscribers
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()
	idempotencyConfig := shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}
	idempotent := func(h shared.EventHandler) shared.EventHandler {
		return event.NewIdempotentHandler(h, idempotencyStore, log, event.WithIdempotencyConfig(idempotencyConfig))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(idempotent(inventoryapp.NewSaleStockHandler(productRepo, movementRepo, transactor, log)))
	eventBus.Subscribe(idempotent(financeapp.NewSaleReceivableHandler(receivableRepo, cfg.Finance.AccountDueDays, log)))
	eventBus.Subscribe(idempotent(financeapp.NewSaleCommissionHandler(commissionRepo, userRepo, cfg.Finance.DefaultCommissionRate, log)))
	eventBus.Subscribe(projections)

	var businessMetrics *telemetry.BusinessMetrics
	if meter != nil {
		businessMetrics, err = telemetry.NewBusinessMetrics(meter, log)
		if err != nil {
			log.Warn("Business metrics disabled", zap.Error(err))
		} else {
			eventBus.Subscribe(businessMetrics)
		}
	}

	if cfg.Kafka.Enabled() {
		relay := event.NewKafkaRelay(event.NewKafkaWriter(cfg.Kafka), cfg.Kafka, log)
		eventBus.Subscribe(relay)
		defer func() {
			if err := relay.Close(); err != nil {
				log.Error("Error closing kafka relay", zap.Error(err))
			}
		}()
		log.Info("Kafka relay enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// The outbox processor publishes committed events to the bus
	if cfg.Event.OutboxEnabled {
		outboxConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.OutboxBatchSize,
			PollInterval:     cfg.Event.OutboxPollInterval,
			CleanupEnabled:   cfg.Event.OutboxRetention > 0,
			CleanupRetention: cfg.Event.OutboxRetention,
			CleanupInterval:  time.Hour,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, outboxConfig, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxConfig.BatchSize),
			zap.Duration("poll_interval", outboxConfig.PollInterval),
		)
	}

	// Background jobs
	overdueScanner := financeapp.NewOverdueScanner(tenantRepo, receivableRepo, payableRepo, log)
	jobs := scheduler.NewScheduler(log)
	mustAddJob(log, jobs, scheduler.Job{
		Name:       "projection_catch_up",
		Interval:   cfg.Event.CatchUpInterval,
		RunOnStart: true,
		Task: func(ctx context.Context) error {
			_, err := replayer.CatchUp(ctx)
			return err
		},
	})
	mustAddJob(log, jobs, scheduler.Job{
		Name:     "overdue_scan",
		Interval: cfg.Event.OverdueCheckInterval,
		Task: func(ctx context.Context) error {
			_, err := overdueScanner.Scan(ctx)
			return err
		},
	})
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer func() {
		if err := jobs.Stop(context.Background()); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}()

	// Media archive
	var media crmapp.MediaStore
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3MediaStore(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize media store", zap.Error(err))
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare media bucket", zap.Error(err), zap.String("bucket", s3Store.Bucket()))
		}
		media = s3Store
	} else {
		log.Warn("No media bucket configured, archiving WhatsApp media in memory")
		media = storage.NewMemoryMediaStore(cfg.Storage.Prefix)
	}

	// Application services
	tenantService := identityapp.NewTenantService(tenantRepo, userRepo, transactor, log)
	userService := identityapp.NewUserService(userRepo, revocations, revokeTTL, log)
	authService := identityapp.NewAuthService(tenantRepo, userRepo, jwtService, revocations, log)
	clientService := partnerapp.NewClientService(clientRepo, log)
	productService := catalogapp.NewProductService(productRepo, movementRepo, transactor, log)
	inventoryService := inventoryapp.NewInventoryService(productRepo, movementRepo, transactor, log)
	saleService := salesapp.NewSaleService(saleRepo, productRepo, clientRepo, log)
	receivableService := financeapp.NewReceivableService(receivableRepo, clientRepo, log)
	payableService := financeapp.NewPayableService(payableRepo, log)
	commissionService := financeapp.NewCommissionService(commissionRepo, transactor, log)
	reportService := reportapp.NewReportService(reportReader, readmodel.NewQueryService(db.Raw), cfg.Finance.SalesTaxRate, log)
	deliveryService := deliveryapp.NewDeliveryService(routeRepo, clientRepo, userRepo, tenantRepo, deliveryPricing(cfg.Delivery), log)
	crmService := crmapp.NewCRMService(conversationRepo, clientRepo, tenantRepo, clientService,
		whatsapp.NewClient(cfg.WhatsApp, log), media, log)
	projectionService := projectionapp.NewProjectionService(replayer, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)
	if businessMetrics != nil {
		projectionService.SetBusinessMetrics(businessMetrics)
	}

	// HTTP
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}
	tenantValidator := middleware.NewCachingTenantValidator(tenantRepo, tenantStatusTTL)

	var limiter middleware.Limiter
	if cfg.HTTP.RateLimit > 0 {
		if redisClient != nil {
			limiter = middleware.NewRedisLimiter(redisClient, "petshop:ratelimit:", cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		} else {
			limiter = middleware.NewMemoryLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		}
	}

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Revocations = revocations

	engine := router.NewEngine(router.EngineConfig{
		HTTP:            cfg.HTTP,
		ServiceName:     cfg.Telemetry.ServiceName,
		Tracing:         tracerProvider.IsEnabled(),
		PlatformKey:     cfg.Tenant.PlatformKey,
		JWT:             jwtConfig,
		TenantValidator: tenantValidator,
		Meter:           meter,
		Limiter:         limiter,
		Logger:          log,
	}, router.Handlers{
		Health:     handler.NewHealthHandler(sqlDB, version),
		Auth:       handler.NewAuthHandler(authService),
		Tenant:     handler.NewTenantHandler(tenantService, tenantValidator),
		User:       handler.NewUserHandler(userService),
		Client:     handler.NewClientHandler(clientService),
		Product:    handler.NewProductHandler(productService),
		Inventory:  handler.NewInventoryHandler(inventoryService),
		Sale:       handler.NewSaleHandler(saleService),
		Finance:    handler.NewFinanceHandler(receivableService, payableService, commissionService),
		Report:     handler.NewReportHandler(reportService),
		Delivery:   handler.NewDeliveryHandler(deliveryService),
		CRM:        handler.NewCRMHandler(crmService),
		Webhook:    handler.NewWhatsAppWebhookHandler(crmService, cfg.WhatsApp.AppSecret, cfg.WhatsApp.VerifyToken),
		Projection: handler.NewProjectionHandler(projectionService),
		Outbox:     handler.NewOutboxHandler(outboxService),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

func mustAddJob(log *zap.Logger, s *scheduler.Scheduler, job scheduler.Job) {
	if job.Interval <= 0 {
		log.Info("Job disabled", zap.String("job", job.Name))
		return
	}
	if err := s.Add(job); err != nil {
		log.Fatal("Failed to register job", zap.String("job", job.Name), zap.Error(err))
	}
}

func deliveryPricing(cfg config.DeliveryConfig) delivery.Pricing {
	return delivery.Pricing{
		BaseFee:       valueobject.NewMoney(cfg.BaseFee),
		PerKm:         valueobject.NewMoney(cfg.PerKm),
		PerExtraStop:  valueobject.NewMoney(cfg.PerStop),
		FreeAbove:     valueobject.NewMoney(cfg.FreeAbove),
		MaxDistanceKm: cfg.MaxDistanceKm,
	}
}
