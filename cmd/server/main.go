package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	objectionapp "github.com/objections/backend/internal/application/objection"
	"github.com/objections/backend/internal/application/submission"
	"github.com/objections/backend/internal/domain/shared"
	"github.com/objections/backend/internal/infrastructure/cache"
	"github.com/objections/backend/internal/infrastructure/company"
	"github.com/objections/backend/internal/infrastructure/config"
	"github.com/objections/backend/internal/infrastructure/eligibility"
	"github.com/objections/backend/internal/infrastructure/event"
	"github.com/objections/backend/internal/infrastructure/logger"
	"github.com/objections/backend/internal/infrastructure/messaging"
	"github.com/objections/backend/internal/infrastructure/persistence"
	"github.com/objections/backend/internal/infrastructure/storage"
	"github.com/objections/backend/internal/infrastructure/telemetry"
	"github.com/objections/backend/internal/interfaces/http/handler"
	"github.com/objections/backend/internal/interfaces/http/middleware"
	"github.com/objections/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Strike-off Objections API
//	@version		1.0
//	@description	Objections against company strike-off, with supporting attachments
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting strike-off objections service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database, log,
		persistence.WithLogLevel(logger.MapGormLogLevel(cfg.Log.Level)),
		persistence.WithTracing(cfg.Telemetry.Enabled),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	store, err := newBlobStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize blob store", zap.Error(err))
	}

	idempotency, err := newIdempotencyStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer closeQuietly(log, "idempotency store", idempotency)

	sender, err := newEmailSender(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize email sender", zap.Error(err))
	}
	defer closeQuietly(log, "email sender", sender)

	clock := shared.SystemClock{}
	repo := persistence.NewGormObjectionRepository(db.DB)

	// Submission fan-out: each subscriber runs at most once per submitted objection
	bus := event.NewInMemoryEventBus(log)
	idempotencyCfg := shared.IdempotencyConfig{Enabled: cfg.Idempotency.Enabled, TTL: cfg.Idempotency.TTL}
	emailNotifier := submission.NewEmailNotifier(newCompanyProfiles(cfg, log), sender, submission.EmailConfig{
		OriginatingAppID:                  cfg.Email.OriginatingAppID,
		SubmittedCustomerEmailType:        cfg.Email.SubmittedCustomerEmailType,
		SubmittedDissolutionTeamEmailType: cfg.Email.SubmittedDissolutionTeamEmailType,
		Subject:                           cfg.Email.Subject,
		AttachmentDownloadURLPrefix:       cfg.Email.AttachmentDownloadURLPrefix,
		RecipientsCardiff:                 cfg.Email.RecipientsCardiff,
		RecipientsEdinburgh:               cfg.Email.RecipientsEdinburgh,
		RecipientsBelfast:                 cfg.Email.RecipientsBelfast,
	}, clock, log)
	bus.Subscribe(event.NewIdempotentHandler("email", emailNotifier, idempotency, log,
		event.WithIdempotencyConfig(idempotencyCfg), event.WithKeyFunc(event.AggregateKey)))
	bus.Subscribe(event.NewIdempotentHandler("chips", submission.NewChipsNotifier(log), idempotency, log,
		event.WithIdempotencyConfig(idempotencyCfg), event.WithKeyFunc(event.AggregateKey)))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	coordinatorOpts := []objectionapp.CoordinatorOption{}
	if cfg.Idempotency.Enabled {
		coordinatorOpts = append(coordinatorOpts, objectionapp.WithDeleteIdempotency(idempotency, cfg.Idempotency.TTL))
	}
	coordinator := objectionapp.NewAttachmentCoordinator(repo, store, clock, log, coordinatorOpts...)
	service := objectionapp.NewObjectionService(
		repo,
		coordinator,
		store,
		newEligibilityLookup(cfg, log),
		submission.NewProcessor(bus, clock, log),
		clock,
		log,
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	})...)
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsCfg))

	objectionHandler := handler.NewObjectionHandler(service, cfg.App.APIURL, cfg.Storage.MaxFileSize, log)
	healthHandler := handler.NewHealthHandler(dbPinger{db}, log)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.NewObjectionRoutes(objectionHandler, router.ObjectionRoutesConfig{
			DownloadRole: cfg.App.DownloadRole,
			MaxFileSize:  cfg.Storage.MaxFileSize,
		})).
		RegisterRoot(router.NewHealthRoutes(healthHandler)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func newBlobStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (objectionapp.BlobStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		return storage.NewS3BlobStore(ctx, &cfg.Storage, storage.WithLogger(log))
	case config.StorageDriverFileTransfer:
		return storage.NewFileTransferClient(cfg.Storage.FileTransferURL, cfg.Storage.FileTransferKey, cfg.Company.Timeout, log), nil
	case config.StorageDriverMemory:
		log.Warn("Using in-memory blob store; attachments are lost on restart")
		return storage.NewMemoryBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newIdempotencyStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (shared.IdempotencyStore, error) {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, using in-memory idempotency store")
		return cache.NewInMemoryIdempotencyStore(), nil
	}
	return cache.NewRedisIdempotencyStore(ctx, cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

type emailSender interface {
	submission.EmailSender
	io.Closer
}

type nopCloser struct {
	submission.EmailSender
}

func (nopCloser) Close() error { return nil }

func newEmailSender(cfg *config.Config, log *zap.Logger) (emailSender, error) {
	if !cfg.Kafka.Enabled {
		log.Warn("Kafka disabled, submission emails are logged instead of sent")
		return nopCloser{messaging.NewLogEmailSender(log)}, nil
	}
	return messaging.NewKafkaEmailSender(cfg.Kafka.Brokers,
		messaging.WithTopic(cfg.Kafka.EmailTopic),
		messaging.WithLogger(log),
	)
}

func newCompanyProfiles(cfg *config.Config, log *zap.Logger) submission.CompanyProfileLookup {
	if cfg.Company.ProfileAPIURL == "" {
		log.Warn("Company profile API not configured, using static profiles")
		return company.StaticProfiles{}
	}
	return company.NewProfileClient(cfg.Company.ProfileAPIURL, cfg.Company.Timeout, log,
		company.WithAPIKey(cfg.Company.APIKey))
}

func newEligibilityLookup(cfg *config.Config, log *zap.Logger) objectionapp.EligibilityLookup {
	if cfg.Company.OracleQueryAPIURL == "" {
		log.Warn("Oracle query API not configured, every company is eligible")
		return eligibility.StaticLookup{}
	}
	return eligibility.NewOracleQueryClient(cfg.Company.OracleQueryAPIURL, cfg.Company.Timeout, log)
}

func closeQuietly(log *zap.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Error("Error closing "+name, zap.Error(err))
	}
}

// dbPinger adapts Database to the health handler
type dbPinger struct {
	db *persistence.Database
}

func (p dbPinger) PingContext(ctx context.Context) error {
	return p.db.Ping(ctx)
}
