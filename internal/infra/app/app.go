package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/infra/config"
	"github.com/mdurant/safelease-ai/internal/infra/database"
	kafkainfra "github.com/mdurant/safelease-ai/internal/infra/kafka"
	"github.com/mdurant/safelease-ai/internal/infra/logger"
	"github.com/mdurant/safelease-ai/internal/infra/mail"
	redisinfra "github.com/mdurant/safelease-ai/internal/infra/redis"
	"github.com/mdurant/safelease-ai/internal/infra/security"
	"github.com/mdurant/safelease-ai/internal/infra/telemetry"
	postgresrepo "github.com/mdurant/safelease-ai/internal/repository/postgres"
	redisrepo "github.com/mdurant/safelease-ai/internal/repository/redis"
	"github.com/mdurant/safelease-ai/internal/transport/http/middleware"
	"github.com/mdurant/safelease-ai/internal/transport/http/routes"
	"github.com/mdurant/safelease-ai/internal/usecase"
)

// Application wires configuration, storage, brokers and the HTTP surface into
// a single runnable unit.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	store  *postgresrepo.Store
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

// New assembles the identity service from configuration. Everything that can
// fail does so here, before any listener opens.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &Application{cfg: cfg, logger: log}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	app.tracer = tracer

	dsn := database.DSN(cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host,
		cfg.Postgres.Port, cfg.Postgres.Database, cfg.Postgres.SSLMode)
	if cfg.Postgres.MigrateOnStart {
		if err := database.RunMigrations(ctx, dsn); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("schema migrations applied")
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	store := postgresrepo.NewStore(pool)
	app.store = store

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	app.redis = redisClient

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		app.closeAll()
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	keyProvider, err := security.NewFileKeyProvider(cfg.JWT.KeyDirectory)
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	issuer := security.NewTokenIssuer(keyProvider, security.TokenIssuerConfig{
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTTL: cfg.JWT.RefreshTokenTTL,
	})

	publisher := newEventPublisher(cfg, log)

	users := postgresrepo.NewUserRepository(pool)
	profiles := postgresrepo.NewProfileRepository(pool)
	tokens := postgresrepo.NewTokenRepository(pool)
	sessions := postgresrepo.NewSessionRepository(pool)
	twoFactorCreds := postgresrepo.NewTwoFactorRepository(pool)
	roles := postgresrepo.NewRoleRepository(pool)

	mailer := mail.NewLogMailer(cfg.Mail.FromAddress, log)
	notifier := usecase.NewNotificationService(mailer, cfg.Mail.VerificationURL, cfg.Mail.ResetURL, log)
	validator := security.DefaultPasswordValidator()

	registration := usecase.NewRegistrationService(users, profiles, tokens, store, publisher, notifier, validator, log).
		WithTTLs(cfg.Artifacts.EmailVerificationTTL, cfg.Artifacts.OTPTTL)
	auth := usecase.NewAuthService(users, sessions, issuer, log)
	passwords := usecase.NewPasswordService(users, tokens, publisher, notifier, validator, log).
		WithResetTokenTTL(cfg.Artifacts.PasswordResetTTL)
	sessionSvc := usecase.NewSessionService(sessions, publisher, log)

	totpIssuer := cfg.TwoFactor.Issuer
	if totpIssuer == "" {
		totpIssuer = cfg.App.Name
	}
	twoFactor := usecase.NewTwoFactorService(twoFactorCreds, users, security.NewTOTPManager(totpIssuer), log)
	if cfg.TwoFactor.BackupCodeCount > 0 {
		twoFactor = twoFactor.WithBackupCodeCount(cfg.TwoFactor.BackupCodeCount)
	}
	profileSvc := usecase.NewProfileService(users, profiles, log)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})

	metrics := telemetry.NewMetrics()

	app.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Metrics:     metrics,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		Roles:       roles,
		KeySet:      keyProvider,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         auth,
			Registration: registration,
			Passwords:    passwords,
			Sessions:     sessionSvc,
			TwoFactor:    twoFactor,
			Profiles:     profileSvc,
		},
	})

	return app, nil
}

func newEventPublisher(cfg *config.AppConfig, log *zap.Logger) port.EventPublisher {
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka disabled, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}
	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}
	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App, log)
}

// Run serves HTTP until ctx is canceled, then drains in-flight requests.
func (a *Application) Run(ctx context.Context) error {
	defer a.closeAll()
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting identity API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func (a *Application) closeAll() {
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.tracer.Shutdown(ctx)
		cancel()
		a.tracer = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}
