package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/port"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/config"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/database"
	kafkainfra "github.com/Erick-MC-Cedeno/chatty/internal/infra/kafka"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/logger"
	redisinfra "github.com/Erick-MC-Cedeno/chatty/internal/infra/redis"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/security"
	postgresrepo "github.com/Erick-MC-Cedeno/chatty/internal/repository/postgres"
	redisrepo "github.com/Erick-MC-Cedeno/chatty/internal/repository/redis"
	"github.com/Erick-MC-Cedeno/chatty/internal/transport/http/middleware"
	"github.com/Erick-MC-Cedeno/chatty/internal/transport/http/routes"
	"github.com/Erick-MC-Cedeno/chatty/internal/usecase"
)

// janitorInterval is how often expired verification tokens are purged.
const janitorInterval = time.Minute

// Application owns the wired service graph and its lifecycle.
type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	mailer  interface{ Close() error }
	janitor *usecase.Janitor
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := security.ConfigureBcrypt(cfg.Bcrypt.Cost); err != nil {
		return nil, fmt.Errorf("configure bcrypt: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	userRepo := postgresrepo.NewUserRepository(pool)
	tokenRepo := postgresrepo.NewTokenRepository(pool)

	sessionStore := redisrepo.NewSessionStore(redisClient.Client(), cfg.Session.KeyPrefix, cfg.Session.TTL)
	emailLocker := redisrepo.NewEmailLocker(redisClient.Client(), cfg.Redis.LockPrefix, log)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "auth:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var eventPublisher port.EventPublisher
	var mailer port.Mailer
	var mailerCloser interface{ Close() error }
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}

		kafkaMailer, err := kafkainfra.NewMailer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka mailer, using stub mailer", zap.Error(err))
			mailer = kafkainfra.NewStubMailer(log)
		} else {
			mailer = kafkaMailer
			mailerCloser = kafkaMailer
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher and mailer")
		eventPublisher = kafkainfra.NewStubPublisher(log)
		mailer = kafkainfra.NewStubMailer(log)
	}

	credentialValidator := usecase.NewCredentialValidator(userRepo)
	twoFactorService := usecase.NewTwoFactorService(cfg.TwoFactor, tokenRepo, mailer, emailLocker, eventPublisher, log)
	passwordResetService := usecase.NewPasswordResetService(cfg.PasswordReset, userRepo, mailer, emailLocker, eventPublisher, log)
	authService := usecase.NewAuthService(credentialValidator, userRepo, twoFactorService, sessionStore, mailer, eventPublisher, log)
	janitor := usecase.NewJanitor(tokenRepo, cfg.TwoFactor.TTL, janitorInterval, log)

	var metrics *middleware.HTTPMetrics
	if cfg.Telemetry.MetricsEnabled {
		metrics, err = middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init http metrics: %w", err)
		}
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			TwoFactor:     twoFactorService,
			PasswordReset: passwordResetService,
		},
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		mailer:  mailerCloser,
		janitor: janitor,
	}, nil
}

// Run serves HTTP until the context ends, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.mailer != nil {
			_ = a.mailer.Close()
		}
	}()

	go a.janitor.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
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
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
