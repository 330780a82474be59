package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/jobsy/identity-service/internal/app"
	"github.com/jobsy/identity-service/internal/config"
	"github.com/jobsy/identity-service/internal/database"
	"github.com/jobsy/identity-service/internal/health"
	"github.com/jobsy/identity-service/internal/http/handler"
	"github.com/jobsy/identity-service/internal/http/middleware"
	"github.com/jobsy/identity-service/internal/http/router"
	"github.com/jobsy/identity-service/internal/observability"
	"github.com/jobsy/identity-service/internal/repository"
	"github.com/jobsy/identity-service/internal/security"
	"github.com/jobsy/identity-service/internal/service"
)

// Logging pairs the process logger with the OTLP log provider it may feed.
type Logging struct {
	Logger   *slog.Logger
	Provider *sdklog.LoggerProvider
}

var CoreSet = wire.NewSet(
	provideLogging,
	provideRuntime,
	provideDB,
	provideRedis,
	repository.NewIdentityRepository,
	provideAuthConfig,
	provideJWTManager,
	provideHasher,
	provideRevokedTokenCache,
	provideAbuseGuard,
	provideResetSender,
	provideTokenService,
	provideAuthService,
	provideSessionService,
	provideMaintenanceService,
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	handler.NewUserHandler,
	handler.NewAdminHandler,
	provideReadiness,
	provideRouter,
	provideServer,
	provideApp,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.SessionServiceInterface), new(*service.SessionService)),
)

func provideLogging(ctx context.Context, cfg *config.Config) (*Logging, error) {
	logger, lp, err := observability.NewLogger(ctx, cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return &Logging{Logger: logger, Provider: lp}, nil
}

func provideRuntime(ctx context.Context, cfg *config.Config, logging *Logging) (*observability.Runtime, error) {
	return observability.InitRuntime(ctx, cfg, logging.Logger, logging.Provider)
}

func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := database.Open(cfg.DatabaseURL, database.Options{LogQueries: cfg.LogLevel == "debug"})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// provideRedis returns a nil client when REDIS_ADDR is unset; callers fall
// back to in-process stores.
func provideRedis(ctx context.Context, cfg *config.Config, logging *Logging) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr == "" {
		logging.Logger.Info("redis disabled, using in-memory stores")
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

func provideAuthConfig(cfg *config.Config) service.AuthConfig {
	return service.AuthConfig{
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
		RefreshPepper: cfg.RefreshTokenPepper,
		ResetCodeTTL:  cfg.ResetCodeTTL(),
	}
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func provideHasher(cfg *config.Config) security.PasswordHasher {
	return security.NewArgon2Hasher(security.Argon2Params{
		Time:    cfg.Argon2Time,
		Memory:  cfg.Argon2MemoryKiB,
		Threads: cfg.Argon2Threads,
	})
}

func provideRevokedTokenCache(cfg *config.Config, client redis.UniversalClient) service.RevokedTokenCache {
	if client == nil {
		return service.NewInMemoryRevokedTokenCache()
	}
	return service.NewRedisRevokedTokenCache(client, cfg.RedisPrefix)
}

func provideAbuseGuard(cfg *config.Config, client redis.UniversalClient) service.AuthAbuseGuard {
	policy := service.AuthAbusePolicy{
		FreeAttempts: cfg.LoginAbuseFreeAttempts,
		BaseDelay:    cfg.LoginAbuseBaseDelay,
		MaxDelay:     cfg.LoginAbuseMaxDelay,
		ResetWindow:  cfg.LoginAbuseResetWindow,
	}
	if client == nil {
		return service.NewInMemoryAuthAbuseGuard(policy)
	}
	return service.NewRedisAuthAbuseGuard(client, cfg.RedisPrefix, policy)
}

func provideResetSender(logging *Logging) service.ResetCodeSender {
	return service.NewLogResetCodeSender(logging.Logger)
}

func provideTokenService(jwtMgr *security.JWTManager, repos *repository.Identity, cache service.RevokedTokenCache, cfg service.AuthConfig) *service.TokenService {
	return service.NewTokenService(jwtMgr, repos.Sessions, repos.RevokedTokens, cache, cfg)
}

func provideAuthService(
	repos *repository.Identity,
	tokens *service.TokenService,
	hasher security.PasswordHasher,
	abuse service.AuthAbuseGuard,
	sender service.ResetCodeSender,
	cfg service.AuthConfig,
) *service.AuthService {
	return service.NewAuthService(repos.Users, repos.Companies, tokens, hasher, abuse, sender, cfg)
}

func provideSessionService(repos *repository.Identity, tokens *service.TokenService) *service.SessionService {
	return service.NewSessionService(repos.Sessions, tokens)
}

func provideMaintenanceService(repos *repository.Identity) *service.MaintenanceService {
	return service.NewMaintenanceService(repos.Sessions, repos.RevokedTokens)
}

func provideAuthHandler(cfg *config.Config, auth service.AuthServiceInterface) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, security.CookieOptions{
		Secure:     cfg.CookieSecure(),
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	})
}

func provideReadiness(cfg *config.Config, db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.NewRedisChecker(client))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ReadinessProbeCacheTTL, checkers...)
}

func provideRouter(
	cfg *config.Config,
	client redis.UniversalClient,
	tokens *service.TokenService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	adminHandler *handler.AdminHandler,
	readiness *health.ProbeRunner,
) http.Handler {
	dep := router.Dependencies{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		AdminHandler:     adminHandler,
		Authenticator:    tokens,
		CORSOrigins:      cfg.CORSOrigins(),
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.OTELTracingEnabled,
	}
	if client != nil {
		limiter := middleware.NewRedisLimiter(client, cfg.RedisPrefix)
		dep.GlobalRateLimiter = middleware.NewDistributedRateLimiter(limiter, cfg.APIRateLimitRPM, time.Minute, middleware.FailOpen, "api").Middleware()
		dep.AuthRateLimiter = middleware.NewDistributedRateLimiter(limiter, cfg.AuthRateLimitRPM, time.Minute, middleware.FailClosed, "auth").Middleware()
	}
	return router.NewRouter(dep)
}

func provideServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func provideApp(
	cfg *config.Config,
	logging *Logging,
	server *http.Server,
	runtime *observability.Runtime,
	maintenance *service.MaintenanceService,
) *app.App {
	cleanup := app.Periodic("cleanup", cfg.CleanupInterval, logging.Logger, func(ctx context.Context) error {
		report, err := maintenance.Cleanup(ctx)
		if err != nil {
			return err
		}
		logging.Logger.Info("cleanup completed", "expired_sessions", report.ExpiredSessions, "revoked_tokens", report.RevokedTokens)
		return nil
	})
	return app.New(cfg, logging.Logger, server, runtime, cleanup)
}
