package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/infra/config"
	"github.com/mdurant/safelease-ai/internal/infra/telemetry"
	"github.com/mdurant/safelease-ai/internal/transport/http/handlers"
	"github.com/mdurant/safelease-ai/internal/transport/http/middleware"
	"github.com/mdurant/safelease-ai/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Passwords    *usecase.PasswordService
	Sessions     *usecase.SessionService
	TwoFactor    *usecase.TwoFactorService
	Profiles     *usecase.ProfileService
}

// DatabaseChecker exposes readiness behavior for the database pool.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behavior for the cache backend.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates everything required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Metrics     *telemetry.Metrics
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Roles       port.RoleRepository
	KeySet      handlers.KeySetProvider
	Database    DatabaseChecker
	Cache       CacheChecker
}

// Register configures the gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	if deps.Config != nil && len(deps.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

	checks := make([]handlers.ReadinessCheck, 0, 2)
	if deps.Database != nil {
		checks = append(checks, handlers.ReadinessCheck{Name: "postgres", Probe: deps.Database.Ping})
	}
	if deps.Cache != nil {
		checks = append(checks, handlers.ReadinessCheck{Name: "redis", Probe: deps.Cache.HealthCheck})
	}
	healthHandler := handlers.NewHealthHandler(checks...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.KeySet != nil {
		jwksHandler := handlers.NewJWKSHandler(deps.KeySet)
		r.GET("/.well-known/jwks.json", jwksHandler.Keys)
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Metrics)

		loginHandlers := appendRateLimit(deps, "auth_login_ip", rateLimitOf(deps).LoginMaxAttempts, authHandler.Login)
		authGroup.POST("/login", loginHandlers...)
		refreshHandlers := appendRateLimit(deps, "auth_refresh_ip", rateLimitOf(deps).RefreshMaxAttempts, authHandler.Refresh)
		authGroup.POST("/refresh", refreshHandlers...)
		authGroup.GET("/me", authMiddleware, authHandler.Me)

		userGroup := api.Group("/user")
		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration, deps.Services.Auth)
		registerHandlers := appendRateLimit(deps, "register_ip", rateLimitOf(deps).RegisterMaxAttempts, registrationHandler.Register)
		userGroup.POST("/register", registerHandlers...)
		userGroup.POST("/verify-email", registrationHandler.VerifyEmail)
		otpHandlers := appendRateLimit(deps, "verify_otp_ip", rateLimitOf(deps).OTPMaxAttempts, registrationHandler.VerifyOTP)
		userGroup.POST("/verify-otp", otpHandlers...)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords)
		passwordGroup := api.Group("/password")
		passwordGroup.POST("/change", authMiddleware, passwordHandler.ChangePassword)

		resetGroup := passwordGroup.Group("/reset")
		resetHandlers := appendRateLimit(deps, "password_reset_ip", rateLimitOf(deps).PasswordResetMaxAttempts, passwordHandler.RequestReset)
		resetGroup.POST("/request", resetHandlers...)
		resetGroup.POST("/confirm", passwordHandler.ConfirmReset)

		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions, deps.Metrics)
		sessionGroup := api.Group("/sessions")
		sessionGroup.Use(authMiddleware)
		sessionHandler.RegisterRoutes(sessionGroup)

		twoFactorHandler := handlers.NewTwoFactorHandler(deps.Services.TwoFactor)
		twoFactorGroup := api.Group("/2fa")
		twoFactorGroup.Use(authMiddleware)
		twoFactorHandler.RegisterRoutes(twoFactorGroup)

		profileHandler := handlers.NewProfileHandler(deps.Services.Profiles)
		profileGroup := api.Group("/profile")
		profileGroup.Use(authMiddleware)
		profileHandler.RegisterRoutes(profileGroup)

		if deps.Roles != nil {
			rolesHandler := handlers.NewRolesHandler(deps.Roles)
			api.GET("/roles", authMiddleware, middleware.RequireRole(domain.RoleAdmin, domain.RoleOwner), rolesHandler.List)
		}
	}

	return r
}

func rateLimitOf(deps Dependencies) config.RateLimitSettings {
	if deps.Config == nil {
		return config.RateLimitSettings{}
	}
	return deps.Config.RateLimit
}

func appendRateLimit(deps Dependencies, name string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	window := rateLimitOf(deps).WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule), handler}
}
