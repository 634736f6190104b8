package handlers

import (
	"fmt"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/cmd/docs"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/config"
	"github.com/SscSPs/fulfillment_coordinator/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	posthogClient *utils.PosthogClientWrapper,
) error {
	if err := RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}
	if err := setupGlobalMiddleware(r, cfg, posthogClient); err != nil {
		return err
	}

	r.GET("/health", getHealth)
	r.GET("/", homeHandler(cfg))

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	if err := setupAPIV1Routes(r, cfg, services); err != nil {
		return err
	}

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
	return nil
}

// setupGlobalMiddleware installs CORS, the per-IP rate limiter and analytics.
func setupGlobalMiddleware(r *gin.Engine, cfg *config.Config, posthogClient *utils.PosthogClientWrapper) error {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	ipLimit, err := newLimiter("RATE_LIMIT", cfg.RateLimit)
	if err != nil {
		return err
	}
	if ipLimit != nil {
		r.Use(middleware.RateLimit(ipLimit, middleware.ByClientIP))
	}

	r.Use(middleware.PosthogMiddleware(posthogClient))
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) error {
	// Apply AuthMiddleware to the entire v1 group
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))

	// Per-user quota, counted once the caller is known.
	actorLimit, err := newLimiter("ACTOR_RATE_LIMIT", cfg.ActorRateLimit)
	if err != nil {
		return err
	}
	if actorLimit != nil {
		v1.Use(middleware.RateLimit(actorLimit, middleware.ByActor))
	}

	registerOrderRoutes(v1, services.Coordinator)
	registerWorkflowRoutes(v1, services.Coordinator)
	registerDispatchRoutes(v1, services.Coordinator)
	registerDisputeRoutes(v1, services.Coordinator)
	registerAccountRoutes(v1, services.Coordinator)
	return nil
}

// newLimiter builds an in-process limiter from a "<limit>-<period>" setting.
// An empty setting disables the limiter.
func newLimiter(name, formatted string) (*limiter.Limiter, error) {
	if formatted == "" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, formatted, err)
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	// Swagger setup
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
