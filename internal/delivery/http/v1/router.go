package v1

import (
	"go-contact-backend/config"
	"go-contact-backend/internal/delivery/http/middleware"
	"go-contact-backend/internal/delivery/http/response"
	"go-contact-backend/internal/domain"
	"go-contact-backend/pkg/metrics"
	"go-contact-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	ContactUC      domain.ContactUsecase
	Config         *config.Config
	Redis          *goredis.Client          // optional, shares the rate limit between instances
	Registry       *prometheus.Registry     // optional, enables /metrics
	Metrics        *metrics.Recorder        // optional
	SecurityLogger *security.SecurityLogger // optional
}

func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
		return nil, err
	}

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.FrontendOrigin, deps.SecurityLogger)) // CORS must be first!
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.BodyLimit(deps.Config.BodyLimitBytes))
	r.Use(middleware.ErrorHandler())

	// Health Check
	r.GET("/health", Health)

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(deps.Registry)))
	}

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	rateLimit := middleware.ContactRateLimitConfig(deps.Config.RateLimitMax, deps.Config.RateLimitWindow)
	rateLimit.Redis = deps.Redis
	rateLimit.SecurityLogger = deps.SecurityLogger
	rateLimit.Metrics = deps.Metrics

	api := r.Group("/api")
	NewContactHandler(api, deps.ContactUC, deps.Metrics, deps.SecurityLogger, middleware.RateLimitMiddleware(rateLimit))

	return r, nil
}

// Health godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.OKResponse
// @Router       /health [get]
func Health(c *gin.Context) {
	response.OK(c)
}
