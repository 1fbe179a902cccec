package router

import (
	"html/template"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/client-dashboard/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// MetricsHandler records request metrics and serves the scrape endpoint.
type MetricsHandler interface {
	Middleware() gin.HandlerFunc
	Handler() gin.HandlerFunc
}

type Router struct {
	engine     *gin.Engine
	dashboardH Handler
	healthH    Handler
	metricsH   MetricsHandler
	config     RouterConfig
}

type RouterConfig struct {
	RateLimit rate.Limit
	RateBurst int
	Templates *template.Template
}

func NewRouter(
	dashboardH Handler,
	healthH Handler,
	metricsH MetricsHandler,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:     engine,
		dashboardH: dashboardH,
		healthH:    healthH,
		metricsH:   metricsH,
		config:     config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		metricsH.Middleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.ErrorHandler(),
	)

	if config.Templates != nil {
		engine.SetHTMLTemplate(config.Templates)
	}

	return r
}

func (r *Router) Setup() {
	root := r.engine.Group("")

	// Probes and scrapes bypass sessions and the rate limit.
	r.healthH.RegisterRoutes(root)
	root.GET("/metrics", r.metricsH.Handler())

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.RateLimit,
		Burst: r.config.RateBurst,
	})
	app := r.engine.Group("",
		rateLimiter.RateLimit(),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig()),
		middleware.Cache(middleware.NoStoreCacheConfig()),
		middleware.Validation(middleware.DefaultValidationConfig()),
	)
	r.dashboardH.RegisterRoutes(app)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
