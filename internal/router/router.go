package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/identity-admin/internal/handler/admin"
	"github.com/jwalitptl/identity-admin/internal/handler/health"
	"github.com/jwalitptl/identity-admin/internal/handler/me"
	"github.com/jwalitptl/identity-admin/internal/handler/prometheus"
	"github.com/jwalitptl/identity-admin/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Mode             string
	AdminRole        string
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	MaxBodyBytes     int64
	CORSConfig       middleware.CORSConfig
	SecurityConfig   middleware.SecurityConfig
	// MetricsPath is left unrouted when empty.
	MetricsPath string
}

type Router struct {
	engine  *gin.Engine
	config  RouterConfig
	auth    *middleware.AuthMiddleware
	adminH  Handler
	meH     Handler
	healthH *health.Handler
	metrics *prometheus.Handler
}

func NewRouter(
	config RouterConfig,
	auth *middleware.AuthMiddleware,
	adminH *admin.Handler,
	meH *me.Handler,
	healthH *health.Handler,
	metrics *prometheus.Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}

	engine := gin.New()

	r := &Router{
		engine:  engine,
		config:  config,
		auth:    auth,
		adminH:  adminH,
		meH:     meH,
		healthH: healthH,
		metrics: metrics,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.SecurityHeaders(config.SecurityConfig),
		middleware.CORS(config.CORSConfig),
	)

	r.setup()
	return r
}

func (r *Router) setup() {
	r.healthH.RegisterRoutes(r.engine)
	if r.metrics != nil && r.config.MetricsPath != "" {
		r.engine.GET(r.config.MetricsPath, r.metrics.Handler())
	}

	api := r.engine.Group("/api")
	api.Use(middleware.SizeLimit(r.config.MaxBodyBytes))
	if r.config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		})
		api.Use(limiter.RateLimit())
	}
	api.Use(r.auth.Authenticate())

	adminGroup := api.Group("/admin")
	adminGroup.Use(r.auth.RequireRole(r.config.AdminRole))
	r.adminH.RegisterRoutes(adminGroup)

	r.meH.RegisterRoutes(api.Group("/me"))
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
