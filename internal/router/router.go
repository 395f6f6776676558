package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/uhcare-api/internal/middleware"
	"github.com/jwalitptl/uhcare-api/internal/model"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// OrderHandler serves one order-like entity kind to parties and administrators.
type OrderHandler interface {
	Handler
	RegisterAdminRoutes(*gin.RouterGroup)
}

// MetricsHandler records HTTP metrics and serves the scrape endpoint.
type MetricsHandler interface {
	Middleware() gin.HandlerFunc
	Handler() gin.HandlerFunc
}

type RouterConfig struct {
	CORSConfig  middleware.CORSConfig
	RateLimiter *middleware.RateLimiter
	MetricsPath string
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	healthH Handler
	metrics MetricsHandler
	orders  []OrderHandler
	inboxH  Handler
	config  RouterConfig
}

// NewRouter builds the engine and its global middleware. metrics and the
// rate limiter in config are optional.
func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	metrics MetricsHandler,
	inboxH Handler,
	orders []OrderHandler,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		healthH: healthH,
		metrics: metrics,
		orders:  orders,
		inboxH:  inboxH,
		config:  config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(config.CORSConfig),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	if config.RateLimiter != nil {
		engine.Use(config.RateLimiter.RateLimit())
	}
	engine.Use(middleware.ErrorHandler())

	return r
}

func (r *Router) Setup() {
	r.healthH.RegisterRoutes(r.engine.Group(""))
	if r.metrics != nil && r.config.MetricsPath != "" {
		r.engine.GET(r.config.MetricsPath, r.metrics.Handler())
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)

	admin := protected.Group("/admin")
	admin.Use(r.auth.RequireRole(model.RoleAdmin))
	r.setupAdminRoutes(admin)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	for _, h := range r.orders {
		h.RegisterRoutes(rg)
	}
	r.inboxH.RegisterRoutes(rg)
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	for _, h := range r.orders {
		h.RegisterAdminRoutes(rg)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
