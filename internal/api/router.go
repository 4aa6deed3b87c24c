package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/api/handler"
	"github.com/qs3c/metrics_go_server/internal/api/middleware"
)

type Router struct {
	userHandler      *handler.UserHandler
	companyHandler   *handler.CompanyHandler
	revenueHandler   *handler.RevenueHandler
	websocketHandler *handler.WebSocketHandler
	limiter          middleware.Limiter
	cfg              *config.Config
	logger           *zap.Logger
}

func NewRouter(
	userHandler *handler.UserHandler,
	companyHandler *handler.CompanyHandler,
	revenueHandler *handler.RevenueHandler,
	websocketHandler *handler.WebSocketHandler,
	limiter middleware.Limiter,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		userHandler:      userHandler,
		companyHandler:   companyHandler,
		revenueHandler:   revenueHandler,
		websocketHandler: websocketHandler,
		limiter:          limiter,
		cfg:              cfg,
		logger:           logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.logger.Named("http")))
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")
	{
		// WebSocket，token 通过查询参数传递
		api.GET("/ws", r.websocketHandler.Handle)

		// Stripe Connect 回调，不带 Bearer
		api.GET("/stripe/connect/callback", r.companyHandler.StripeConnectCallback)

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.GET("/user/profile", r.userHandler.GetProfile)

			authenticated.PUT("/companies/:id/stripe-key", r.companyHandler.ConnectStripe)
			authenticated.GET("/companies/:id/stripe-connect", r.companyHandler.StripeConnect)

			rev := authenticated.Group("/revenue")
			{
				// 限流在调用 Stripe 之前
				rev.POST("/sync",
					middleware.RateLimit(r.limiter, middleware.Rules(r.cfg.RateLimit), r.logger.Named("ratelimit")),
					r.revenueHandler.Sync,
				)
				rev.GET("/snapshots", r.revenueHandler.Snapshots)
				rev.GET("/sync/status", r.revenueHandler.SyncStatus)
				rev.GET("/sync/runs", r.revenueHandler.SyncRuns)
			}
		}
	}

	return engine
}
