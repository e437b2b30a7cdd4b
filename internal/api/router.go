package api

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/api/handler"
	"github.com/artify/artify_go_server/internal/api/middleware"
	"github.com/artify/artify_go_server/internal/model"
)

type Router struct {
	authHandler      *handler.AuthHandler
	imageHandler     *handler.ImageHandler
	paymentHandler   *handler.PaymentHandler
	supportHandler   *handler.SupportHandler
	websocketHandler *handler.WebSocketHandler
	rdb              *redis.Client
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	imageHandler *handler.ImageHandler,
	paymentHandler *handler.PaymentHandler,
	supportHandler *handler.SupportHandler,
	websocketHandler *handler.WebSocketHandler,
	rdb *redis.Client,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		imageHandler:     imageHandler,
		paymentHandler:   paymentHandler,
		supportHandler:   supportHandler,
		websocketHandler: websocketHandler,
		rdb:              rdb,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(r.rdb, r.cfg.RateLimit, "auth"))
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/forgot-password", r.authHandler.ForgotPassword)
			auth.PUT("/reset-password/:token", r.authHandler.ResetPassword)
		}

		// 公开接口 - 套餐列表
		api.GET("/payments/plans", r.paymentHandler.ListPlans)

		// 公开接口 - 支付回调（签名校验在 handler 内完成）
		webhook := api.Group("/payments")
		webhook.Use(middleware.RateLimit(r.rdb, r.cfg.RateLimit, "webhook"))
		{
			webhook.POST("/webhook", r.paymentHandler.Webhook)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.GET("/auth/me", r.authHandler.Me)

			// 图片生成
			images := authenticated.Group("/images")
			{
				images.POST("/generate",
					middleware.RateLimit(r.rdb, r.cfg.RateLimit, "generate"),
					r.imageHandler.Generate)
				images.GET("", r.imageHandler.List)
				images.GET("/:id", r.imageHandler.Get)
				images.DELETE("/:id", r.imageHandler.Delete)
			}

			// 支付 / 订阅
			payments := authenticated.Group("/payments")
			{
				payments.POST("/create-session", r.paymentHandler.CreateSession)
				payments.GET("/subscription", r.paymentHandler.GetSubscription)
			}

			// 客服工单
			support := authenticated.Group("/support")
			support.Use(middleware.RateLimit(r.rdb, r.cfg.RateLimit, "support"))
			{
				support.POST("/tickets", r.supportHandler.Create)
				support.GET("/tickets", r.supportHandler.List)
				support.GET("/tickets/:id", r.supportHandler.Get)
				support.POST("/tickets/:id/messages", r.supportHandler.AddMessage)
				support.POST("/tickets/:id/close", r.supportHandler.Close)
			}

			// 管理员接口
			admin := authenticated.Group("/support/admin")
			admin.Use(middleware.RequireRole(model.RoleAdmin))
			{
				admin.GET("/tickets", r.supportHandler.ListAll)
			}
		}
	}

	return engine
}
