package main

import (
	"context"
	"fmt"
	"log"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/api"
	"github.com/artify/artify_go_server/internal/api/handler"
	"github.com/artify/artify_go_server/internal/database"
	"github.com/artify/artify_go_server/internal/pkg/email"
	"github.com/artify/artify_go_server/internal/pkg/oss"
	"github.com/artify/artify_go_server/internal/pkg/payment"
	"github.com/artify/artify_go_server/internal/pkg/pubsub"
	"github.com/artify/artify_go_server/internal/pkg/queue"
	"github.com/artify/artify_go_server/internal/pkg/ws"
	"github.com/artify/artify_go_server/internal/repository"
	"github.com/artify/artify_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS（可选，未配置时图片落本地临时目录）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化 Queue
	jobQueue := queue.NewQueue(rdb, cfg.Queue.GenerateQueue)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// 订阅生成事件并转发到 WebSocket
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(event *pubsub.ImageEvent) {
			if err := wsHub.SendToUser(event.UserID, &ws.Message{
				Type: event.Type,
				Data: event,
			}); err != nil {
				log.Printf("Failed to push event to user %d: %v", event.UserID, err)
			}
		})
		if err != nil {
			log.Printf("Event subscription stopped: %v", err)
		}
	}()

	// 初始化邮件和支付网关
	mailer := email.NewService(&cfg.Email)
	gateway := payment.NewClient(&cfg.Razorpay)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	imageRepo := repository.NewImageRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	// 初始化 Service
	subService := service.NewSubscriptionService(subRepo, cfg)
	authService := service.NewAuthService(userRepo, subRepo, mailer, cfg)
	imageService := service.NewImageService(imageRepo, userRepo, subService, ossClient, jobQueue, cfg)
	paymentService := service.NewPaymentService(paymentRepo, userRepo, subService, gateway, mailer, cfg)
	supportService := service.NewSupportService(ticketRepo, userRepo, mailer, cfg)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	imageHandler := handler.NewImageHandler(imageService, cfg)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	supportHandler := handler.NewSupportHandler(supportService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		imageHandler,
		paymentHandler,
		supportHandler,
		websocketHandler,
		rdb,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
