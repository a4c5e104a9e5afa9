package handler

import (
	"github.com/gin-gonic/gin"
	"support_chat/internal/config"
	"support_chat/internal/middleware"
	"support_chat/pkg/logger"
)

func SetupRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewCORS(cfg.Server.AllowOrigins).Handler())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	// Health check
	router.GET("/health", handlers.Health.Check)

	// Сокет: токен проверяется внутри, анонимные соединения допускаются политикой
	router.GET("/ws/chat", handlers.WebSocket.HandleChat)

	chats := router.Group("/api/chats")
	chats.Use(rateLimitMiddleware.Limit(), authMiddleware.RequireAuth())
	{
		chats.GET("", handlers.Chat.List)
		chats.GET("/messages/:chatId", handlers.Chat.GetMessages)
		chats.POST("/messages", handlers.Chat.SendMessage)
		chats.PUT("/messages/:chatId/read", handlers.Chat.MarkRead)
		admin := chats.Group("/admin", authMiddleware.RequireAdmin())
		{
			admin.GET("/all", handlers.Chat.ListAll)
			admin.GET("/stats", handlers.Admin.Stats)
			admin.GET("/audit/:chatId", handlers.Admin.AuditTrail)
		}
		chats.GET("/presence/:userId", handlers.Chat.Presence)
		chats.GET("/:userId", handlers.Chat.GetOrCreate)
	}

	return router
}
