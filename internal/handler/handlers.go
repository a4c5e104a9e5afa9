package handler

import (
	"support_chat/internal/config"
	"support_chat/internal/service"
	"support_chat/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	Admin     *AdminHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(services.Hub, cfg),
		Chat:      NewChatHandler(services.Chat, services.Relay, log),
		Admin:     NewAdminHandler(services.Stats, services.Chat, log),
		WebSocket: NewWebSocketHandler(services.Identity, services.Relay, cfg, log),
	}
}
