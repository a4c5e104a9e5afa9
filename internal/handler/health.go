package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"support_chat/internal/config"
	"support_chat/internal/service"
)

type HealthHandler struct {
	hub       *service.Hub
	backplane string
	store     string
}

func NewHealthHandler(hub *service.Hub, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		hub:       hub,
		backplane: cfg.Chat.Backplane,
		store:     cfg.Chat.Store,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"service":     "support-chat",
		"store":       h.store,
		"backplane":   h.backplane,
		"connections": h.hub.ConnectionCount(),
	})
}
