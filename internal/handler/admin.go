package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"support_chat/internal/middleware"
	"support_chat/internal/service"
	"support_chat/pkg/logger"
)

// AdminHandler - панель поддержки: сводка и журнал действий по переписке
type AdminHandler struct {
	statsService service.StatsService
	chatService  service.ChatService
	log          logger.Logger
}

func NewAdminHandler(statsService service.StatsService, chatService service.ChatService, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		statsService: statsService,
		chatService:  chatService,
		log:          log,
	}
}

// Stats - GET /api/chats/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.statsService.Dashboard(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AuditTrail - GET /api/chats/admin/audit/:chatId?limit=
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	_, limit := pageParams(c)
	logs, err := h.chatService.AuditTrail(c.Request.Context(), middleware.GetIdentity(c), c.Param("chatId"), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
