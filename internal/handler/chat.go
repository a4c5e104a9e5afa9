package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"support_chat/internal/domain"
	"support_chat/internal/middleware"
	"support_chat/internal/service"
	"support_chat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	relay       *service.Relay
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, relay *service.Relay, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		relay:       relay,
		log:         log,
	}
}

// GetOrCreate - GET /api/chats/:userId
func (h *ChatHandler) GetOrCreate(c *gin.Context) {
	conv, err := h.chatService.GetOrCreateConversation(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// List - GET /api/chats
func (h *ChatHandler) List(c *gin.Context) {
	convs, err := h.chatService.ListConversations(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// ListAll - GET /api/chats/admin/all
func (h *ChatHandler) ListAll(c *gin.Context) {
	page, limit := pageParams(c)
	convs, err := h.chatService.ListAllConversations(c.Request.Context(), middleware.GetIdentity(c), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// GetMessages - GET /api/chats/messages/:chatId?page=&limit=
func (h *ChatHandler) GetMessages(c *gin.Context) {
	page, limit := pageParams(c)
	messages, err := h.chatService.GetMessages(c.Request.Context(), middleware.GetIdentity(c), c.Param("chatId"), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	ChatID     string `json:"chatId" binding:"required"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content" binding:"required"`
}

// SendMessage - POST /api/chats/messages, сообщение уходит и в сокет
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	message, err := h.relay.SendMessage(c.Request.Context(), middleware.GetIdentity(c), domain.SendMessagePayload{
		ChatID:     req.ChatID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// MarkRead - PUT /api/chats/messages/:chatId/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	updated, err := h.chatService.MarkRead(c.Request.Context(), middleware.GetIdentity(c), c.Param("chatId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Presence - GET /api/chats/presence/:userId
func (h *ChatHandler) Presence(c *gin.Context) {
	userID := c.Param("userId")
	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"online": h.relay.Online(userID),
	})
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return page, limit
}
