package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"support_chat/internal/config"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type ChatService interface {
	GetOrCreateConversation(ctx context.Context, caller *domain.Identity, participantID string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, caller *domain.Identity, chatID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, caller *domain.Identity) ([]*domain.Conversation, error)
	ListAllConversations(ctx context.Context, caller *domain.Identity, page, limit int) ([]*domain.Conversation, error)
	GetMessages(ctx context.Context, caller *domain.Identity, chatID string, page, limit int) (*domain.MessagePage, error)
	SendMessage(ctx context.Context, caller *domain.Identity, in domain.SendMessagePayload) (*domain.ChatMessage, error)
	MarkRead(ctx context.Context, caller *domain.Identity, chatID string) (int64, error)
	// PartyOf - от чьего имени identity участвует в переписке
	PartyOf(caller *domain.Identity) string
	// RecordAction пишет действие администратора в журнал, ошибки только логируются
	RecordAction(ctx context.Context, caller *domain.Identity, chatID, eventType string, payload map[string]interface{})
	AuditTrail(ctx context.Context, caller *domain.Identity, chatID string, limit int) ([]*domain.AuditLog, error)
}

type chatService struct {
	chatRepo  repository.ChatRepository
	auditRepo repository.AuditRepository
	cfg       config.ChatConfig
	log       logger.Logger
}

func NewChatService(chatRepo repository.ChatRepository, auditRepo repository.AuditRepository, cfg config.ChatConfig, log logger.Logger) ChatService {
	return &chatService{
		chatRepo:  chatRepo,
		auditRepo: auditRepo,
		cfg:       cfg,
		log:       log,
	}
}

// Все администраторы выступают от одной стороны переписки
func (s *chatService) PartyOf(caller *domain.Identity) string {
	if caller.IsAdmin() {
		return s.cfg.AdminParty
	}
	return caller.ID
}

func (s *chatService) GetOrCreateConversation(ctx context.Context, caller *domain.Identity, participantID string) (*domain.Conversation, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}
	participantID = strings.TrimSpace(participantID)

	var customerID string
	if caller.IsAdmin() {
		if participantID == "" || participantID == s.cfg.AdminParty {
			return nil, fmt.Errorf("%w: customer id is required", apperrors.ErrBadRequest)
		}
		customerID = participantID
	} else {
		if participantID != "" && participantID != s.cfg.AdminParty && participantID != caller.ID {
			return nil, fmt.Errorf("%w: customers can only chat with support", apperrors.ErrForbidden)
		}
		customerID = caller.ID
	}

	conv, err := s.chatRepo.GetOrCreateConversation(ctx, customerID, s.cfg.AdminParty)
	if err != nil {
		return nil, err
	}

	s.RecordAction(ctx, caller, conv.ID, domain.AuditConversationOpened, map[string]interface{}{
		"customer_id": customerID,
	})
	return conv, nil
}

func (s *chatService) GetConversation(ctx context.Context, caller *domain.Identity, chatID string) (*domain.Conversation, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: chat id is required", apperrors.ErrBadRequest)
	}

	conv, err := s.chatRepo.GetConversation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(caller, conv) {
		return nil, apperrors.ErrForbidden
	}
	return conv, nil
}

func (s *chatService) canAccess(caller *domain.Identity, conv *domain.Conversation) bool {
	if caller.IsAdmin() {
		return true
	}
	return conv.CustomerID == caller.ID
}

func (s *chatService) ListConversations(ctx context.Context, caller *domain.Identity) ([]*domain.Conversation, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}
	convs, err := s.chatRepo.ListConversationsByParticipant(ctx, s.PartyOf(caller))
	if err != nil {
		return nil, err
	}
	if caller.IsAdmin() {
		return convs, nil
	}

	// покупателю - только его переписка, тот же критерий, что и canAccess
	own := make([]*domain.Conversation, 0, 1)
	for _, conv := range convs {
		if s.canAccess(caller, conv) {
			own = append(own, conv)
		}
	}
	return own, nil
}

func (s *chatService) ListAllConversations(ctx context.Context, caller *domain.Identity, page, limit int) ([]*domain.Conversation, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	page, limit = s.normalizePage(page, limit)
	return s.chatRepo.ListAllConversations(ctx, limit, (page-1)*limit)
}

func (s *chatService) GetMessages(ctx context.Context, caller *domain.Identity, chatID string, page, limit int) (*domain.MessagePage, error) {
	conv, err := s.GetConversation(ctx, caller, chatID)
	if err != nil {
		return nil, err
	}

	page, limit = s.normalizePage(page, limit)
	offset := (page - 1) * limit

	messages, err := s.chatRepo.GetMessages(ctx, conv.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.chatRepo.CountMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	return &domain.MessagePage{
		Messages: messages,
		Page:     page,
		Limit:    limit,
		Total:    total,
		HasMore:  int64(offset+len(messages)) < total,
	}, nil
}

func (s *chatService) normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	return page, limit
}

func (s *chatService) SendMessage(ctx context.Context, caller *domain.Identity, in domain.SendMessagePayload) (*domain.ChatMessage, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperrors.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.cfg.MaxMessageLength {
		return nil, fmt.Errorf("%w: max %d characters", apperrors.ErrContentTooLong, s.cfg.MaxMessageLength)
	}

	party := s.PartyOf(caller)
	if in.SenderID != "" && in.SenderID != caller.ID && in.SenderID != party {
		return nil, fmt.Errorf("%w: sender does not match credential", apperrors.ErrForbidden)
	}

	conv, err := s.GetConversation(ctx, caller, in.ChatID)
	if err != nil {
		return nil, err
	}

	receiver := conv.Counterpart(party)
	if in.ReceiverID != "" && in.ReceiverID != receiver {
		return nil, fmt.Errorf("%w: receiver is not the counterpart of this conversation", apperrors.ErrBadRequest)
	}

	message := &domain.ChatMessage{
		ChatID:     conv.ID,
		SenderID:   party,
		ReceiverID: receiver,
		Content:    content,
	}

	if s.cfg.PersistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PersistTimeout)
		defer cancel()
	}

	if err := s.chatRepo.CreateMessage(ctx, message); err != nil {
		s.log.Error("Failed to persist message", "chat_id", conv.ID, "sender_id", party, "error", err)
		if errors.Is(err, apperrors.ErrConversationNotFound) || errors.Is(err, apperrors.ErrPersistence) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	return message, nil
}

func (s *chatService) MarkRead(ctx context.Context, caller *domain.Identity, chatID string) (int64, error) {
	conv, err := s.GetConversation(ctx, caller, chatID)
	if err != nil {
		return 0, err
	}
	updated, err := s.chatRepo.MarkRead(ctx, conv.ID, s.PartyOf(caller))
	if err != nil {
		return 0, err
	}

	if updated > 0 {
		s.RecordAction(ctx, caller, conv.ID, domain.AuditMessagesRead, map[string]interface{}{
			"updated": updated,
		})
	}
	return updated, nil
}

func (s *chatService) RecordAction(ctx context.Context, caller *domain.Identity, chatID, eventType string, payload map[string]interface{}) {
	if s.auditRepo == nil || caller == nil || !caller.IsAdmin() {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	auditLog := &domain.AuditLog{
		EventTime: time.Now().UTC(),
		ActorID:   caller.ID,
		ActorRole: caller.Role,
		ChatID:    chatID,
		EventType: eventType,
		Payload:   payload,
	}
	if err := s.auditRepo.CreateLog(ctx, auditLog); err != nil {
		s.log.Warn("Failed to record audit event", "event_type", eventType, "chat_id", chatID, "error", err)
	}
}

func (s *chatService) AuditTrail(ctx context.Context, caller *domain.Identity, chatID string, limit int) ([]*domain.AuditLog, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if s.auditRepo == nil {
		return []*domain.AuditLog{}, nil
	}
	if _, err := s.chatRepo.GetConversation(ctx, chatID); err != nil {
		return nil, err
	}

	_, limit = s.normalizePage(1, limit)
	return s.auditRepo.ListByChat(ctx, chatID, limit)
}
