package service

import (
	"context"
	"fmt"

	"support_chat/internal/config"
	"support_chat/internal/domain"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

// Relay принимает события сокета: join, сообщение, typing.
// Сообщение рассылается только после успешной записи в хранилище.
type Relay struct {
	hub       *Hub
	chat      ChatService
	backplane Backplane
	rateLimit RateLimitService
	cfg       config.ChatConfig
	log       logger.Logger
}

func NewRelay(hub *Hub, chat ChatService, backplane Backplane, rateLimit RateLimitService, cfg config.ChatConfig, log logger.Logger) *Relay {
	return &Relay{
		hub:       hub,
		chat:      chat,
		backplane: backplane,
		rateLimit: rateLimit,
		cfg:       cfg,
		log:       log.With("component", "relay"),
	}
}

func (r *Relay) Connect(conn Conn) {
	r.hub.Attach(conn)

	userID := ""
	if identity := conn.Identity(); identity != nil {
		userID = identity.ID
	}
	r.log.Info("Connection attached", "conn_id", conn.ID(), "user_id", userID)
}

func (r *Relay) Disconnect(conn Conn) {
	rooms := r.hub.Detach(conn)
	r.log.Info("Connection detached", "conn_id", conn.ID(), "rooms", len(rooms))
}

// Join подписывает соединение на комнату переписки, повторный join ничего не меняет
func (r *Relay) Join(ctx context.Context, conn Conn, in domain.JoinChatPayload) (*domain.Conversation, error) {
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}
	identity := conn.Identity()
	if identity == nil {
		return nil, fmt.Errorf("%w: authentication required to join a chat", apperrors.ErrUnauthorized)
	}

	conv, err := r.chat.GetConversation(ctx, identity, in.ChatID)
	if err != nil {
		return nil, err
	}

	if r.hub.Join(conv.ID, conn) {
		r.log.Debug("Joined chat room", "conn_id", conn.ID(), "chat_id", conv.ID, "user_id", identity.ID)
		r.chat.RecordAction(ctx, identity, conv.ID, domain.AuditChatJoined, map[string]interface{}{
			"conn_id": conn.ID(),
		})
	}
	return conv, nil
}

// SendMessage: валидация -> лимит -> запись -> рассылка в комнату.
// Используется и сокетом, и REST.
func (r *Relay) SendMessage(ctx context.Context, sender *domain.Identity, in domain.SendMessagePayload) (*domain.ChatMessage, error) {
	if sender == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}

	if err := r.checkRate(ctx, sender); err != nil {
		return nil, err
	}

	message, err := r.chat.SendMessage(ctx, sender, in)
	if err != nil {
		return nil, err
	}

	env, err := domain.NewEnvelope(domain.EventReceiveMessage, message)
	if err != nil {
		return nil, err
	}

	// Сообщение уже сохранено: ошибка рассылки не откатывает запись
	if err := r.backplane.Publish(ctx, Delivery{RoomID: message.ChatID, Event: env}); err != nil {
		r.log.Error("Failed to publish message", "chat_id", message.ChatID, "message_id", message.ID, "error", err)
	}

	return message, nil
}

func (r *Relay) checkRate(ctx context.Context, sender *domain.Identity) error {
	key := "chat:send:" + sender.ID
	allowed, count, err := r.rateLimit.Allow(ctx, key, r.cfg.MessageRateLimit, r.cfg.MessageRateWindow)
	if err != nil {
		// redis недоступен - не блокируем переписку
		r.log.Warn("Rate limit check failed", "user_id", sender.ID, "error", err)
		return nil
	}
	if !allowed {
		r.log.Warn("Message rate limit exceeded", "user_id", sender.ID, "count", count)
		return apperrors.ErrRateLimited
	}
	return nil
}

// Typing не сохраняется и доставляется без гарантий.
// С chatId - в комнату, кроме самого соединения; только с receiverId - всем соединениям получателя.
func (r *Relay) Typing(ctx context.Context, conn Conn, in domain.TypingPayload) error {
	if err := domain.Validate(&in); err != nil {
		return err
	}
	identity := conn.Identity()
	if identity == nil {
		return fmt.Errorf("%w: authentication required to send typing", apperrors.ErrUnauthorized)
	}
	party := r.chat.PartyOf(identity)

	var d Delivery
	switch {
	case in.ChatID != "":
		if !r.hub.IsMember(in.ChatID, conn.ID()) {
			return fmt.Errorf("%w: join the chat before sending typing", apperrors.ErrForbidden)
		}
		// своя сторона (другие вкладки, другие администраторы) сигнал не получает
		d = Delivery{RoomID: in.ChatID, ExcludeConn: conn.ID(), ExcludeUser: party}
	default:
		// покупатель может писать только поддержке
		if !identity.IsAdmin() && in.ReceiverID != r.cfg.AdminParty {
			return fmt.Errorf("%w: customers can only signal support", apperrors.ErrForbidden)
		}
		d = Delivery{UserID: in.ReceiverID}
	}

	env, err := domain.NewEnvelope(domain.EventUserTyping, domain.UserTypingPayload{
		ChatID:   in.ChatID,
		SenderID: party,
		IsTyping: *in.IsTyping,
	})
	if err != nil {
		return err
	}
	d.Event = env

	if err := r.backplane.Publish(ctx, d); err != nil {
		r.log.Debug("Failed to publish typing", "conn_id", conn.ID(), "error", err)
	}
	return nil
}

// Online - есть ли у пользователя живое соединение на этом инстансе
func (r *Relay) Online(userID string) bool {
	return r.hub.Online(userID)
}
