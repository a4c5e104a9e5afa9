package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"support_chat/internal/domain"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

// ChatRepository - хранилище переписок и сообщений
type ChatRepository interface {
	// Найти переписку покупателя или создать новую
	GetOrCreateConversation(ctx context.Context, customerID, adminParty string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversationsByParticipant(ctx context.Context, participantID string) ([]*domain.Conversation, error)
	ListAllConversations(ctx context.Context, limit, offset int) ([]*domain.Conversation, error)

	// Сохранить сообщение и обновить lastMessage переписки (одна транзакция)
	CreateMessage(ctx context.Context, message *domain.ChatMessage) error
	// Последние сообщения страницы в хронологическом порядке
	GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*domain.ChatMessage, error)
	CountMessages(ctx context.Context, chatID string) (int64, error)
	// Пометить прочитанными сообщения собеседника, возвращает число обновленных
	MarkRead(ctx context.Context, chatID, readerID string) (int64, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

const conversationColumns = `id, customer_id, admin_id, last_message, last_message_at, created_at, updated_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var (
		c             domain.Conversation
		adminID       string
		lastMessage   *string
		lastMessageAt *time.Time
	)
	if err := row.Scan(&c.ID, &c.CustomerID, &adminID, &lastMessage, &lastMessageAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Participants = []string{c.CustomerID, adminID}
	if lastMessage != nil {
		c.LastMessage = *lastMessage
	}
	c.LastMessageAt = lastMessageAt
	return &c, nil
}

func (r *chatRepository) GetOrCreateConversation(ctx context.Context, customerID, adminParty string) (*domain.Conversation, error) {
	// ON CONFLICT DO UPDATE нужен, чтобы RETURNING вернул уже существующую строку
	query := `
		INSERT INTO conversations (id, customer_id, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (customer_id) DO UPDATE SET customer_id = EXCLUDED.customer_id
		RETURNING ` + conversationColumns

	conv, err := scanConversation(r.db.QueryRow(ctx, query, uuid.NewString(), customerID, adminParty, time.Now().UTC()))
	if err != nil {
		r.log.Error("Failed to get or create conversation", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return conv, nil
}

func (r *chatRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	conv, err := scanConversation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to get conversation", "chat_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return conv, nil
}

func (r *chatRepository) ListConversationsByParticipant(ctx context.Context, participantID string) ([]*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE customer_id = $1 OR admin_id = $1
		ORDER BY COALESCE(last_message_at, created_at) DESC
	`
	return r.listConversations(ctx, query, participantID)
}

func (r *chatRepository) ListAllConversations(ctx context.Context, limit, offset int) ([]*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		ORDER BY COALESCE(last_message_at, created_at) DESC
		LIMIT $1 OFFSET $2
	`
	return r.listConversations(ctx, query, limit, offset)
}

func (r *chatRepository) listConversations(ctx context.Context, query string, args ...interface{}) ([]*domain.Conversation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer rows.Close()

	conversations := make([]*domain.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			r.log.Error("Failed to scan conversation", "error", err)
			return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return conversations, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *domain.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO chat_messages (id, conversation_id, sender_id, receiver_id, content, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)
			RETURNING created_at
		`
		if err := tx.QueryRow(ctx, insert,
			message.ID, message.ChatID, message.SenderID, message.ReceiverID, message.Content, message.CreatedAt,
		).Scan(&message.CreatedAt); err != nil {
			return err
		}

		update := `
			UPDATE conversations
			SET last_message = $2, last_message_at = $3, updated_at = $3
			WHERE id = $1
		`
		_, err := tx.Exec(ctx, update, message.ChatID, message.Content, message.CreatedAt)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503 = foreign_key_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to create message", "chat_id", message.ChatID, "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	message.Read = false
	return nil
}

func (r *chatRepository) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, content, is_read, created_at
		FROM (
			SELECT id, conversation_id, sender_id, receiver_id, content, is_read, created_at
			FROM chat_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		) page
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, chatID, limit, offset)
	if err != nil {
		r.log.Error("Failed to get messages", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer rows.Close()

	messages := make([]*domain.ChatMessage, 0, limit)
	for rows.Next() {
		m := &domain.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return messages, nil
}

func (r *chatRepository) CountMessages(ctx context.Context, chatID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE conversation_id = $1`, chatID).Scan(&total)
	if err != nil {
		r.log.Error("Failed to count messages", "chat_id", chatID, "error", err)
		return 0, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return total, nil
}

func (r *chatRepository) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	// is_read только FALSE -> TRUE
	query := `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`
	tag, err := r.db.Exec(ctx, query, chatID, readerID)
	if err != nil {
		r.log.Error("Failed to mark messages read", "chat_id", chatID, "error", err)
		return 0, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return tag.RowsAffected(), nil
}
