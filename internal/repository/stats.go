package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"support_chat/internal/domain"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type StatsRepository interface {
	// ChatStats считает переписки и непрочитанные сообщения для стороны поддержки
	ChatStats(ctx context.Context, adminParty string) (*domain.ChatStats, error)
}

type statsRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewStatsRepository(db *pgxpool.Pool, log logger.Logger) StatsRepository {
	return &statsRepository{db: db, log: log}
}

func (r *statsRepository) ChatStats(ctx context.Context, adminParty string) (*domain.ChatStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM conversations WHERE last_message_at IS NOT NULL),
			(SELECT COUNT(*) FROM chat_messages),
			(SELECT COUNT(*) FROM chat_messages WHERE is_read = FALSE AND sender_id <> $1)
	`

	stats := &domain.ChatStats{}
	err := r.db.QueryRow(ctx, query, adminParty).Scan(
		&stats.Conversations, &stats.ActiveConversations, &stats.Messages, &stats.UnreadForSupport,
	)
	if err != nil {
		r.log.Error("Failed to get chat stats", "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return stats, nil
}
