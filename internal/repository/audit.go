package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"support_chat/internal/domain"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type AuditRepository interface {
	CreateLog(ctx context.Context, log *domain.AuditLog) error
	// Последние записи по переписке, новые первыми
	ListByChat(ctx context.Context, chatID string, limit int) ([]*domain.AuditLog, error)
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	query := `
		INSERT INTO chat_audit_log (event_time, actor_id, actor_role, chat_id, event_type, payload)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		auditLog.EventTime, auditLog.ActorID, auditLog.ActorRole,
		auditLog.ChatID, auditLog.EventType, auditLog.Payload,
	).Scan(&auditLog.ID)

	if err != nil {
		r.log.Error("Failed to create audit log", "event_type", auditLog.EventType, "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	return nil
}

func (r *auditRepository) ListByChat(ctx context.Context, chatID string, limit int) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, event_time, actor_id, actor_role, COALESCE(chat_id, ''), event_type, payload
		FROM chat_audit_log
		WHERE chat_id = $1
		ORDER BY event_time DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, chatID, limit)
	if err != nil {
		r.log.Error("Failed to list audit log", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer rows.Close()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		entry := &domain.AuditLog{}
		if err := rows.Scan(&entry.ID, &entry.EventTime, &entry.ActorID, &entry.ActorRole, &entry.ChatID, &entry.EventType, &entry.Payload); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return logs, nil
}

// MemoryAuditRepository - журнал в памяти для CHAT_STORE=memory
type MemoryAuditRepository struct {
	mu     sync.RWMutex
	nextID int64
	logs   []*domain.AuditLog
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	auditLog.ID = r.nextID
	stored := *auditLog
	r.logs = append(r.logs, &stored)
	return nil
}

func (r *MemoryAuditRepository) ListByChat(ctx context.Context, chatID string, limit int) ([]*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.AuditLog, 0)
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.logs[i].ChatID == chatID {
			cp := *r.logs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
