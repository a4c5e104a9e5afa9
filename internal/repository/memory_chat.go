package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"support_chat/internal/domain"
	apperrors "support_chat/pkg/errors"
)

// MemoryChatRepository - хранилище в памяти процесса (CHAT_STORE=memory и тесты)
type MemoryChatRepository struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	byCustomer    map[string]string
	messages      map[string][]*domain.ChatMessage
}

var _ ChatRepository = (*MemoryChatRepository)(nil)

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		conversations: make(map[string]*domain.Conversation),
		byCustomer:    make(map[string]string),
		messages:      make(map[string][]*domain.ChatMessage),
	}
}

// SeedConversation создает переписку с заданным id
func (r *MemoryChatRepository) SeedConversation(id, customerID, adminParty string) *domain.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:           id,
		CustomerID:   customerID,
		Participants: []string{customerID, adminParty},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.conversations[id] = conv
	r.byCustomer[customerID] = id
	return copyConversation(conv)
}

func (r *MemoryChatRepository) GetOrCreateConversation(ctx context.Context, customerID, adminParty string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byCustomer[customerID]; ok {
		return copyConversation(r.conversations[id]), nil
	}

	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:           uuid.NewString(),
		CustomerID:   customerID,
		Participants: []string{customerID, adminParty},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.conversations[conv.ID] = conv
	r.byCustomer[customerID] = conv.ID
	return copyConversation(conv), nil
}

func (r *MemoryChatRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	return copyConversation(conv), nil
}

func (r *MemoryChatRepository) ListConversationsByParticipant(ctx context.Context, participantID string) ([]*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Conversation, 0)
	for _, conv := range r.conversations {
		if conv.HasParticipant(participantID) {
			out = append(out, copyConversation(conv))
		}
	}
	sortByActivity(out)
	return out, nil
}

func (r *MemoryChatRepository) ListAllConversations(ctx context.Context, limit, offset int) ([]*domain.Conversation, error) {
	r.mu.RLock()
	all := make([]*domain.Conversation, 0, len(r.conversations))
	for _, conv := range r.conversations {
		all = append(all, copyConversation(conv))
	}
	r.mu.RUnlock()

	sortByActivity(all)
	return paginate(all, limit, offset), nil
}

func (r *MemoryChatRepository) CreateMessage(ctx context.Context, message *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[message.ChatID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	message.Read = false

	stored := *message
	r.messages[message.ChatID] = append(r.messages[message.ChatID], &stored)

	at := message.CreatedAt
	conv.LastMessage = message.Content
	conv.LastMessageAt = &at
	conv.UpdatedAt = at
	return nil
}

func (r *MemoryChatRepository) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.messages[chatID]
	// страница считается от самых новых
	end := len(all) - offset
	if end <= 0 {
		return []*domain.ChatMessage{}, nil
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	out := make([]*domain.ChatMessage, 0, end-start)
	for _, m := range all[start:end] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryChatRepository) CountMessages(ctx context.Context, chatID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.messages[chatID])), nil
}

func (r *MemoryChatRepository) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[chatID]; !ok {
		return 0, apperrors.ErrConversationNotFound
	}

	var updated int64
	for _, m := range r.messages[chatID] {
		if m.SenderID != readerID && !m.Read {
			m.Read = true
			updated++
		}
	}
	return updated, nil
}

func copyConversation(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		cp.LastMessageAt = &at
	}
	return &cp
}

func activity(c *domain.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func sortByActivity(convs []*domain.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return activity(convs[i]).After(activity(convs[j]))
	})
}

func paginate(convs []*domain.Conversation, limit, offset int) []*domain.Conversation {
	if offset >= len(convs) {
		return []*domain.Conversation{}
	}
	convs = convs[offset:]
	if limit > 0 && limit < len(convs) {
		convs = convs[:limit]
	}
	return convs
}

// ChatStats - реализация StatsRepository поверх тех же данных
func (r *MemoryChatRepository) ChatStats(ctx context.Context, adminParty string) (*domain.ChatStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.ChatStats{Conversations: int64(len(r.conversations))}
	for _, conv := range r.conversations {
		if conv.LastMessageAt != nil {
			stats.ActiveConversations++
		}
	}
	for _, msgs := range r.messages {
		for _, m := range msgs {
			stats.Messages++
			if !m.Read && m.SenderID != adminParty {
				stats.UnreadForSupport++
			}
		}
	}
	return stats, nil
}
