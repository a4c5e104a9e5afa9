package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

func newTestChatService() (ChatService, *repository.MemoryChatRepository) {
	repo := repository.NewMemoryChatRepository()
	return NewChatService(repo, repository.NewMemoryAuditRepository(), testChatConfig(), logger.NewNop()), repo
}

func TestChatService_GetOrCreateConversation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestChatService()

	// покупатель открывает чат с поддержкой
	conv, err := svc.GetOrCreateConversation(ctx, customer1, "admin")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", conv.CustomerID)
	assert.Equal(t, []string{"cust-1", "admin"}, conv.Participants)

	// админ открывает ту же переписку по id покупателя
	same, err := svc.GetOrCreateConversation(ctx, adminA, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, same.ID)

	_, err = svc.GetOrCreateConversation(ctx, customer1, "cust-2")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.GetOrCreateConversation(ctx, adminA, "")
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.GetOrCreateConversation(ctx, nil, "admin")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestChatService_ListConversations(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestChatService()
	repo.SeedConversation("conv-1", "cust-1", "admin")
	repo.SeedConversation("conv-2", "cust-2", "admin")

	mine, err := svc.ListConversations(ctx, customer1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "conv-1", mine[0].ID)

	admins, err := svc.ListConversations(ctx, adminA)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	// покупатель с id стороны поддержки не видит чужие переписки
	impostor := &domain.Identity{ID: "admin", Role: domain.RoleCustomer}
	leaked, err := svc.ListConversations(ctx, impostor)
	require.NoError(t, err)
	assert.Empty(t, leaked)

	_, err = svc.ListAllConversations(ctx, customer1, 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	all, err := svc.ListAllConversations(ctx, adminA, 1, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestChatService_GetMessagesPaging(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestChatService()
	repo.SeedConversation("conv-1", "cust-1", "admin")

	for i := 0; i < 5; i++ {
		_, err := svc.SendMessage(ctx, customer1, domain.SendMessagePayload{ChatID: "conv-1", Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	page, err := svc.GetMessages(ctx, customer1, "conv-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.EqualValues(t, 5, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "m4", page.Messages[1].Content)

	last, err := svc.GetMessages(ctx, adminA, "conv-1", 3, 2)
	require.NoError(t, err)
	assert.False(t, last.HasMore)
	require.Len(t, last.Messages, 1)
	assert.Equal(t, "m0", last.Messages[0].Content)

	// лимит обрезается до максимального, page < 1 -> 1
	clamped, err := svc.GetMessages(ctx, adminA, "conv-1", 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Page)
	assert.Equal(t, 100, clamped.Limit)

	_, err = svc.GetMessages(ctx, customer2, "conv-1", 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestChatService_MarkReadIsMonotonic(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestChatService()
	repo.SeedConversation("conv-1", "cust-1", "admin")

	_, err := svc.SendMessage(ctx, customer1, domain.SendMessagePayload{ChatID: "conv-1", Content: "Hello"})
	require.NoError(t, err)

	n, err := svc.MarkRead(ctx, adminA, "conv-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.MarkRead(ctx, adminB, "conv-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	page, err := svc.GetMessages(ctx, customer1, "conv-1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.True(t, page.Messages[0].Read)

	// покупатель читает только сообщения поддержки, свои не трогает
	n, err = svc.MarkRead(ctx, customer1, "conv-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestChatService_PartyOf(t *testing.T) {
	svc, _ := newTestChatService()
	assert.Equal(t, "admin", svc.PartyOf(adminA))
	assert.Equal(t, "cust-1", svc.PartyOf(customer1))
}

func TestChatService_AuditTrailRecordsAdminActions(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestChatService()
	repo.SeedConversation("conv-1", "cust-1", "admin")

	// действия покупателя в журнал не попадают
	_, err := svc.GetOrCreateConversation(ctx, customer1, "")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, customer1, domain.SendMessagePayload{ChatID: "conv-1", Content: "Hello"})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, adminA, "conv-1")
	require.NoError(t, err)
	// нечего читать, запись не создается
	_, err = svc.MarkRead(ctx, adminB, "conv-1")
	require.NoError(t, err)
	_, err = svc.GetOrCreateConversation(ctx, adminB, "cust-1")
	require.NoError(t, err)

	logs, err := svc.AuditTrail(ctx, adminA, "conv-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AuditConversationOpened, logs[0].EventType)
	assert.Equal(t, "admin-b", logs[0].ActorID)
	assert.Equal(t, domain.AuditMessagesRead, logs[1].EventType)
	assert.Equal(t, "admin-a", logs[1].ActorID)
	assert.EqualValues(t, 1, logs[1].Payload["updated"])

	_, err = svc.AuditTrail(ctx, customer1, "conv-1", 10)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = svc.AuditTrail(ctx, adminA, "conv-404", 10)
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}
