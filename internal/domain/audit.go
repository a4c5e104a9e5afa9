package domain

import (
	"time"
)

// AuditLog - след действий поддержки с перепиской
type AuditLog struct {
	ID        int64                  `json:"id"`
	EventTime time.Time              `json:"eventTime"`
	ActorID   string                 `json:"actorId"`
	ActorRole string                 `json:"actorRole"`
	ChatID    string                 `json:"chatId,omitempty"`
	EventType string                 `json:"eventType"`
	Payload   map[string]interface{} `json:"payload"`
}

const (
	AuditConversationOpened = "CONVERSATION_OPENED"
	AuditChatJoined         = "CHAT_JOINED"
	AuditMessagesRead       = "MESSAGES_READ"
	AuditMessageRejected    = "MESSAGE_REJECTED"
)
