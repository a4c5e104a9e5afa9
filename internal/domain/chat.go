package domain

import (
	"time"
)

// Conversation - переписка покупателя с поддержкой (ровно два участника)
type Conversation struct {
	ID            string     `json:"_id"`
	CustomerID    string     `json:"customerId"`
	Participants  []string   `json:"participants"`
	LastMessage   string     `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// HasParticipant проверяет, что identity - один из двух участников
func (c *Conversation) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Counterpart возвращает второго участника
func (c *Conversation) Counterpart(id string) string {
	for _, p := range c.Participants {
		if p != id {
			return p
		}
	}
	return ""
}

// ChatMessage неизменяемо после создания, кроме флага Read (только false -> true)
type ChatMessage struct {
	ID         string    `json:"_id"`
	ChatID     string    `json:"chatId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessagePage - страница истории сообщений
type MessagePage struct {
	Messages []*ChatMessage `json:"messages"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
	Total    int64          `json:"total"`
	HasMore  bool           `json:"hasMore"`
}
