package chatclient

import (
	"sort"
	"sync"
	"time"

	"support_chat/internal/domain"
)

// DefaultTypingTimeout - после него "печатает..." гаснет, даже если stop-событие потерялось
const DefaultTypingTimeout = 3 * time.Second

type typingKey struct {
	chatID   string
	senderID string
}

// TypingTracker хранит состояние "печатает" на стороне получателя.
// Индикатор активен строго до deadline: в момент now == deadline он уже погас.
type TypingTracker struct {
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	deadlines map[typingKey]time.Time
}

func NewTypingTracker(timeout time.Duration) *TypingTracker {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingTracker{
		timeout:   timeout,
		now:       time.Now,
		deadlines: make(map[typingKey]time.Time),
	}
}

// Apply учитывает входящее событие userTyping
func (t *TypingTracker) Apply(p domain.UserTypingPayload) {
	key := typingKey{chatID: p.ChatID, senderID: p.SenderID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !p.IsTyping {
		delete(t.deadlines, key)
		return
	}
	t.deadlines[key] = t.now().Add(t.timeout)
}

func (t *TypingTracker) IsTyping(chatID, senderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{chatID: chatID, senderID: senderID}
	deadline, ok := t.deadlines[key]
	if !ok {
		return false
	}
	if !t.now().Before(deadline) {
		delete(t.deadlines, key)
		return false
	}
	return true
}

// Active возвращает отсортированный список тех, кто сейчас печатает в переписке
func (t *TypingTracker) Active(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var out []string
	for key, deadline := range t.deadlines {
		if !now.Before(deadline) {
			delete(t.deadlines, key)
			continue
		}
		if key.chatID == chatID {
			out = append(out, key.senderID)
		}
	}
	sort.Strings(out)
	return out
}
