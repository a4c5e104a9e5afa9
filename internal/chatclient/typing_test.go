package chatclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"support_chat/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker() (*TypingTracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewTypingTracker(DefaultTypingTimeout)
	tracker.now = clock.Now
	return tracker, clock
}

func TestTypingTracker_ExpiresAtExactlyThreeSeconds(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.Apply(domain.UserTypingPayload{ChatID: "conv-1", SenderID: "cust-1", IsTyping: true})

	clock.Advance(2999 * time.Millisecond)
	assert.True(t, tracker.IsTyping("conv-1", "cust-1"), "still typing at 2999ms")

	clock.Advance(time.Millisecond)
	assert.False(t, tracker.IsTyping("conv-1", "cust-1"), "cleared at 3000ms")
	assert.Empty(t, tracker.Active("conv-1"))
}

func TestTypingTracker_RefreshExtendsDeadline(t *testing.T) {
	tracker, clock := newTestTracker()
	typing := domain.UserTypingPayload{ChatID: "conv-1", SenderID: "cust-1", IsTyping: true}

	tracker.Apply(typing)
	clock.Advance(2 * time.Second)
	tracker.Apply(typing)
	clock.Advance(2 * time.Second)

	assert.True(t, tracker.IsTyping("conv-1", "cust-1"))
}

func TestTypingTracker_StopClearsImmediately(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.Apply(domain.UserTypingPayload{ChatID: "conv-1", SenderID: "cust-1", IsTyping: true})
	tracker.Apply(domain.UserTypingPayload{ChatID: "conv-1", SenderID: "cust-1", IsTyping: false})

	assert.False(t, tracker.IsTyping("conv-1", "cust-1"))
}

func TestTypingTracker_ActiveIsPerChat(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.Apply(domain.UserTypingPayload{ChatID: "conv-1", SenderID: "cust-1", IsTyping: true})
	clock.Advance(time.Second)
	tracker.Apply(domain.UserTypingPayload{ChatID: "conv-1", SenderID: "admin", IsTyping: true})
	tracker.Apply(domain.UserTypingPayload{ChatID: "conv-2", SenderID: "cust-2", IsTyping: true})

	assert.Equal(t, []string{"admin", "cust-1"}, tracker.Active("conv-1"))

	clock.Advance(2 * time.Second)
	assert.Equal(t, []string{"admin"}, tracker.Active("conv-1"))
	assert.Equal(t, []string{"cust-2"}, tracker.Active("conv-2"))
}

func TestNewTypingTracker_DefaultTimeout(t *testing.T) {
	tracker := NewTypingTracker(0)
	assert.Equal(t, DefaultTypingTimeout, tracker.timeout)
}
