package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	"support_chat/pkg/logger"
)

const testRelayChannel = "chat:relay:test"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type recordingSink struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (s *recordingSink) Deliver(d Delivery) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, d)
	return 1
}

func (s *recordingSink) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

// runBackplane запускает Run и возвращает функцию остановки, которая ждет выхода
func runBackplane(t *testing.T, bp Backplane) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bp.Run(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
			return nil
		}
	}
}

func TestRedisBackplane_FansOutAcrossInstances(t *testing.T) {
	mr, rdb := newTestRedis(t)
	log := logger.NewNop()

	sinkA, sinkB := &recordingSink{}, &recordingSink{}
	instanceA := NewRedisBackplane(rdb, testRelayChannel, sinkA, log)
	instanceB := NewRedisBackplane(rdb, testRelayChannel, sinkB, log)
	stopA := runBackplane(t, instanceA)
	stopB := runBackplane(t, instanceB)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(testRelayChannel)[testRelayChannel] == 2
	}, 2*time.Second, 10*time.Millisecond)

	sent := Delivery{
		RoomID:      "conv-1",
		ExcludeConn: "conn-1",
		Event: domain.Envelope{
			Event: domain.EventReceiveMessage,
			Data:  json.RawMessage(`{"_id":"m1","chatId":"conv-1","senderId":"cust-1","content":"Hello"}`),
		},
	}
	require.NoError(t, instanceA.Publish(context.Background(), sent))

	for name, sink := range map[string]*recordingSink{"A": sinkA, "B": sinkB} {
		require.Eventually(t, func() bool { return len(sink.Deliveries()) == 1 }, 2*time.Second, 10*time.Millisecond, "instance %s", name)
		got := sink.Deliveries()[0]
		assert.Equal(t, sent.RoomID, got.RoomID)
		assert.Equal(t, sent.ExcludeConn, got.ExcludeConn)
		assert.Equal(t, sent.Event.Event, got.Event.Event)
		assert.JSONEq(t, string(sent.Event.Data), string(got.Event.Data))
	}

	assert.NoError(t, stopA())
	assert.NoError(t, stopB())
	// повторный Close после остановки ничего не делает
	assert.NoError(t, instanceA.Close())
	assert.NoError(t, instanceB.Close())
}

func TestRedisBackplane_DropsMalformedPayload(t *testing.T) {
	mr, rdb := newTestRedis(t)
	sink := &recordingSink{}
	bp := NewRedisBackplane(rdb, testRelayChannel, sink, logger.NewNop())
	stop := runBackplane(t, bp)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(testRelayChannel)[testRelayChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish(testRelayChannel, "{not json")
	require.NoError(t, bp.Publish(context.Background(), Delivery{
		UserID: "admin",
		Event:  domain.Envelope{Event: domain.EventUserTyping, Data: json.RawMessage(`{"chatId":"conv-1","senderId":"cust-1","isTyping":true}`)},
	}))

	require.Eventually(t, func() bool { return len(sink.Deliveries()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "admin", sink.Deliveries()[0].UserID)

	assert.NoError(t, stop())
}

func TestRedisBackplane_RunFailsWhenRedisIsDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	bp := NewRedisBackplane(rdb, testRelayChannel, &recordingSink{}, logger.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, bp.Run(ctx))
	assert.Error(t, bp.Publish(ctx, Delivery{RoomID: "conv-1"}))
	assert.NoError(t, bp.Close())
}

func TestRateLimitService_WithRedisRepository(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewRateLimitService(repository.NewRateLimitRepository(rdb, logger.NewNop()), logger.NewNop())
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		allowed, count, err := svc.Allow(ctx, "chat:send:cust-1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.EqualValues(t, i, count)
	}

	allowed, count, err := svc.Allow(ctx, "chat:send:cust-1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.EqualValues(t, 3, count)

	// отдельный ключ - отдельное окно
	allowed, _, err = svc.Allow(ctx, "chat:send:cust-2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
