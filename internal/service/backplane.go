package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"support_chat/internal/domain"
	"support_chat/pkg/logger"
)

// Delivery - адресованное событие: в комнату или всем соединениям пользователя.
// ExcludeConn пропускает соединение-отправителя, ExcludeUser - все соединения его стороны (typing).
type Delivery struct {
	RoomID      string          `json:"roomId,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	ExcludeConn string          `json:"excludeConn,omitempty"`
	ExcludeUser string          `json:"excludeUser,omitempty"`
	Event       domain.Envelope `json:"event"`
}

// Sink - локальный получатель доставок (Hub)
type Sink interface {
	Deliver(d Delivery) int
}

// Backplane разносит доставки между инстансами сервиса
type Backplane interface {
	Publish(ctx context.Context, d Delivery) error
	// Run блокируется до отмены ctx
	Run(ctx context.Context) error
	Close() error
}

// localBackplane - один процесс, доставка синхронная
type localBackplane struct {
	sink Sink
}

func NewLocalBackplane(sink Sink) Backplane {
	return &localBackplane{sink: sink}
}

func (b *localBackplane) Publish(ctx context.Context, d Delivery) error {
	b.sink.Deliver(d)
	return nil
}

func (b *localBackplane) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (b *localBackplane) Close() error {
	return nil
}

// redisBackplane публикует доставки в канал redis, каждый инстанс
// доставляет полученное своим локальным соединениям
type redisBackplane struct {
	rdb     *redis.Client
	channel string
	sink    Sink
	log     logger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

func NewRedisBackplane(rdb *redis.Client, channel string, sink Sink, log logger.Logger) Backplane {
	return &redisBackplane{
		rdb:     rdb,
		channel: channel,
		sink:    sink,
		log:     log.With("component", "backplane", "channel", channel),
	}
}

func (b *redisBackplane) Publish(ctx context.Context, d Delivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish delivery: %w", err)
	}
	return nil
}

func (b *redisBackplane) Run(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)

	// Ждем подтверждения подписки, иначе ранние публикации теряются
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	b.mu.Lock()
	b.pubsub = pubsub
	b.mu.Unlock()

	b.log.Info("Backplane subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return b.Close()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var d Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				b.log.Warn("Dropping malformed delivery", "error", err)
				continue
			}
			b.sink.Deliver(d)
		}
	}
}

func (b *redisBackplane) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	b.pubsub = nil
	return err
}
