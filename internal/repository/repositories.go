package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"support_chat/pkg/logger"
)

type Repositories struct {
	Chat      ChatRepository
	Audit     AuditRepository
	Stats     StatsRepository
	RateLimit RateLimitRepository
}

// NewRepositories: db == nil -> переписки в памяти, redis == nil -> без rate limit
func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{}

	if db != nil {
		repos.Chat = NewChatRepository(db, log)
		repos.Audit = NewAuditRepository(db, log)
		repos.Stats = NewStatsRepository(db, log)
		log.Info("Chat repository initialized", "store", "postgres")
	} else {
		memory := NewMemoryChatRepository()
		repos.Chat = memory
		repos.Stats = memory
		repos.Audit = NewMemoryAuditRepository()
		log.Warn("Chat repository initialized in memory, data is not durable")
	}

	if redis != nil {
		repos.RateLimit = NewRateLimitRepository(redis, log)
	} else {
		log.Warn("Redis is not configured, message rate limiting disabled")
	}

	return repos
}
