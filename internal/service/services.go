package service

import (
	"github.com/redis/go-redis/v9"
	"support_chat/internal/config"
	"support_chat/internal/repository"
	"support_chat/pkg/logger"
)

type Services struct {
	Identity  IdentityService
	Chat      ChatService
	Stats     StatsService
	RateLimit RateLimitService
	Hub       *Hub
	Backplane Backplane
	Relay     *Relay
}

// NewServices: rdb нужен только для CHAT_BACKPLANE=redis
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, log logger.Logger) *Services {
	hub := NewHub(cfg.Chat.AdminParty)

	var backplane Backplane
	if cfg.Chat.Backplane == config.BackplaneRedis && rdb != nil {
		backplane = NewRedisBackplane(rdb, cfg.Chat.RelayChannel, hub, log)
		log.Info("Backplane initialized", "type", config.BackplaneRedis, "channel", cfg.Chat.RelayChannel)
	} else {
		if cfg.Chat.Backplane == config.BackplaneRedis {
			log.Warn("Redis backplane requested but redis is not configured, falling back to local")
		}
		backplane = NewLocalBackplane(hub)
		log.Info("Backplane initialized", "type", config.BackplaneLocal)
	}

	services := &Services{
		Identity:  NewIdentityService(cfg.JWT, cfg.Chat.AdminParty, log),
		Chat:      NewChatService(repos.Chat, repos.Audit, cfg.Chat, log),
		Stats:     NewStatsService(repos.Stats, hub, cfg.Chat.AdminParty, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
		Hub:       hub,
		Backplane: backplane,
	}
	services.Relay = NewRelay(hub, services.Chat, backplane, services.RateLimit, cfg.Chat, log)

	return services
}
