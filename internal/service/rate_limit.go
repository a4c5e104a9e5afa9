package service

import (
	"context"
	"time"

	"support_chat/internal/repository"
	"support_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow регистрирует запрос и сообщает, укладывается ли он в лимит окна
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

// NewRateLimitService: без репозитория (нет redis) все запросы разрешены
func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, error) {
	if s.rateLimitRepo == nil || limit <= 0 || window <= 0 {
		return true, 0, nil
	}

	count, err := s.rateLimitRepo.Hit(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= int64(limit), count, nil
}
