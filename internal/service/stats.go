package service

import (
	"context"

	"support_chat/internal/domain"
	"support_chat/internal/repository"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type StatsService interface {
	// Dashboard - сводка для администратора: данные хранилища плюс онлайн этого инстанса
	Dashboard(ctx context.Context, caller *domain.Identity) (*domain.ChatStats, error)
}

type statsService struct {
	statsRepo  repository.StatsRepository
	hub        *Hub
	adminParty string
	log        logger.Logger
}

func NewStatsService(statsRepo repository.StatsRepository, hub *Hub, adminParty string, log logger.Logger) StatsService {
	return &statsService{
		statsRepo:  statsRepo,
		hub:        hub,
		adminParty: adminParty,
		log:        log,
	}
}

func (s *statsService) Dashboard(ctx context.Context, caller *domain.Identity) (*domain.ChatStats, error) {
	if caller == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	stats, err := s.statsRepo.ChatStats(ctx, s.adminParty)
	if err != nil {
		return nil, err
	}
	stats.SupportOnline = s.hub.Online(s.adminParty)
	stats.Connections = s.hub.ConnectionCount()
	return stats, nil
}
