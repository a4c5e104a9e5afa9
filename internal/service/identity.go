package service

import (
	"context"
	"fmt"
	"strings"

	"support_chat/internal/config"
	"support_chat/internal/domain"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/jwt"
	"support_chat/pkg/logger"
)

// IdentityService проверяет bearer токены, выданные identity provider
type IdentityService interface {
	ValidateToken(ctx context.Context, tokenString string) (*domain.Identity, error)
}

type identityService struct {
	jwtCfg     config.JWTConfig
	adminParty string
	log        logger.Logger
}

func NewIdentityService(jwtCfg config.JWTConfig, adminParty string, log logger.Logger) IdentityService {
	return &identityService{
		jwtCfg:     jwtCfg,
		adminParty: adminParty,
		log:        log,
	}
}

func (s *identityService) ValidateToken(ctx context.Context, tokenString string) (*domain.Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, apperrors.ErrUnauthorized
	}

	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.Secret, s.jwtCfg.Issuer)
	if err != nil {
		s.log.Debug("Token validation failed", "error", err)
		return nil, err
	}

	role := strings.ToLower(claims.Role)
	if role != domain.RoleAdmin {
		role = domain.RoleCustomer
	}
	// id стороны поддержки не может принадлежать покупателю
	if role == domain.RoleCustomer && claims.UserID == s.adminParty {
		s.log.Warn("Customer token uses the support party id", "user_id", claims.UserID)
		return nil, fmt.Errorf("%w: user id is reserved", apperrors.ErrInvalidToken)
	}

	return &domain.Identity{
		ID:          claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        role,
	}, nil
}
