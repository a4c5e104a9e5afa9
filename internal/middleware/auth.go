package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"support_chat/internal/domain"
	"support_chat/internal/service"
	"support_chat/pkg/logger"
)

const identityKey = "identity"

type AuthMiddleware struct {
	identityService service.IdentityService
	log             logger.Logger
}

func NewAuthMiddleware(identityService service.IdentityService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		identityService: identityService,
		log:             log,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		identity, err := m.identityService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			m.log.Warn("Token validation failed", "path", c.FullPath(), "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireAdmin ставится после RequireAuth
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetIdentity возвращает identity, установленную RequireAuth, или nil
func GetIdentity(c *gin.Context) *domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*domain.Identity)
	return identity
}

// ExtractToken: сокет передает токен в ?token=, REST - в Authorization: Bearer
func ExtractToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	token, _ := bearerToken(c.GetHeader("Authorization"))
	return token
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
