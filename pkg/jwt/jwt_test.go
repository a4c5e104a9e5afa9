package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "support_chat/pkg/errors"
)

const secret = "test-secret"

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateAccessToken("cust-1", "c@shop.test", "Customer", "customer", secret, "storefront", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, secret, "storefront")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.UserID)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "Customer", claims.DisplayName)
}

func TestValidateToken_Failures(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateAccessToken("cust-1", "", "", "customer", secret, "", time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken(token, "other", "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateAccessToken("cust-1", "", "", "customer", secret, "", -time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken(token, secret, "")
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := GenerateAccessToken("cust-1", "", "", "customer", secret, "someone-else", time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken(token, secret, "storefront")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("missing user id", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: "customer"}).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = ValidateToken(token, secret, "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateToken("not-a-token", secret, "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}
