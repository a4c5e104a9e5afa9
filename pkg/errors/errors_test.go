package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrConversationNotFound, http.StatusNotFound},
		{fmt.Errorf("get conversation: %w", ErrNotFound), http.StatusNotFound},
		{ErrTokenExpired, http.StatusUnauthorized},
		{fmt.Errorf("join: %w", ErrForbidden), http.StatusForbidden},
		{ErrEmptyContent, http.StatusBadRequest},
		{ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("%w: connection refused", ErrPersistence), http.StatusInternalServerError},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatusFromError(tc.err), tc.err.Error())
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, "persistence_failed", Code(fmt.Errorf("%w: timeout", ErrPersistence)))
	assert.Equal(t, "conversation_not_found", Code(ErrConversationNotFound))
	assert.Equal(t, "unauthorized", Code(ErrInvalidToken))
	assert.Equal(t, "empty_content", Code(ErrEmptyContent))
	assert.Equal(t, "internal_error", Code(fmt.Errorf("boom")))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(fmt.Errorf("%w: dial tcp 10.0.0.5:5432: refused", ErrPersistence)))
	assert.Equal(t, "internal server error", PublicMessage(fmt.Errorf("boom")))
	assert.Equal(t, "message content is too long: max 2000 characters",
		PublicMessage(fmt.Errorf("%w: max 2000 characters", ErrContentTooLong)))
}
