package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAT_STORE", "")
	t.Setenv("CHAT_BACKPLANE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Chat.Store)
	assert.Equal(t, BackplaneLocal, cfg.Chat.Backplane)
	assert.Equal(t, "admin", cfg.Chat.AdminParty)
	assert.True(t, cfg.Chat.AllowAnonymous)
	assert.Equal(t, 2000, cfg.Chat.MaxMessageLength)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHAT_STORE", "MEMORY")
	t.Setenv("CHAT_BACKPLANE", "redis")
	t.Setenv("CHAT_ALLOW_ANONYMOUS", "false")
	t.Setenv("CHAT_PING_INTERVAL", "5s")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ALLOW_ORIGINS", "https://shop.test, https://admin.shop.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Chat.Store)
	assert.Equal(t, BackplaneRedis, cfg.Chat.Backplane)
	assert.False(t, cfg.Chat.AllowAnonymous)
	assert.Equal(t, 5*time.Second, cfg.Chat.PingInterval)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://shop.test", "https://admin.shop.test"}, cfg.Server.AllowOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("CHAT_ALLOW_ANONYMOUS", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Chat.AllowAnonymous)
}

func TestValidate(t *testing.T) {
	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("CHAT_STORE", "mongo")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown backplane", func(t *testing.T) {
		t.Setenv("CHAT_BACKPLANE", "nats")
		_, err := Load()
		assert.Error(t, err)
	})

	for _, key := range []string{
		"CHAT_PING_INTERVAL",
		"CHAT_WRITE_WAIT",
		"CHAT_PERSIST_TIMEOUT",
		"CHAT_MESSAGE_RATE_WINDOW",
		"SERVER_RATE_WINDOW",
	} {
		t.Run("non-positive "+key, func(t *testing.T) {
			t.Setenv(key, "0s")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)

			t.Setenv(key, "-5s")
			_, err = Load()
			assert.Error(t, err)
		})
	}

	t.Run("frame smaller than message", func(t *testing.T) {
		t.Setenv("CHAT_MAX_MESSAGE_LENGTH", "2000")
		t.Setenv("CHAT_MAX_FRAME_BYTES", "8192")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("page sizes", func(t *testing.T) {
		t.Setenv("CHAT_PAGE_SIZE", "200")
		t.Setenv("CHAT_MAX_PAGE_SIZE", "100")
		_, err := Load()
		assert.Error(t, err)
	})
}
