package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"support_chat/internal/config"
	"support_chat/internal/domain"
	"support_chat/internal/middleware"
	"support_chat/internal/repository"
	"support_chat/internal/service"
	"support_chat/pkg/jwt"
	"support_chat/pkg/logger"
)

const testSecret = "handler-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	*httptest.Server
	cfg      *config.Config
	repo     *repository.MemoryChatRepository
	services *service.Services
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			AllowOrigins:    []string{"*"},
			RateLimit:       1000,
			RateLimitWindow: time.Minute,
		},
		JWT: config.JWTConfig{Secret: testSecret},
		Chat: config.ChatConfig{
			Store:            config.StoreMemory,
			Backplane:        config.BackplaneLocal,
			AdminParty:       "admin",
			AllowAnonymous:   true,
			MaxMessageLength: 2000,
			SendBuffer:       32,
			PingInterval:     time.Second,
			WriteWait:        time.Second,
			PersistTimeout:   time.Second,
			DefaultPageSize:  50,
			MaxPageSize:      100,
		},
		Log: config.LogConfig{Level: "error"},
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	log := logger.NewNop()

	repos := repository.NewRepositories(nil, nil, log)
	repo, ok := repos.Chat.(*repository.MemoryChatRepository)
	require.True(t, ok)
	repo.SeedConversation("conv-1", "cust-1", "admin")
	repo.SeedConversation("conv-2", "cust-2", "admin")

	services := service.NewServices(repos, nil, cfg, log)
	handlers := NewHandlers(services, cfg, log)
	authMiddleware := middleware.NewAuthMiddleware(services.Identity, log)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.Server.RateLimit, cfg.Server.RateLimitWindow, log)

	srv := httptest.NewServer(SetupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, log))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, cfg: cfg, repo: repo, services: services}
}

func issueToken(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := jwt.GenerateAccessToken(userID, userID+"@example.com", userID, role, testSecret, "", time.Minute)
	require.NoError(t, err)
	return tok
}

func (s *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/chat"
	if token != "" {
		url += "?token=" + token
	}
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	rec := httptest.NewRecorder()
	rec.Code = resp.StatusCode
	_, err = rec.Body.ReadFrom(resp.Body)
	require.NoError(t, err)
	return rec
}

func emit(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	env, err := domain.NewEnvelope(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(env))
}

// readEvent читает кадры до события с нужным именем
func readEvent(t *testing.T, ws *websocket.Conn, event string) domain.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var env domain.Envelope
		require.NoError(t, ws.ReadJSON(&env), "waiting for %s", event)
		if env.Event == event {
			return env
		}
	}
}

// expectNoEvent убеждается, что событие не пришло за короткое окно
func expectNoEvent(t *testing.T, ws *websocket.Conn, event string) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	for {
		var env domain.Envelope
		if err := ws.ReadJSON(&env); err != nil {
			return
		}
		assert.NotEqual(t, event, env.Event, "unexpected %s", event)
	}
}

func (s *testServer) waitRoomSize(t *testing.T, roomID string, size int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.services.Hub.RoomSize(roomID) == size
	}, 2*time.Second, 10*time.Millisecond)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
