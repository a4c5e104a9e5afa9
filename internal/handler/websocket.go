package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"support_chat/internal/config"
	"support_chat/internal/domain"
	"support_chat/internal/middleware"
	"support_chat/internal/service"
	apperrors "support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("send buffer overflow")
)

type WebSocketHandler struct {
	identityService service.IdentityService
	relay           *service.Relay
	upgrader        websocket.Upgrader
	cfg             config.ChatConfig
	log             logger.Logger
}

func NewWebSocketHandler(identityService service.IdentityService, relay *service.Relay, cfg *config.Config, log logger.Logger) *WebSocketHandler {
	corsPolicy := middleware.NewCORS(cfg.Server.AllowOrigins)
	return &WebSocketHandler{
		identityService: identityService,
		relay:           relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     corsPolicy.OriginAllowed,
		},
		cfg: cfg.Chat,
		log: log.With("component", "websocket"),
	}
}

// HandleChat - GET /ws/chat?token=...
func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	identity, authErr := h.authenticate(c)
	if authErr != nil && !h.cfg.AllowAnonymous {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": apperrors.Code(authErr)})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := newWSConn(ws, identity, h.cfg, h.log)
	h.relay.Connect(conn)
	go conn.writeLoop()

	if authErr != nil {
		// соединение остается открытым без identity
		h.sendEvent(conn, domain.EventAuthError, domain.AuthErrorPayload{Message: authErr.Error()})
	}

	conn.readLoop(h.dispatch)

	h.relay.Disconnect(conn)
	conn.close()
}

func (h *WebSocketHandler) authenticate(c *gin.Context) (*domain.Identity, error) {
	token := middleware.ExtractToken(c)
	if token == "" {
		return nil, apperrors.ErrUnauthorized
	}
	return h.identityService.ValidateToken(c.Request.Context(), token)
}

// dispatch обрабатывает кадры одного соединения последовательно
func (h *WebSocketHandler) dispatch(conn *wsConn, env domain.Envelope) {
	ctx := conn.ctx

	var err error
	switch env.Event {
	case domain.EventJoinChat:
		var in domain.JoinChatPayload
		if err = domain.DecodePayload(env, &in); err == nil {
			_, err = h.relay.Join(ctx, conn, in)
		}
	case domain.EventSendMessage:
		var in domain.SendMessagePayload
		if err = domain.DecodePayload(env, &in); err == nil {
			_, err = h.relay.SendMessage(ctx, conn.identity, in)
		}
	case domain.EventTyping:
		var in domain.TypingPayload
		if err = domain.DecodePayload(env, &in); err == nil {
			err = h.relay.Typing(ctx, conn, in)
		}
	default:
		err = fmt.Errorf("%w: unknown event %q", apperrors.ErrBadRequest, env.Event)
	}

	if err != nil {
		h.sendError(conn, env.Event, err)
	}
}

func (h *WebSocketHandler) sendError(conn *wsConn, event string, err error) {
	code := apperrors.Code(err)
	if code == "internal_error" || code == "persistence_failed" {
		h.log.Error("Socket event failed", "conn_id", conn.ID(), "event", event, "error", err)
	} else {
		h.log.Debug("Socket event rejected", "conn_id", conn.ID(), "event", event, "error", err)
	}

	h.sendEvent(conn, domain.EventError, domain.ErrorPayload{
		Event:   event,
		Code:    code,
		Message: apperrors.PublicMessage(err),
	})
}

func (h *WebSocketHandler) sendEvent(conn *wsConn, event string, payload interface{}) {
	env, err := domain.NewEnvelope(event, payload)
	if err != nil {
		h.log.Error("Failed to encode event", "event", event, "error", err)
		return
	}
	_ = conn.Send(env)
}

// wsConn - одно сокет-соединение: чтение в горутине обработчика, запись в writeLoop
type wsConn struct {
	id       string
	identity *domain.Identity
	ws       *websocket.Conn
	cfg      config.ChatConfig
	log      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	send      chan domain.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, identity *domain.Identity, cfg config.ChatConfig, log logger.Logger) *wsConn {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &wsConn{
		id:       id,
		identity: identity,
		ws:       ws,
		cfg:      cfg,
		log:      log.With("conn_id", id),
		ctx:      ctx,
		cancel:   cancel,
		send:     make(chan domain.Envelope, cfg.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *wsConn) ID() string                 { return c.id }
func (c *wsConn) Identity() *domain.Identity { return c.identity }

// Send не блокируется: переполненный буфер закрывает медленное соединение
func (c *wsConn) Send(env domain.Envelope) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- env:
		return nil
	default:
		c.log.Warn("Send buffer overflow, closing connection")
		c.close()
		return errSlowConsumer
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *wsConn) pongWait() time.Duration {
	return c.cfg.PingInterval + c.cfg.WriteWait
}

func (c *wsConn) readLoop(handle func(*wsConn, domain.Envelope)) {
	// кадр больше лимита закрывает соединение (CloseMessageTooBig),
	// длинный текст в пределах кадра отклоняется как content_too_long
	c.ws.SetReadLimit(c.readLimit())
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait()))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait()))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected close", "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait()))

		env, err := domain.DecodeEnvelope(raw)
		if err != nil {
			c.sendDecodeError(err)
			continue
		}
		handle(c, env)
	}
}

func (c *wsConn) sendDecodeError(err error) {
	env, encErr := domain.NewEnvelope(domain.EventError, domain.ErrorPayload{
		Code:    apperrors.Code(err),
		Message: err.Error(),
	})
	if encErr == nil {
		_ = c.Send(env)
	}
}

func (c *wsConn) readLimit() int64 {
	if c.cfg.MaxFrameBytes > 0 {
		return c.cfg.MaxFrameBytes
	}
	return 1 << 20
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case env := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteJSON(env); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
