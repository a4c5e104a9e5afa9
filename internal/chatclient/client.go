// Package chatclient - Go клиент сокета поддержки: одно явно принадлежащее
// вызывающему соединение и типизированные события вместо строковых.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"support_chat/internal/domain"
)

var ErrClosed = errors.New("chat client closed")

const writeWait = 10 * time.Second

// Event - входящее событие; заполнено ровно одно поле по Name
type Event struct {
	Name      string
	Message   *domain.ChatMessage
	Typing    *domain.UserTypingPayload
	Error     *domain.ErrorPayload
	AuthError *domain.AuthErrorPayload
}

type Client struct {
	ws     *websocket.Conn
	events chan Event

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// Dial подключается к /ws/chat; токен передается в ?token=
func Dial(ctx context.Context, serverURL, token string) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u.Redacted(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	c := &Client{
		ws:     ws,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events закрывается, когда соединение завершено
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) JoinChat(chatID string) error {
	return c.emit(domain.EventJoinChat, domain.JoinChatPayload{ChatID: chatID})
}

func (c *Client) SendMessage(in domain.SendMessagePayload) error {
	return c.emit(domain.EventSendMessage, in)
}

// Typing сигналит в комнату переписки
func (c *Client) Typing(chatID string, isTyping bool) error {
	return c.emit(domain.EventTyping, domain.TypingPayload{ChatID: chatID, IsTyping: &isTyping})
}

// TypingTo сигналит напрямую соединениям получателя
func (c *Client) TypingTo(receiverID string, isTyping bool) error {
	return c.emit(domain.EventTyping, domain.TypingPayload{ReceiverID: receiverID, IsTyping: &isTyping})
}

func (c *Client) emit(event string, payload interface{}) error {
	env, err := domain.NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(env); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.events)

	for {
		var env domain.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			c.shutdown()
			return
		}

		ev, err := decodeEvent(env)
		if err != nil {
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func decodeEvent(env domain.Envelope) (Event, error) {
	ev := Event{Name: env.Event}

	var target interface{}
	switch env.Event {
	case domain.EventReceiveMessage:
		ev.Message = &domain.ChatMessage{}
		target = ev.Message
	case domain.EventUserTyping:
		ev.Typing = &domain.UserTypingPayload{}
		target = ev.Typing
	case domain.EventError:
		ev.Error = &domain.ErrorPayload{}
		target = ev.Error
	case domain.EventAuthError:
		ev.AuthError = &domain.AuthErrorPayload{}
		target = ev.AuthError
	default:
		return Event{}, fmt.Errorf("unknown event %q", env.Event)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", env.Event, err)
		}
	}
	return ev, nil
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Close отправляет close-кадр и закрывает соединение
func (c *Client) Close() error {
	c.writeMu.Lock()
	select {
	case <-c.done:
	default:
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	c.writeMu.Unlock()

	c.shutdown()
	return nil
}
