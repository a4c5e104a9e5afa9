package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "support_chat/pkg/errors"
)

// События сокета
const (
	EventJoinChat    = "joinChat"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"

	EventReceiveMessage = "receiveMessage"
	EventUserTyping     = "userTyping"
	EventAuthError      = "auth_error"
	EventError          = "error"
)

// Envelope - кадр сокета: {"event": "...", "data": {...}}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: raw}, nil
}

// JoinChatPayload принимает как строку "conv-1", так и {"chatId": "conv-1"}
type JoinChatPayload struct {
	ChatID string `json:"chatId" validate:"required,max=128"`
}

func (p *JoinChatPayload) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &p.ChatID)
	}
	type plain JoinChatPayload
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = JoinChatPayload(v)
	return nil
}

type SendMessagePayload struct {
	ChatID     string `json:"chatId" validate:"required,max=128"`
	SenderID   string `json:"senderId,omitempty" validate:"max=128"`
	ReceiverID string `json:"receiverId,omitempty" validate:"max=128"`
	Content    string `json:"content" validate:"required"`
}

type TypingPayload struct {
	ChatID     string `json:"chatId,omitempty" validate:"required_without=ReceiverID,max=128"`
	ReceiverID string `json:"receiverId,omitempty" validate:"required_without=ChatID,max=128"`
	IsTyping   *bool  `json:"isTyping" validate:"required"`
}

type UserTypingPayload struct {
	ChatID   string `json:"chatId,omitempty"`
	SenderID string `json:"senderId"`
	IsTyping bool   `json:"isTyping"`
}

type AuthErrorPayload struct {
	Message string `json:"message"`
}

// ErrorPayload - типизированный отказ, отправляется только автору события
type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New()

// DecodeEnvelope разбирает входящий кадр
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: malformed frame: %v", apperrors.ErrBadRequest, err)
	}
	env.Event = strings.TrimSpace(env.Event)
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", apperrors.ErrBadRequest)
	}
	return env, nil
}

// DecodePayload разбирает data события и проверяет обязательные поля
func DecodePayload(env Envelope, dst interface{}) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s: missing data", apperrors.ErrBadRequest, env.Event)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrBadRequest, env.Event, err)
	}
	return Validate(dst)
}

func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err)
	}
	return nil
}
