package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/chatstealth/server-go/internal/errors"
	"github.com/chatstealth/server-go/internal/model"
	"github.com/chatstealth/server-go/internal/realtime"
	"github.com/chatstealth/server-go/internal/repository"
	"github.com/chatstealth/server-go/internal/util"
)

type SendMessageParams struct {
	SessionID      string
	Content        string
	MessageType    model.MessageType
	FileName       *string
	SenderID       string
	SenderNickname *string
}

type MessageService struct {
	sessionRepo repository.SessionRepository
	messageRepo repository.MessageRepository
	broadcaster realtime.Broadcaster
	listLimit   int
	now         Clock
}

func NewMessageService(store *repository.Store, broadcaster realtime.Broadcaster, listLimit int) *MessageService {
	return &MessageService{
		sessionRepo: store.Sessions,
		messageRepo: store.Messages,
		broadcaster: broadcaster,
		listLimit:   listLimit,
		now:         SystemClock,
	}
}

func (s *MessageService) WithClock(clock Clock) *MessageService {
	s.now = clock
	return s
}

// SendMessage stores a message with the TTL the session has right now and fans it
// out to connected participants. The session lookup ignores session expiry.
func (s *MessageService) SendMessage(ctx context.Context, params SendMessageParams) (*model.Message, error) {
	if err := validateSendMessage(&params); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.FindByID(ctx, params.SessionID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find session: %w", err))
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	now := s.now()
	msg, err := s.messageRepo.Create(ctx, model.CreateMessageParams{
		ID:             uuid.NewString(),
		SessionID:      session.ID,
		Content:        params.Content,
		MessageType:    params.MessageType,
		FileName:       params.FileName,
		SenderID:       params.SenderID,
		SenderNickname: params.SenderNickname,
		CreatedAt:      now,
		ExpiresAt:      now.Add(session.MessageTTL()),
	})
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("create message: %w", err))
	}

	delivered := s.broadcaster.Broadcast(ctx, session.ID, model.NewMessageEvent{
		Type:    model.EventNewMessage,
		Message: msg.ToPayload(),
	})

	log.Debug().
		Str("messageId", msg.ID).
		Str("sessionId", session.ID).
		Str("messageType", string(msg.MessageType)).
		Int("delivered", delivered).
		Msg("message sent")

	return msg, nil
}

func validateSendMessage(params *SendMessageParams) error {
	if strings.TrimSpace(params.SessionID) == "" {
		return apperrors.MissingRequired("session_id")
	}
	if params.Content == "" {
		return apperrors.MissingRequired("content")
	}
	if strings.TrimSpace(params.SenderID) == "" {
		return apperrors.MissingRequired("sender_id")
	}
	if params.MessageType == "" {
		params.MessageType = model.MessageTypeText
	}
	if !util.IsValidEnum(string(params.MessageType), model.MessageTypes) {
		return apperrors.InvalidInput("message_type", "must be one of "+strings.Join(model.MessageTypes, ", "))
	}
	return nil
}

// ListActiveMessages returns the unexpired messages of a session, oldest first.
func (s *MessageService) ListActiveMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	messages, err := s.messageRepo.FindActiveBySessionID(ctx, sessionID, s.now(), s.listLimit)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list messages: %w", err))
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return messages, nil
}
