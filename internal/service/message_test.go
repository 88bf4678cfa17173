package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chatstealth/server-go/internal/errors"
	"github.com/chatstealth/server-go/internal/model"
	"github.com/chatstealth/server-go/internal/repository"
)

type messageFixture struct {
	store    *repository.Store
	sessions *SessionService
	messages *MessageService
	b        *recordingBroadcaster
	clock    *fakeClock
}

func newMessageFixture() *messageFixture {
	store := repository.NewMemoryStore()
	sessions, b, clock := newTestSessionService(store, nil, "")
	messages := NewMessageService(store, b, 100)
	messages.now = clock.Now
	return &messageFixture{store: store, sessions: sessions, messages: messages, b: b, clock: clock}
}

func TestMessageService_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("expiry equals the session ttl exactly", func(t *testing.T) {
		for _, tier := range []model.Tier{model.FreeTier, model.ProTier} {
			t.Run(fmt.Sprintf("%d minutes", tier.MessageTTLMinutes), func(t *testing.T) {
				f := newMessageFixture()
				session, _ := f.sessions.CreateSession(ctx, nil)
				if tier.IsPro {
					_, err := f.sessions.UpgradeToPro(ctx, session.ID)
					require.NoError(t, err)
				}

				msg, err := f.messages.SendMessage(ctx, SendMessageParams{
					SessionID: session.ID,
					Content:   "hello",
					SenderID:  "u1",
				})

				require.NoError(t, err)
				assert.Equal(t, time.Duration(tier.MessageTTLMinutes)*time.Minute, msg.ExpiresAt.Sub(msg.CreatedAt))
			})
		}
	})

	t.Run("upgrade does not extend messages already sent", func(t *testing.T) {
		f := newMessageFixture()
		session, _ := f.sessions.CreateSession(ctx, nil)
		sent, err := f.messages.SendMessage(ctx, SendMessageParams{SessionID: session.ID, Content: "before", SenderID: "u1"})
		require.NoError(t, err)

		_, err = f.sessions.UpgradeToPro(ctx, session.ID)
		require.NoError(t, err)

		reread, err := f.store.Messages.FindByID(ctx, sent.ID)
		require.NoError(t, err)
		assert.Equal(t, sent.ExpiresAt, reread.ExpiresAt)

		after, err := f.messages.SendMessage(ctx, SendMessageParams{SessionID: session.ID, Content: "after", SenderID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, after.ExpiresAt.Sub(after.CreatedAt))
	})

	t.Run("broadcasts new message with textual timestamps", func(t *testing.T) {
		f := newMessageFixture()
		session, _ := f.sessions.CreateSession(ctx, nil)
		nickname := "Ana"

		msg, err := f.messages.SendMessage(ctx, SendMessageParams{
			SessionID:      session.ID,
			Content:        "hi",
			SenderID:       "u1",
			SenderNickname: &nickname,
		})
		require.NoError(t, err)

		calls := f.b.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, session.ID, calls[0].SessionID)
		event, ok := calls[0].Event.(model.NewMessageEvent)
		require.True(t, ok)
		assert.Equal(t, model.EventNewMessage, event.Type)
		assert.Equal(t, msg.ID, event.Message.ID)
		assert.Equal(t, "2026-03-14T15:09:26Z", event.Message.CreatedAt)
		assert.Equal(t, "2026-03-14T15:14:26Z", event.Message.ExpiresAt)
	})

	t.Run("defaults message type to text", func(t *testing.T) {
		f := newMessageFixture()
		session, _ := f.sessions.CreateSession(ctx, nil)

		msg, err := f.messages.SendMessage(ctx, SendMessageParams{SessionID: session.ID, Content: "hi", SenderID: "u1"})

		require.NoError(t, err)
		assert.Equal(t, model.MessageTypeText, msg.MessageType)
	})

	t.Run("keeps file name for media", func(t *testing.T) {
		f := newMessageFixture()
		session, _ := f.sessions.CreateSession(ctx, nil)
		fileName := "report.pdf"

		msg, err := f.messages.SendMessage(ctx, SendMessageParams{
			SessionID:   session.ID,
			Content:     "data:application/pdf;base64,JVBERi0=",
			MessageType: model.MessageTypeDocument,
			FileName:    &fileName,
			SenderID:    "u1",
		})

		require.NoError(t, err)
		require.NotNil(t, msg.FileName)
		assert.Equal(t, "report.pdf", *msg.FileName)
	})

	t.Run("expired session still accepts messages", func(t *testing.T) {
		f := newMessageFixture()
		session, _ := f.sessions.CreateSession(ctx, nil)
		f.clock.Advance(25 * time.Hour)

		_, err := f.messages.SendMessage(ctx, SendMessageParams{SessionID: session.ID, Content: "late", SenderID: "u1"})
		assert.NoError(t, err)
	})

	t.Run("missing session is not found", func(t *testing.T) {
		f := newMessageFixture()

		_, err := f.messages.SendMessage(ctx, SendMessageParams{SessionID: "missing", Content: "hi", SenderID: "u1"})

		assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
		assert.Empty(t, f.b.Calls())
	})

	t.Run("validates input", func(t *testing.T) {
		tests := []struct {
			name   string
			params SendMessageParams
			code   apperrors.ErrorCode
		}{
			{"missing session id", SendMessageParams{Content: "hi", SenderID: "u1"}, apperrors.ErrCodeMissingRequired},
			{"missing content", SendMessageParams{SessionID: "s1", SenderID: "u1"}, apperrors.ErrCodeMissingRequired},
			{"missing sender", SendMessageParams{SessionID: "s1", Content: "hi"}, apperrors.ErrCodeMissingRequired},
			{"unknown type", SendMessageParams{SessionID: "s1", Content: "hi", SenderID: "u1", MessageType: "sticker"}, apperrors.ErrCodeInvalidInput},
		}

		f := newMessageFixture()
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.messages.SendMessage(ctx, tt.params)
				assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
			})
		}
	})

	t.Run("store failure is a database error", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		messages := new(mockMessageRepo)
		svc := &MessageService{sessionRepo: sessions, messageRepo: messages, broadcaster: &recordingBroadcaster{}, listLimit: 100, now: newFakeClock().Now}

		sessions.On("FindByID", ctx, "s1").Return(&model.Session{ID: "s1", MessageTTLMinutes: 5}, nil)
		messages.On("Create", ctx, mock.Anything).Return(nil, errors.New("disk full"))

		_, err := svc.SendMessage(ctx, SendMessageParams{SessionID: "s1", Content: "hi", SenderID: "u1"})
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeDatabase))
	})
}

func TestMessageService_ListActiveMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("returns messages in send order and hides expired ones", func(t *testing.T) {
		f := newMessageFixture()
		session, _ := f.sessions.CreateSession(ctx, nil)

		first, _ := f.messages.SendMessage(ctx, SendMessageParams{SessionID: session.ID, Content: "one", SenderID: "u1"})
		f.clock.Advance(time.Second)
		second, _ := f.messages.SendMessage(ctx, SendMessageParams{SessionID: session.ID, Content: "two", SenderID: "u2"})

		msgs, err := f.messages.ListActiveMessages(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, first.ID, msgs[0].ID)
		assert.Equal(t, second.ID, msgs[1].ID)

		f.clock.Advance(5 * time.Minute)

		msgs, err = f.messages.ListActiveMessages(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.NotNil(t, msgs)
	})

	t.Run("caps results at the list limit", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.listLimit = 3
		session, _ := f.sessions.CreateSession(ctx, nil)
		for i := 0; i < 5; i++ {
			f.messages.SendMessage(ctx, SendMessageParams{SessionID: session.ID, Content: fmt.Sprintf("m%d", i), SenderID: "u1"})
		}

		msgs, err := f.messages.ListActiveMessages(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "m0", msgs[0].Content)
	})

	t.Run("unknown session yields empty list", func(t *testing.T) {
		f := newMessageFixture()

		msgs, err := f.messages.ListActiveMessages(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}
