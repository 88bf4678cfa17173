package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatstealth/server-go/internal/model"
)

func TestMessageHandler_SendMessage(t *testing.T) {
	t.Run("stores message with session ttl", func(t *testing.T) {
		app := newTestApp(t)
		session := app.createSession(t)

		rec := app.do(http.MethodPost, "/api/messages", `{
			"session_id": "`+session.ID+`",
			"content": "oi",
			"sender_id": "u1",
			"sender_nickname": "Ana"
		}`)

		require.Equal(t, http.StatusOK, rec.Code)
		msg := decodeBody[model.Message](t, rec)
		assert.Equal(t, session.ID, msg.SessionID)
		assert.Equal(t, model.MessageTypeText, msg.MessageType)
		require.NotNil(t, msg.SenderNickname)
		assert.Equal(t, "Ana", *msg.SenderNickname)
		assert.Equal(t, 5*time.Minute, msg.ExpiresAt.Sub(msg.CreatedAt))
	})

	t.Run("delivers new message to open channels", func(t *testing.T) {
		app := newTestApp(t)
		session := app.createSession(t)
		ch := newSSEChannel()
		app.register(session.ID, ch)

		rec := app.do(http.MethodPost, "/api/messages", `{"session_id":"`+session.ID+`","content":"oi","sender_id":"u1"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		select {
		case event := <-ch.events:
			newMessage, ok := event.(model.NewMessageEvent)
			require.True(t, ok)
			assert.Equal(t, "oi", newMessage.Message.Content)
		case <-time.After(time.Second):
			t.Fatal("no event delivered")
		}
	})

	t.Run("missing session is 404", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(http.MethodPost, "/api/messages", `{"session_id":"missing","content":"oi","sender_id":"u1"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown message type is 400", func(t *testing.T) {
		app := newTestApp(t)
		session := app.createSession(t)

		rec := app.do(http.MethodPost, "/api/messages", `{"session_id":"`+session.ID+`","content":"oi","sender_id":"u1","message_type":"gif"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing content is 400", func(t *testing.T) {
		app := newTestApp(t)
		session := app.createSession(t)

		rec := app.do(http.MethodPost, "/api/messages", `{"session_id":"`+session.ID+`","sender_id":"u1"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
