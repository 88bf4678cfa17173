package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatstealth/server-go/internal/model"
	"github.com/chatstealth/server-go/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
	sendLimit      func(http.Handler) http.Handler
}

func NewMessageHandler(messageService *service.MessageService, sendLimit func(http.Handler) http.Handler) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		sendLimit:      sendLimit,
	}
}

func (h *MessageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(optional(h.sendLimit)).Post("/", h.SendMessage)

	return r
}

type sendMessageRequest struct {
	SessionID      string  `json:"session_id"`
	Content        string  `json:"content"`
	MessageType    string  `json:"message_type"`
	FileName       *string `json:"file_name"`
	SenderID       string  `json:"sender_id"`
	SenderNickname *string `json:"sender_nickname"`
}

// POST /api/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := h.messageService.SendMessage(r.Context(), service.SendMessageParams{
		SessionID:      req.SessionID,
		Content:        req.Content,
		MessageType:    model.MessageType(req.MessageType),
		FileName:       req.FileName,
		SenderID:       req.SenderID,
		SenderNickname: req.SenderNickname,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}
