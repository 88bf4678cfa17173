package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatstealth/server-go/internal/audit"
	apperrors "github.com/chatstealth/server-go/internal/errors"
	"github.com/chatstealth/server-go/internal/service"
)

// SessionLimits wraps individual routes with rate limiting. Nil entries leave the
// route unlimited.
type SessionLimits struct {
	Create        func(http.Handler) http.Handler
	SecretUpgrade func(http.Handler) http.Handler
}

type SessionHandler struct {
	sessionService *service.SessionService
	messageService *service.MessageService
	limits         SessionLimits
}

func NewSessionHandler(sessionService *service.SessionService, messageService *service.MessageService, limits SessionLimits) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		messageService: messageService,
		limits:         limits,
	}
}

// Routes serves both lookups by code and operations by id under one parameter,
// since the two share the same path position.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(optional(h.limits.Create)).Post("/", h.CreateSession)
	r.Get("/{session}", h.GetByCode)
	r.Get("/{session}/messages", h.ListMessages)
	r.Post("/{session}/upgrade", h.CreateCheckout)
	r.Post("/{session}/verify-upgrade", h.VerifyUpgrade)
	r.Delete("/{session}/destroy", h.DestroySession)
	r.With(optional(h.limits.SecretUpgrade)).Post("/{session}/secret-upgrade", h.SecretUpgrade)

	return r
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

type createSessionRequest struct {
	Nickname *string `json:"nickname"`
}

// POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.sessionService.CreateSession(r.Context(), req.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GET /api/sessions/{code}
func (h *SessionHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.GetByCode(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GET /api/sessions/{sessionId}/messages
func (h *SessionHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageService.ListActiveMessages(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// POST /api/sessions/{sessionId}/upgrade
func (h *SessionHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.CreateCheckout(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /api/sessions/{sessionId}/verify-upgrade
func (h *SessionHandler) VerifyUpgrade(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.VerifyUpgrade(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DELETE /api/sessions/{sessionId}/destroy
func (h *SessionHandler) DestroySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	if err := h.sessionService.DestroySession(r.Context(), sessionID); err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventSessionDestroy, SessionID: sessionID})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Session destroyed",
	})
}

type secretUpgradeRequest struct {
	SecretCode string `json:"secret_code"`
}

// POST /api/sessions/{sessionId}/secret-upgrade
func (h *SessionHandler) SecretUpgrade(w http.ResponseWriter, r *http.Request) {
	var req secretUpgradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sessionID := chi.URLParam(r, "session")
	session, err := h.sessionService.SecretUpgrade(r.Context(), sessionID, req.SecretCode)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeForbidden) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventSecretUpgradeFailure, SessionID: sessionID})
		}
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventSecretUpgradeSuccess, SessionID: sessionID})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":             true,
		"is_pro":              session.IsPro,
		"message_ttl_minutes": session.MessageTTLMinutes,
		"max_participants":    session.MaxParticipants,
	})
}
