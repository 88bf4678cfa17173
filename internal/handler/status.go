package handler

import (
	"net/http"

	"github.com/chatstealth/server-go/internal/model"
)

type sessionCounter interface {
	Sessions() int
}

type StatusHandler struct {
	registry       sessionCounter
	publishableKey string
}

func NewStatusHandler(registry sessionCounter, publishableKey string) *StatusHandler {
	return &StatusHandler{
		registry:       registry,
		publishableKey: publishableKey,
	}
}

// GET /
func (h *StatusHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "chat-stealth-api",
	})
}

// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"activeSessions": h.registry.Sessions(),
	})
}

// GET /api/
func (h *StatusHandler) API(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Chat Stealth API",
		"status":  "active",
	})
}

type publicConfig struct {
	StripePublishableKey string `json:"stripe_publishable_key"`
	ProPrice             int    `json:"pro_price"`
	FreeTTLMinutes       int    `json:"free_ttl_minutes"`
	ProTTLMinutes        int    `json:"pro_ttl_minutes"`
	FreeMaxParticipants  int    `json:"free_max_participants"`
	ProMaxParticipants   int    `json:"pro_max_participants"`
}

// GET /api/config
func (h *StatusHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, publicConfig{
		StripePublishableKey: h.publishableKey,
		ProPrice:             model.ProPriceCents,
		FreeTTLMinutes:       model.FreeTier.MessageTTLMinutes,
		ProTTLMinutes:        model.ProTier.MessageTTLMinutes,
		FreeMaxParticipants:  model.FreeTier.MaxParticipants,
		ProMaxParticipants:   model.ProTier.MaxParticipants,
	})
}
