package handler

import (
	"io"
	"net/http"

	"github.com/chatstealth/server-go/internal/audit"
	apperrors "github.com/chatstealth/server-go/internal/errors"
	"github.com/chatstealth/server-go/internal/service"
)

const maxWebhookBodySize = 64 << 10

type WebhookHandler struct {
	paymentService *service.PaymentService
}

func NewWebhookHandler(paymentService *service.PaymentService) *WebhookHandler {
	return &WebhookHandler{paymentService: paymentService}
}

// POST /api/stripe/webhook, POST /api/webhook
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		writeError(w, r, apperrors.ValidationError("Failed to read webhook body").WithCause(err))
		return
	}

	if err := h.paymentService.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeValidation) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventWebhookRejected,
				Details: map[string]any{"bytes": len(payload)},
			})
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
