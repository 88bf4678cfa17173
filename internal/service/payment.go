package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/chatstealth/server-go/internal/errors"
	"github.com/chatstealth/server-go/internal/model"
)

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*model.WebhookEvent, error)
}

type sessionUpgrader interface {
	UpgradeToPro(ctx context.Context, id string) (*model.Session, error)
}

type PaymentService struct {
	parser   WebhookParser
	upgrader sessionUpgrader
}

func NewPaymentService(parser WebhookParser, sessions *SessionService) *PaymentService {
	return &PaymentService{
		parser:   parser,
		upgrader: sessions,
	}
}

// HandleWebhook upgrades the session named in a completed checkout. Every other
// event type is acknowledged without side effects.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.parser.ParseWebhook(payload, signature)
	if err != nil {
		log.Warn().Err(err).Msg("rejected payment webhook")
		return apperrors.ValidationError("Invalid webhook payload").WithCause(err)
	}

	if event.Type != model.CheckoutCompletedEvent {
		log.Debug().Str("eventId", event.ID).Str("type", event.Type).Msg("ignoring payment webhook")
		return nil
	}

	if event.SessionID == "" {
		log.Warn().Str("eventId", event.ID).Msg("checkout completed without session id")
		return nil
	}

	if _, err := s.upgrader.UpgradeToPro(ctx, event.SessionID); err != nil {
		log.Error().Err(err).Str("eventId", event.ID).Str("sessionId", event.SessionID).Msg("webhook upgrade failed")
		return err
	}

	log.Info().Str("eventId", event.ID).Str("sessionId", event.SessionID).Msg("session upgraded from checkout")
	return nil
}
