package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/chatstealth/server-go/internal/model"
)

const (
	currency           = "brl"
	productName        = "Chat Stealth Pro"
	productDescription = "Mensagens com 30 minutos de duração"
	metadataSessionID  = "session_id"
)

var ErrNotConfigured = errors.New("stripe secret key is not configured")

type checkoutSessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeProvider struct {
	checkouts     checkoutSessionCreator
	webhookSecret string
	appURL        string
}

// NewStripeProvider builds a provider bound to its own API client. An empty secret key
// yields a provider whose checkouts fail with ErrNotConfigured.
func NewStripeProvider(secretKey, webhookSecret, appURL string) *StripeProvider {
	p := &StripeProvider{
		webhookSecret: webhookSecret,
		appURL:        appURL,
	}
	if secretKey != "" {
		p.checkouts = client.New(secretKey, nil).CheckoutSessions
	}
	return p
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	if p.checkouts == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(productName),
						Description: stripe.String(productDescription),
					},
					UnitAmount: stripe.Int64(model.ProPriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL(req.SessionCode)),
		CancelURL:  stripe.String(p.CancelURL(req.SessionCode)),
	}
	params.Context = ctx
	params.AddMetadata(metadataSessionID, req.SessionID)

	cs, err := p.checkouts.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &model.CheckoutResult{
		CheckoutURL: cs.URL,
		CheckoutID:  cs.ID,
	}, nil
}

func (p *StripeProvider) SuccessURL(code string) string {
	return fmt.Sprintf("%s/?upgraded=true&session=%s", p.appURL, code)
}

func (p *StripeProvider) CancelURL(code string) string {
	return fmt.Sprintf("%s/?session=%s", p.appURL, code)
}

// ParseWebhook verifies the Stripe-Signature header when a webhook secret is set.
// Without one the payload is trusted as-is.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*model.WebhookEvent, error) {
	var event stripe.Event
	if p.webhookSecret != "" {
		verified, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, fmt.Errorf("verify webhook signature: %w", err)
		}
		event = verified
	} else {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET not set, skipping webhook signature verification")
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("decode webhook payload: %w", err)
		}
	}

	result := &model.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if result.Type != model.CheckoutCompletedEvent || event.Data == nil {
		return result, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	result.SessionID = cs.Metadata[metadataSessionID]

	return result, nil
}
