package model

const CheckoutCompletedEvent = "checkout.session.completed"

type CheckoutRequest struct {
	SessionID   string
	SessionCode string
}

type CheckoutResult struct {
	CheckoutURL string `json:"checkout_url"`
	CheckoutID  string `json:"checkout_id"`
}

// WebhookEvent is the part of a payment provider callback the server acts on.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
}
