package handler

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/chatstealth/server-go/internal/middleware"
	"github.com/chatstealth/server-go/internal/model"
	"github.com/chatstealth/server-go/internal/payment"
	"github.com/chatstealth/server-go/internal/realtime"
	"github.com/chatstealth/server-go/internal/repository"
	"github.com/chatstealth/server-go/internal/service"
)

type stubCheckout struct {
	requests []model.CheckoutRequest
}

func (s *stubCheckout) CreateCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	s.requests = append(s.requests, req)
	return &model.CheckoutResult{CheckoutURL: "https://checkout.example/cs_test", CheckoutID: "cs_test"}, nil
}

type testApp struct {
	store    *repository.Store
	registry *realtime.Registry
	sessions *service.SessionService
	messages *service.MessageService
	checkout *stubCheckout
	router   chi.Router
}

const testSecret = "let-me-in"

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := repository.NewMemoryStore()
	registry := realtime.NewRegistry(time.Second)
	presence := realtime.NewPresence()
	checkout := &stubCheckout{}

	sessions := service.NewSessionService(store, registry, checkout, testSecret)
	messages := service.NewMessageService(store, registry, 100)
	payments := service.NewPaymentService(payment.NewStripeProvider("", "", "https://chat.example"), sessions)
	gateway := realtime.NewGateway(sessions, registry, presence, time.Second)

	secretLimiter := middleware.NewIPRateLimitMiddleware(middleware.NewMemoryLimiter(), 3, time.Minute, "secret-upgrade")

	statusHandler := NewStatusHandler(registry, "pk_test_123")
	sessionHandler := NewSessionHandler(sessions, messages, SessionLimits{SecretUpgrade: secretLimiter.Handler})
	messageHandler := NewMessageHandler(messages, nil)
	webhookHandler := NewWebhookHandler(payments)

	r := chi.NewRouter()
	r.Get("/", statusHandler.Root)
	r.Get("/health", statusHandler.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/", statusHandler.API)
		r.Get("/config", statusHandler.Config)
		r.Mount("/sessions", sessionHandler.Routes())
		r.Mount("/messages", messageHandler.Routes())
		r.Post("/stripe/webhook", webhookHandler.ServeHTTP)
		r.Post("/webhook", webhookHandler.ServeHTTP)
	})
	r.Get("/ws/{session}", NewWebSocketHandler(gateway).ServeHTTP)
	r.Get("/sse/{session}", NewEventsHandler(gateway).ServeHTTP)

	return &testApp{
		store:    store,
		registry: registry,
		sessions: sessions,
		messages: messages,
		checkout: checkout,
		router:   r,
	}
}

func (a *testApp) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register attaches ch to the session directly, bypassing admission.
func (a *testApp) register(sessionID string, ch realtime.Channel) {
	a.registry.RegisterIfBelow(sessionID, ch, math.MaxInt)
}

func (a *testApp) createSession(t *testing.T) *model.Session {
	t.Helper()
	session, err := a.sessions.CreateSession(context.Background(), nil)
	require.NoError(t, err)
	return session
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
