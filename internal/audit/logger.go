package audit

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventSecretUpgradeSuccess EventType = "secret_upgrade_success"
	EventSecretUpgradeFailure EventType = "secret_upgrade_failure"
	EventSessionDestroy       EventType = "session_destroy"
	EventWebhookRejected      EventType = "webhook_rejected"
)

type Event struct {
	Type      EventType
	SessionID string
	IP        string
	UserAgent string
	Details   map[string]any
}

// Log writes event on the shared logger under audit=security so it can be filtered
// from request logs.
func Log(event Event) {
	Write(log.Logger, event)
}

func Write(logger zerolog.Logger, event Event) {
	ctx := logger.With().
		Str("audit", "security").
		Str("event_type", string(event.Type))

	if event.SessionID != "" {
		ctx = ctx.Str("session_id", event.SessionID)
	}
	if event.IP != "" {
		ctx = ctx.Str("ip", event.IP)
	}
	if event.UserAgent != "" {
		ctx = ctx.Str("user_agent", event.UserAgent)
	}

	l := ctx.Logger()
	e := l.Info()
	if event.Type == EventSecretUpgradeFailure || event.Type == EventWebhookRejected {
		e = l.Warn()
	}
	for k, v := range event.Details {
		e = addField(e, k, v)
	}
	e.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(event)
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
