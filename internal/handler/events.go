package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chatstealth/server-go/internal/config"
	apperrors "github.com/chatstealth/server-go/internal/errors"
	"github.com/chatstealth/server-go/internal/realtime"
)

const sseBufferSize = 32

var errStreamClosed = errors.New("event stream closed")

// EventsHandler is the receive-only fallback for clients that cannot hold a websocket.
type EventsHandler struct {
	gateway           *realtime.Gateway
	heartbeatInterval time.Duration
}

func NewEventsHandler(gateway *realtime.Gateway) *EventsHandler {
	return &EventsHandler{
		gateway:           gateway,
		heartbeatInterval: config.HeartbeatInterval,
	}
}

// sseChannel queues events for the handler goroutine, which owns the writer.
type sseChannel struct {
	id     string
	events chan any
	done   chan struct{}
}

func newSSEChannel() *sseChannel {
	return &sseChannel{
		id:     uuid.NewString(),
		events: make(chan any, sseBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *sseChannel) ID() string {
	return c.id
}

func (c *sseChannel) Send(ctx context.Context, event any) error {
	select {
	case <-c.done:
		return errStreamClosed
	default:
	}

	select {
	case c.events <- event:
		return nil
	case <-c.done:
		return errStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GET /sse/{sessionId}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	ctx := r.Context()
	ch := newSSEChannel()
	defer close(ch.done)

	_, release, err := h.gateway.Attach(ctx, sessionID, ch)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrCodeSessionFull) {
			writeError(w, r, err)
			return
		}
		// The refusal event is already queued; deliver it and end the stream.
		startStream(w)
		h.drain(w, flusher, ch)
		return
	}
	defer release()

	startStream(w)
	flusher.Flush()

	log.Info().
		Str("sessionId", sessionID).
		Str("channelId", ch.id).
		Msg("sse connection established")

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("sessionId", sessionID).
				Msg("sse connection closed by client")
			return

		case event := <-ch.events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("sessionId", sessionID).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func startStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

func (h *EventsHandler) drain(w http.ResponseWriter, flusher http.Flusher, ch *sseChannel) {
	for {
		select {
		case event := <-ch.events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				return
			}
		default:
			return
		}
	}
}

// sendEvent writes event as an unnamed SSE message; clients read the type from the
// JSON body, matching the websocket frames.
func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
