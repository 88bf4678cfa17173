package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chatstealth/server-go/internal/config"
	"github.com/chatstealth/server-go/internal/realtime"
)

const wsControlTimeout = time.Second

type WebSocketHandler struct {
	gateway      *realtime.Gateway
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
}

func NewWebSocketHandler(gateway *realtime.Gateway) *WebSocketHandler {
	return &WebSocketHandler{
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Any origin may connect; sessions are public by code.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		writeTimeout: config.BroadcastSendTimeout,
		pingInterval: config.HeartbeatInterval,
	}
}

// GET /ws/{sessionId}
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("sessionId", sessionID).Msg("websocket upgrade failed")
		return
	}

	ws := newWSConn(conn, h.writeTimeout)
	conn.SetReadLimit(config.WebSocketReadLimit)
	conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})

	stop := make(chan struct{})
	go ws.keepAlive(h.pingInterval, stop)
	defer close(stop)

	h.gateway.Serve(r.Context(), sessionID, ws)
	conn.Close()
}

// wsConn adapts a gorilla connection to realtime.Conn. Gorilla allows one concurrent
// writer, so every write holds writeMu.
type wsConn struct {
	id           string
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		id:           uuid.NewString(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (c *wsConn) ID() string {
	return c.id
}

// Send writes one JSON frame. After a failed or timed-out write the connection is
// unusable, so it is closed and the read loop ends.
func (c *wsConn) Send(ctx context.Context, event any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)

	if err := c.conn.WriteJSON(event); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Close(code int, reason string) error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsControlTimeout))
	c.writeMu.Unlock()
	if err != nil {
		log.Debug().Err(err).Str("channelId", c.id).Msg("failed to send close frame")
	}
	return c.conn.Close()
}

func (c *wsConn) keepAlive(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsControlTimeout))
			c.writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Str("channelId", c.id).Msg("ping failed, closing connection")
				c.conn.Close()
				return
			}
		}
	}
}
