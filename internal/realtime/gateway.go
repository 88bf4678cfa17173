package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/chatstealth/server-go/internal/errors"
	"github.com/chatstealth/server-go/internal/model"
)

// Close codes sent to refused websocket clients.
const (
	CloseSessionFull     = 4003
	CloseSessionNotFound = 4004
	closeInternalError   = 1011
)

const (
	// AnonymousNickname stands in for a join frame that carried no nickname.
	AnonymousNickname = "Anônimo"
	// UnknownNickname is reported when a connection leaves without ever joining.
	UnknownNickname = "Alguém"
)

// Conn is a duplex channel the gateway can read frames from and close.
type Conn interface {
	Channel
	ReadMessage() ([]byte, error)
	Close(code int, reason string) error
}

type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

type Gateway struct {
	sessions    SessionFinder
	registry    *Registry
	presence    *Presence
	sendTimeout time.Duration
}

func NewGateway(sessions SessionFinder, registry *Registry, presence *Presence, sendTimeout time.Duration) *Gateway {
	return &Gateway{
		sessions:    sessions,
		registry:    registry,
		presence:    presence,
		sendTimeout: sendTimeout,
	}
}

// Admit looks the session up and registers ch if the session has room. A full session
// gets one error event on ch before the SESSION_FULL error is returned; nothing is
// registered in either failure case.
func (g *Gateway) Admit(ctx context.Context, sessionID string, ch Channel) (*model.Session, error) {
	session, err := g.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	admitted, count := g.registry.RegisterIfBelow(sessionID, ch, session.MaxParticipants)
	if !admitted {
		log.Info().
			Str("sessionId", sessionID).
			Int("count", count).
			Int("maxParticipants", session.MaxParticipants).
			Msg("connection refused, session full")

		appErr := apperrors.SessionFull(session.MaxParticipants)
		g.send(ctx, ch, model.ErrorEvent{
			Type:            model.EventError,
			Code:            model.ErrorCodeSessionFull,
			Message:         appErr.Message,
			MaxParticipants: session.MaxParticipants,
		})
		return nil, appErr
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("channelId", ch.ID()).
		Int("count", count).
		Msg("connection admitted")

	return session, nil
}

// Serve admits conn and then reads frames until the transport closes. It returns the
// admission error, or nil once an admitted connection has been cleaned up.
func (g *Gateway) Serve(ctx context.Context, sessionID string, conn Conn) error {
	session, err := g.Admit(ctx, sessionID, conn)
	if err != nil {
		switch apperrors.GetCode(err) {
		case apperrors.ErrCodeNotFound:
			conn.Close(CloseSessionNotFound, "Session not found")
		case apperrors.ErrCodeSessionFull:
			conn.Close(CloseSessionFull, "Session full")
		default:
			log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to admit connection")
			conn.Close(closeInternalError, "Internal error")
		}
		return err
	}

	p := g.newParticipant(sessionID, conn, session)
	defer p.cleanup(ctx)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("sessionId", sessionID).Str("channelId", conn.ID()).Msg("connection closed")
			return nil
		}

		var frame model.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Debug().Err(err).Str("sessionId", sessionID).Msg("ignoring malformed frame")
			continue
		}

		p.handle(ctx, frame)
	}
}

// Attach admits a receive-only channel. The returned release func runs the same
// one-time cleanup as a closing duplex connection.
func (g *Gateway) Attach(ctx context.Context, sessionID string, ch Channel) (*model.Session, func(), error) {
	session, err := g.Admit(ctx, sessionID, ch)
	if err != nil {
		return nil, nil, err
	}
	p := g.newParticipant(sessionID, ch, session)
	return session, func() { p.cleanup(ctx) }, nil
}

func (g *Gateway) newParticipant(sessionID string, ch Channel, session *model.Session) *participant {
	return &participant{
		gateway:   g,
		sessionID: sessionID,
		ch:        ch,
		session:   session,
	}
}

func (g *Gateway) send(ctx context.Context, ch Channel, event any) error {
	sendCtx, cancel := context.WithTimeout(ctx, g.sendTimeout)
	defer cancel()

	if err := ch.Send(sendCtx, event); err != nil {
		log.Debug().Err(err).Str("channelId", ch.ID()).Msg("direct send failed")
		return err
	}
	return nil
}

// participant is the per-connection state between admission and close.
type participant struct {
	gateway   *Gateway
	sessionID string
	ch        Channel
	session   *model.Session

	senderID string
	nickname string
	once     sync.Once
}

func (p *participant) handle(ctx context.Context, frame model.ClientFrame) {
	g := p.gateway

	switch frame.Type {
	case model.FrameJoin:
		nickname := AnonymousNickname
		if frame.Nickname != nil {
			nickname = *frame.Nickname
		}
		if p.senderID != "" && p.senderID != frame.SenderID {
			g.presence.ClearNickname(p.sessionID, p.senderID)
		}
		p.senderID = frame.SenderID
		p.nickname = nickname
		if p.senderID != "" {
			g.presence.SetNickname(p.sessionID, p.senderID, nickname)
		}

		g.registry.Broadcast(ctx, p.sessionID, model.UserJoinedEvent{
			Type:            model.EventUserJoined,
			Nickname:        nickname,
			SenderID:        frame.SenderID,
			Count:           g.registry.Count(p.sessionID),
			MaxParticipants: p.maxParticipants(ctx),
		})

	case model.FrameLeave:
		nickname := p.nickname
		if frame.Nickname != nil {
			nickname = *frame.Nickname
		}
		if nickname == "" {
			nickname = AnonymousNickname
		}
		if p.senderID != "" {
			g.presence.ClearNickname(p.sessionID, p.senderID)
		}

		count := g.registry.Count(p.sessionID) - 1
		if count < 0 {
			count = 0
		}
		g.registry.Broadcast(ctx, p.sessionID, model.UserLeftEvent{
			Type:     model.EventUserLeft,
			Nickname: nickname,
			Count:    count,
		})

	case model.FrameTyping:
		var nickname string
		if frame.Nickname != nil {
			nickname = *frame.Nickname
		}
		g.registry.Broadcast(ctx, p.sessionID, model.TypingEvent{
			Type:     model.EventTyping,
			SenderID: frame.SenderID,
			Nickname: nickname,
			IsTyping: frame.IsTyping,
		})

	case model.FramePing:
		g.send(ctx, p.ch, model.PongEvent{Type: model.EventPong})

	default:
		log.Debug().Str("sessionId", p.sessionID).Str("type", frame.Type).Msg("ignoring unknown frame type")
	}
}

// maxParticipants prefers the stored value since an upgrade may have raised the cap
// after this connection was admitted.
func (p *participant) maxParticipants(ctx context.Context) int {
	session, err := p.gateway.sessions.FindByID(ctx, p.sessionID)
	if err != nil {
		return p.session.MaxParticipants
	}
	p.session = session
	return session.MaxParticipants
}

func (p *participant) cleanup(ctx context.Context) {
	p.once.Do(func() {
		g := p.gateway

		g.registry.Unregister(p.sessionID, p.ch)
		if p.senderID != "" {
			g.presence.ClearNickname(p.sessionID, p.senderID)
		}

		nickname := p.nickname
		if nickname == "" {
			nickname = UnknownNickname
		}

		// The request context is usually already cancelled by the time the
		// transport is gone, so the farewell broadcast runs detached from it.
		g.registry.Broadcast(context.WithoutCancel(ctx), p.sessionID, model.UserLeftEvent{
			Type:     model.EventUserLeft,
			Nickname: nickname,
			Count:    g.registry.Count(p.sessionID),
		})

		log.Info().
			Str("sessionId", p.sessionID).
			Str("channelId", p.ch.ID()).
			Str("nickname", nickname).
			Msg("participant disconnected")
	})
}
