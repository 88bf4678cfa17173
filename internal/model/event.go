package model

// Server to client event types.
const (
	EventNewMessage       = "new_message"
	EventUserJoined       = "user_joined"
	EventUserLeft         = "user_left"
	EventTyping           = "typing"
	EventPong             = "pong"
	EventSessionUpgraded  = "session_upgraded"
	EventSessionDestroyed = "session_destroyed"
	EventError            = "error"
)

// Client to server frame types.
const (
	FrameJoin   = "join"
	FrameLeave  = "leave"
	FrameTyping = "typing"
	FramePing   = "ping"
)

const ErrorCodeSessionFull = "SESSION_FULL"

type NewMessageEvent struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

type UserJoinedEvent struct {
	Type            string `json:"type"`
	Nickname        string `json:"nickname"`
	SenderID        string `json:"sender_id"`
	Count           int    `json:"count"`
	MaxParticipants int    `json:"max_participants"`
}

type UserLeftEvent struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	Count    int    `json:"count"`
}

type TypingEvent struct {
	Type     string `json:"type"`
	SenderID string `json:"sender_id"`
	Nickname string `json:"nickname"`
	IsTyping bool   `json:"is_typing"`
}

type PongEvent struct {
	Type string `json:"type"`
}

type SessionUpgradedEvent struct {
	Type              string `json:"type"`
	IsPro             bool   `json:"is_pro"`
	MessageTTLMinutes int    `json:"message_ttl_minutes"`
	MaxParticipants   int    `json:"max_participants"`
}

type SessionDestroyedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Type            string `json:"type"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	MaxParticipants int    `json:"max_participants,omitempty"`
}

// ClientFrame is the union of every client to server frame. Fields that a frame type
// does not use stay at their zero value.
type ClientFrame struct {
	Type     string  `json:"type"`
	SenderID string  `json:"sender_id,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
	IsTyping bool    `json:"is_typing,omitempty"`
}
