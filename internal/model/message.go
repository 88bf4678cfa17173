package model

import (
	"time"
)

type Message struct {
	ID             string      `db:"id" json:"id"`
	SessionID      string      `db:"session_id" json:"session_id"`
	Content        string      `db:"content" json:"content"`
	MessageType    MessageType `db:"message_type" json:"message_type"`
	FileName       *string     `db:"file_name" json:"file_name"`
	SenderID       string      `db:"sender_id" json:"sender_id"`
	SenderNickname *string     `db:"sender_nickname" json:"sender_nickname"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	ExpiresAt      time.Time   `db:"expires_at" json:"expires_at"`
}

// MessagePayload is the wire form of a message carried inside realtime events.
// Timestamps are rendered as RFC3339 in UTC so every client parses the same string.
type MessagePayload struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"session_id"`
	Content        string      `json:"content"`
	MessageType    MessageType `json:"message_type"`
	FileName       *string     `json:"file_name"`
	SenderID       string      `json:"sender_id"`
	SenderNickname *string     `json:"sender_nickname"`
	CreatedAt      string      `json:"created_at"`
	ExpiresAt      string      `json:"expires_at"`
}

func (m *Message) ToPayload() MessagePayload {
	return MessagePayload{
		ID:             m.ID,
		SessionID:      m.SessionID,
		Content:        m.Content,
		MessageType:    m.MessageType,
		FileName:       m.FileName,
		SenderID:       m.SenderID,
		SenderNickname: m.SenderNickname,
		CreatedAt:      FormatTimestamp(m.CreatedAt),
		ExpiresAt:      FormatTimestamp(m.ExpiresAt),
	}
}

// FormatTimestamp renders t in the fixed textual form used on the wire.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type CreateMessageParams struct {
	ID             string
	SessionID      string
	Content        string
	MessageType    MessageType
	FileName       *string
	SenderID       string
	SenderNickname *string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}
