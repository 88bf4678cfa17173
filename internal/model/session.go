package model

import "time"

type Session struct {
	ID                string     `db:"id" json:"id"`
	Code              string     `db:"code" json:"code"`
	IsPro             bool       `db:"is_pro" json:"is_pro"`
	MessageTTLMinutes int        `db:"message_ttl_minutes" json:"message_ttl_minutes"`
	MaxParticipants   int        `db:"max_participants" json:"max_participants"`
	CreatorNickname   *string    `db:"creator_nickname" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt         time.Time  `db:"expires_at" json:"expires_at"`
	UpgradedAt        *time.Time `db:"upgraded_at" json:"-"`
}

// IsLive reports whether the session has not yet reached its expiry at now.
func (s *Session) IsLive(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// MessageTTL is the lifetime applied to messages sent while the session has its current tier.
func (s *Session) MessageTTL() time.Duration {
	return time.Duration(s.MessageTTLMinutes) * time.Minute
}

type CreateSessionParams struct {
	ID                string
	Code              string
	MessageTTLMinutes int
	MaxParticipants   int
	CreatorNickname   *string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

type UpgradeSessionParams struct {
	MessageTTLMinutes int
	MaxParticipants   int
	UpgradedAt        time.Time
}
