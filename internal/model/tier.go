package model

import "time"

// Tier limits. Session creation, upgrades and the published config all read these.
const (
	FreeMessageTTLMinutes = 5
	FreeMaxParticipants   = 5

	ProMessageTTLMinutes = 30
	ProMaxParticipants   = 50

	// ProPriceCents is charged once per session in the checkout currency.
	ProPriceCents = 999
)

// SessionLifetime bounds how long a session code stays resolvable.
const SessionLifetime = 24 * time.Hour

type Tier struct {
	IsPro             bool
	MessageTTLMinutes int
	MaxParticipants   int
}

var (
	FreeTier = Tier{IsPro: false, MessageTTLMinutes: FreeMessageTTLMinutes, MaxParticipants: FreeMaxParticipants}
	ProTier  = Tier{IsPro: true, MessageTTLMinutes: ProMessageTTLMinutes, MaxParticipants: ProMaxParticipants}
)
