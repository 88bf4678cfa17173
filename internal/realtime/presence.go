package realtime

import "sync"

// Presence tracks the nickname each participant announced with a join frame.
// It has no broadcast side effects; the gateway emits join and leave events.
type Presence struct {
	mu        sync.Mutex
	nicknames map[string]map[string]string // sessionID -> participantID -> nickname
}

func NewPresence() *Presence {
	return &Presence{nicknames: make(map[string]map[string]string)}
}

func (p *Presence) SetNickname(sessionID, participantID, nickname string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nicknames[sessionID] == nil {
		p.nicknames[sessionID] = make(map[string]string)
	}
	p.nicknames[sessionID][participantID] = nickname
}

func (p *Presence) ClearNickname(sessionID, participantID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	participants, ok := p.nicknames[sessionID]
	if !ok {
		return
	}
	delete(participants, participantID)
	if len(participants) == 0 {
		delete(p.nicknames, sessionID)
	}
}

func (p *Presence) Nickname(sessionID, participantID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	nickname, ok := p.nicknames[sessionID][participantID]
	return nickname, ok
}
