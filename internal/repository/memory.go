package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chatstealth/server-go/internal/model"
)

// memoryState backs the in-memory driver. Records are stored by value and copied on
// every read so callers never share memory with the store.
type memoryState struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	messages map[string]memoryMessage
	seq      uint64
}

type memoryMessage struct {
	msg model.Message
	seq uint64
}

func NewMemoryStore() *Store {
	state := &memoryState{
		sessions: make(map[string]model.Session),
		messages: make(map[string]memoryMessage),
	}
	return &Store{
		Driver:   model.StoreDriverMemory,
		Sessions: &MemorySessionRepository{state: state},
		Messages: &MemoryMessageRepository{state: state},
		Tx:       &memoryTxRunner{state: state},
	}
}

type MemorySessionRepository struct {
	state *memoryState
}

func (r *MemorySessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	session, ok := r.state.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (r *MemorySessionRepository) FindLiveByCode(ctx context.Context, code string, now time.Time) (*model.Session, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	var found *model.Session
	for _, session := range r.state.sessions {
		if session.Code != code || !session.IsLive(now) {
			continue
		}
		if found == nil || session.CreatedAt.After(found.CreatedAt) {
			s := session
			found = &s
		}
	}
	return found, nil
}

func (r *MemorySessionRepository) ExistsLiveCode(ctx context.Context, code string, now time.Time) (bool, error) {
	session, err := r.FindLiveByCode(ctx, code, now)
	return session != nil, err
}

func (r *MemorySessionRepository) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	session := model.Session{
		ID:                params.ID,
		Code:              params.Code,
		MessageTTLMinutes: params.MessageTTLMinutes,
		MaxParticipants:   params.MaxParticipants,
		CreatorNickname:   params.CreatorNickname,
		CreatedAt:         params.CreatedAt,
		ExpiresAt:         params.ExpiresAt,
	}

	r.state.mu.Lock()
	r.state.sessions[session.ID] = session
	r.state.mu.Unlock()

	return &session, nil
}

func (r *MemorySessionRepository) Upgrade(ctx context.Context, id string, params model.UpgradeSessionParams) (*model.Session, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	session, ok := r.state.sessions[id]
	if !ok {
		return nil, nil
	}
	upgradedAt := params.UpgradedAt
	session.IsPro = true
	session.MessageTTLMinutes = params.MessageTTLMinutes
	session.MaxParticipants = params.MaxParticipants
	session.UpgradedAt = &upgradedAt
	r.state.sessions[id] = session
	return &session, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.sessions[id]; !ok {
		return 0, nil
	}
	delete(r.state.sessions, id)
	return 1, nil
}

func (r *MemorySessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	var count int64
	for id, session := range r.state.sessions {
		if session.ExpiresAt.Before(now) {
			delete(r.state.sessions, id)
			count++
		}
	}
	return count, nil
}

type MemoryMessageRepository struct {
	state *memoryState
}

func (r *MemoryMessageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	entry, ok := r.state.messages[id]
	if !ok {
		return nil, nil
	}
	msg := entry.msg
	return &msg, nil
}

func (r *MemoryMessageRepository) FindActiveBySessionID(ctx context.Context, sessionID string, now time.Time, limit int) ([]model.Message, error) {
	r.state.mu.RLock()
	entries := make([]memoryMessage, 0)
	for _, entry := range r.state.messages {
		if entry.msg.SessionID == sessionID && entry.msg.ExpiresAt.After(now) {
			entries = append(entries, entry)
		}
	}
	r.state.mu.RUnlock()

	// Insertion order breaks created_at ties so equal timestamps keep send order.
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].msg.CreatedAt.Equal(entries[j].msg.CreatedAt) {
			return entries[i].msg.CreatedAt.Before(entries[j].msg.CreatedAt)
		}
		return entries[i].seq < entries[j].seq
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	msgs := make([]model.Message, len(entries))
	for i, entry := range entries {
		msgs[i] = entry.msg
	}
	return msgs, nil
}

func (r *MemoryMessageRepository) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	msg := model.Message{
		ID:             params.ID,
		SessionID:      params.SessionID,
		Content:        params.Content,
		MessageType:    params.MessageType,
		FileName:       params.FileName,
		SenderID:       params.SenderID,
		SenderNickname: params.SenderNickname,
		CreatedAt:      params.CreatedAt,
		ExpiresAt:      params.ExpiresAt,
	}

	r.state.mu.Lock()
	r.state.seq++
	r.state.messages[msg.ID] = memoryMessage{msg: msg, seq: r.state.seq}
	r.state.mu.Unlock()

	return &msg, nil
}

func (r *MemoryMessageRepository) DeleteBySessionID(ctx context.Context, sessionID string) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	var count int64
	for id, entry := range r.state.messages {
		if entry.msg.SessionID == sessionID {
			delete(r.state.messages, id)
			count++
		}
	}
	return count, nil
}

func (r *MemoryMessageRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	var count int64
	for id, entry := range r.state.messages {
		if entry.msg.ExpiresAt.Before(now) {
			delete(r.state.messages, id)
			count++
		}
	}
	return count, nil
}

// memoryTxRunner applies writes as they happen; a failing fn leaves earlier writes in place.
type memoryTxRunner struct {
	state *memoryState
}

func (r *memoryTxRunner) RunInTx(ctx context.Context, fn func(SessionRepository, MessageRepository) error) error {
	return fn(&MemorySessionRepository{state: r.state}, &MemoryMessageRepository{state: r.state})
}
