package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Channel is one open duplex (or receive-only) connection to a participant.
type Channel interface {
	ID() string
	Send(ctx context.Context, event any) error
}

// Broadcaster fans an event out to every channel of a session.
type Broadcaster interface {
	Broadcast(ctx context.Context, sessionID string, event any) int
}

// Registry maps session ids to their open channels. It is a live-delivery cache only;
// an empty session entry is never kept around.
type Registry struct {
	mu          sync.Mutex
	channels    map[string][]Channel // sessionID -> channels
	sendTimeout time.Duration
}

func NewRegistry(sendTimeout time.Duration) *Registry {
	return &Registry{
		channels:    make(map[string][]Channel),
		sendTimeout: sendTimeout,
	}
}

// RegisterIfBelow registers ch only while the session holds fewer than max channels.
// It returns the count observed under the lock, so check and insert cannot interleave
// with a concurrent admission.
func (r *Registry) RegisterIfBelow(sessionID string, ch Channel, max int) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.channels[sessionID])
	if count >= max {
		return false, count
	}
	r.channels[sessionID] = append(r.channels[sessionID], ch)
	count++

	log.Debug().
		Str("sessionId", sessionID).
		Str("channelId", ch.ID()).
		Int("count", count).
		Msg("channel registered")

	return true, count
}

// Unregister removes exactly the given channel. It reports whether the channel was
// still registered, so concurrent cleanup paths can tell who got there first.
func (r *Registry) Unregister(sessionID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(sessionID, ch)
}

func (r *Registry) removeLocked(sessionID string, ch Channel) bool {
	channels, ok := r.channels[sessionID]
	if !ok {
		return false
	}

	for i, c := range channels {
		if c != ch {
			continue
		}
		remaining := make([]Channel, 0, len(channels)-1)
		remaining = append(remaining, channels[:i]...)
		remaining = append(remaining, channels[i+1:]...)
		if len(remaining) == 0 {
			delete(r.channels, sessionID)
		} else {
			r.channels[sessionID] = remaining
		}
		return true
	}
	return false
}

// Broadcast attempts delivery to every channel registered at call time and returns
// how many sends succeeded. Each send runs in its own goroutine bounded by the send
// timeout. Channels that fail are unregistered after the pass completes.
func (r *Registry) Broadcast(ctx context.Context, sessionID string, event any) int {
	r.mu.Lock()
	snapshot := make([]Channel, len(r.channels[sessionID]))
	copy(snapshot, r.channels[sessionID])
	r.mu.Unlock()

	if len(snapshot) == 0 {
		return 0
	}

	errs := make([]error, len(snapshot))
	var wg sync.WaitGroup
	for i, ch := range snapshot {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
			defer cancel()
			errs[i] = ch.Send(sendCtx, event)
		}(i, ch)
	}
	wg.Wait()

	delivered := 0
	var failed []Channel
	for i, err := range errs {
		if err != nil {
			log.Warn().
				Err(err).
				Str("sessionId", sessionID).
				Str("channelId", snapshot[i].ID()).
				Msg("broadcast send failed, dropping channel")
			failed = append(failed, snapshot[i])
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		r.mu.Lock()
		for _, ch := range failed {
			r.removeLocked(sessionID, ch)
		}
		r.mu.Unlock()
	}

	return delivered
}

func (r *Registry) Count(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels[sessionID])
}

// Sessions returns how many sessions have at least one open channel.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

func (r *Registry) TotalChannels() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, channels := range r.channels {
		total += len(channels)
	}
	return total
}
