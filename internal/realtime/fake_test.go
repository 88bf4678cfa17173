package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"sync"
	"time"
)

var errBrokenChannel = errors.New("channel broken")

// fakeChannel records every event it receives. A broken channel fails every send.
type fakeChannel struct {
	id     string
	broken bool

	mu     sync.Mutex
	events []any
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{id: id}
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Send(ctx context.Context, event any) error {
	if c.broken {
		return errBrokenChannel
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *fakeChannel) Events() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.events))
	copy(out, c.events)
	return out
}

// blockingChannel never completes a send until its context expires.
type blockingChannel struct {
	id string
}

func (c *blockingChannel) ID() string { return c.id }

func (c *blockingChannel) Send(ctx context.Context, event any) error {
	<-ctx.Done()
	return ctx.Err()
}

// fakeConn is a fakeChannel fed by a queue of inbound frames.
type fakeConn struct {
	*fakeChannel

	inbound chan []byte
	closed  chan struct{}

	closeOnce   sync.Once
	closeCode   int
	closeReason string
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{
		fakeChannel: newFakeChannel(id),
		inbound:     make(chan []byte, 16),
		closed:      make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) push(frame any) {
	data, _ := json.Marshal(frame)
	c.inbound <- data
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// register adds ch without a participant cap.
func register(r *Registry, sessionID string, ch Channel) {
	r.RegisterIfBelow(sessionID, ch, math.MaxInt)
}

func presenceCount(p *Presence, sessionID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nicknames[sessionID])
}

func presenceSessions(p *Presence) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nicknames)
}
