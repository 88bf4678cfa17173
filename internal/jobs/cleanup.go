package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatstealth/server-go/internal/config"
	"github.com/chatstealth/server-go/internal/repository"
)

// SweepResult reports what one sweep removed. A failed step leaves its count at zero
// and records the error.
type SweepResult struct {
	Messages    int64
	Sessions    int64
	MessagesErr error
	SessionsErr error
}

// ExpirySweeper deletes expired messages, then expired sessions, on a fixed interval.
type ExpirySweeper struct {
	messageRepo repository.MessageRepository
	sessionRepo repository.SessionRepository
	interval    time.Duration
	now         func() time.Time

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewExpirySweeper(store *repository.Store, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		messageRepo: store.Messages,
		sessionRepo: store.Sessions,
		interval:    interval,
		now:         func() time.Time { return time.Now().UTC() },
		done:        make(chan struct{}),
	}
}

func (j *ExpirySweeper) WithClock(now func() time.Time) *ExpirySweeper {
	j.now = now
	return j
}

func (j *ExpirySweeper) Start() {
	j.wg.Add(1)
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("expiry sweeper started")
}

// Stop ends the loop and waits for an in-flight sweep to finish. Safe to call twice.
func (j *ExpirySweeper) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.wg.Wait()
		log.Info().Msg("expiry sweeper stopped")
	})
}

func (j *ExpirySweeper) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.tick()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.tick()
		}
	}
}

func (j *ExpirySweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), config.SweepTimeout)
	defer cancel()

	j.Sweep(ctx)
}

// Sweep runs one pass. Errors are logged and never stop the next step or tick.
func (j *ExpirySweeper) Sweep(ctx context.Context) SweepResult {
	now := j.now()

	var result SweepResult
	result.Messages, result.MessagesErr = j.runCleanup(ctx, "messages", now, j.messageRepo.DeleteExpired)
	result.Sessions, result.SessionsErr = j.runCleanup(ctx, "sessions", now, j.sessionRepo.DeleteExpired)
	return result
}

func (j *ExpirySweeper) runCleanup(ctx context.Context, name string, now time.Time, fn func(context.Context, time.Time) (int64, error)) (int64, error) {
	count, err := fn(ctx, now)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep expired %s", name)
		return 0, err
	}
	if count > 0 {
		log.Info().Int64("count", count).Msgf("swept expired %s", name)
	}
	return count, nil
}
