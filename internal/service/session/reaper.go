package session

import (
	"context"
	"time"

	"transcript-restream-service/internal/observability/logging"
)

const minSweepInterval = time.Second

// Reap periodically retires pending sessions that nobody claimed within ttl.
// It blocks until ctx is cancelled. A non-positive ttl disables reaping.
func (r *Registry) Reap(ctx context.Context, ttl time.Duration, onSwept func(id string)) {
	if ttl <= 0 {
		return
	}
	logger := logging.WithComponent("session-reaper")

	interval := ttl / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, id := range r.Sweep(now.Add(-ttl)) {
				logger.Info().
					Str("sessionId", id).
					Dur("ttl", ttl).
					Msg("Pending session expired before a consumer claimed it")
				if onSwept != nil {
					onSwept(id)
				}
			}
		}
	}
}
