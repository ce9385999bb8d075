package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/observability/logging"
	"transcript-restream-service/internal/observability/metrics"
	"transcript-restream-service/internal/service/session"
	"transcript-restream-service/internal/service/timecode"
)

// WaitFunc suspends for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production WaitFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Plan returns the wait issued before each record. Offsets are cumulative
// from session start, so a timestamp behind the previous one waits zero.
func Plan(records []models.TranscriptRecord) []time.Duration {
	waits := make([]time.Duration, len(records))
	var last time.Duration
	for i, r := range records {
		cur := timecode.Seconds(r.TimeCode)
		if cur > last {
			waits[i] = cur - last
		}
		last = cur
	}
	return waits
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWait replaces the pacing wait, mainly for tests.
func WithWait(w WaitFunc) Option {
	return func(s *Scheduler) { s.wait = w }
}

// Scheduler drives sessions from the registry to completion.
type Scheduler struct {
	registry *session.Registry
	wait     WaitFunc
	metrics  *metrics.Metrics

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler over registry.
func NewScheduler(registry *session.Registry, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		registry: registry,
		wait:     Sleep,
		metrics:  metrics.DefaultMetrics,
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run claims the session, delivers every record with pacing, then the
// completion signal. Once claimed the session is finished and retired on
// every path. A failed claim, including one by a sink of the wrong kind,
// returns the error and leaves the registry alone.
func (s *Scheduler) Run(ctx context.Context, id string, sink Sink) (err error) {
	kind := sink.Kind()
	sess, err := s.registry.Claim(id, kind)
	if err != nil {
		return err
	}

	logger := logging.WithSession(id, kind.String())
	start := time.Now()
	s.metrics.RecordSessionStart(kind.String())

	defer func() {
		if ferr := s.registry.Finish(id, err); ferr != nil {
			logger.Warn().Err(ferr).Msg("Could not mark session finished")
		}
		s.registry.Remove(id)
		s.metrics.RecordSessionEnd(kind.String(), err == nil, time.Since(start).Seconds())

		if err != nil {
			logger.Error().Err(err).Msg("Session aborted")
			return
		}
		logger.Info().
			Int("records", len(sess.Records)).
			Dur("elapsed", time.Since(start)).
			Msg("Session completed")
	}()

	logger.Info().
		Str("filename", sess.Filename).
		Int("records", len(sess.Records)).
		Msg("Session delivery started")

	waits := Plan(sess.Records)
	for i := range sess.Records {
		s.metrics.RecordPacingWait(waits[i].Seconds())
		if err := s.wait(ctx, waits[i]); err != nil {
			return fmt.Errorf("wait before record %d: %w", i, err)
		}

		rec := sess.Records[i]
		if err := sink.Deliver(ctx, Delivery{SessionID: id, Index: i, Record: &rec}); err != nil {
			return fmt.Errorf("deliver record %d: %w", i, err)
		}
		s.metrics.RecordDelivered(kind.String())

		if err := s.registry.Advance(id, i+1); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
	}

	if err := sink.Deliver(ctx, Delivery{SessionID: id, Index: len(sess.Records), Complete: true}); err != nil {
		return fmt.Errorf("deliver completion: %w", err)
	}
	return nil
}

// Start runs the session in the background under the scheduler's own
// context, which Shutdown cancels.
func (s *Scheduler) Start(id string, sink Sink) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Run(s.baseCtx, id, sink)
	}()
}

// Shutdown cancels background sessions and waits for them to retire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
