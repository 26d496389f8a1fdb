// Package poller drives visibility into the external analysis engine, whose
// only interface is a status query of unknown duration. Each tracking session
// owns its ticker and its update channel; sessions never share state, so any
// number of callers can track different scans independently. The attempt
// budget is a client-side give-up: exhausting it does not cancel the external
// job, it only stops observing it.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/config"
)

// ErrScanFailed reports that the engine itself declared the scan failed. It
// is distinct from schemas.ErrPollTimeout, which only means this session
// stopped watching.
var ErrScanFailed = errors.New("analysis engine reported scan failure")

// StatusClient is the narrow view of the engine a session needs.
type StatusClient interface {
	// JobStatus returns the engine's current status string for the scan.
	JobStatus(ctx context.Context, scanID string) (string, error)
}

// progressByStatus maps each recognized intermediate status to the progress
// percentage surfaced to callers. Unrecognized statuses keep the previous
// percentage rather than regressing it.
var progressByStatus = map[string]int{
	"queued":       5,
	"initializing": 10,
	"crawling":     30,
	"auditing":     55,
	"analyzing":    75,
	"finalizing":   90,
}

// Terminal engine statuses. A stopped scan still has usable partial results,
// so the session treats it like completion.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusStopped   = "stopped"
)

// Session is one bounded polling loop against the engine for a single scan.
type Session struct {
	client      StatusClient
	scanID      string
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger

	updates chan schemas.TrackingUpdate
	done    chan struct{}
	err     error
}

// NewSession builds a session; Start begins polling.
func NewSession(client StatusClient, scanID string, cfg config.PollerConfig, logger *zap.Logger) *Session {
	return &Session{
		client:      client,
		scanID:      scanID,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger.Named("poller").With(zap.String("scan_id", scanID)),
		updates:     make(chan schemas.TrackingUpdate, 1),
		done:        make(chan struct{}),
	}
}

// Updates returns the stream of progress observations. The channel is closed
// when the session terminates; Err then reports the outcome.
func (s *Session) Updates() <-chan schemas.TrackingUpdate {
	return s.updates
}

// Err returns the session outcome once Updates is closed: nil on terminal
// success, ErrScanFailed on engine failure, schemas.ErrPollTimeout on attempt
// exhaustion, or the context error on cancellation.
func (s *Session) Err() error {
	<-s.done
	return s.err
}

// Start launches the polling loop. The loop owns its ticker and always tears
// it down, so cancelling ctx deterministically stops tracking without leaking
// a pending timer.
func (s *Session) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	progress := 0
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		case <-ticker.C:
		}

		status, err := s.client.JobStatus(ctx, s.scanID)
		if err != nil {
			// Transient query failures consume an attempt but retry on the
			// next tick.
			s.logger.Warn("Status query failed, will retry",
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		switch status {
		case statusCompleted, statusStopped:
			s.emit(ctx, schemas.TrackingUpdate{Status: status, Progress: 100})
			s.logger.Info("Scan reached terminal state", zap.String("status", status))
			return
		case statusFailed:
			s.emit(ctx, schemas.TrackingUpdate{Status: status, Progress: progress})
			s.err = fmt.Errorf("%w: scan %s", ErrScanFailed, s.scanID)
			return
		}

		if pct, ok := progressByStatus[status]; ok && pct > progress {
			progress = pct
		}
		s.emit(ctx, schemas.TrackingUpdate{Status: status, Progress: progress})
	}

	s.logger.Warn("Attempt budget exhausted before terminal status",
		zap.Int("max_attempts", s.maxAttempts))
	s.err = schemas.ErrPollTimeout
}

// emit delivers an update to the consumer. Cancellation unblocks a send to a
// consumer that stopped reading.
func (s *Session) emit(ctx context.Context, u schemas.TrackingUpdate) {
	select {
	case s.updates <- u:
	case <-ctx.Done():
	}
}
